package transform

import (
	"bytes"
	"context"
	"image/png"
	"log/slog"

	"github.com/tdewolff/minify/v2"

	"github.com/licht-dev/licht-compile/internal/fileset"
	"github.com/licht-dev/licht-compile/internal/logfields"
)

// imageOptimizer applies lossless optimizations only: PNGs are re-encoded at
// maximum compression and SVGs are minified. The result is kept only when
// smaller. Every other file (JPEG, GIF, fonts) passes through byte for byte.
type imageOptimizer struct {
	m *minify.M
}

func (o *imageOptimizer) transform(_ context.Context, f *fileset.File) ([]*fileset.File, error) {
	var optimized []byte
	switch f.Ext() {
	case ".png":
		optimized = o.png(f)
	case ".svg":
		if out, err := o.m.Bytes("image/svg+xml", f.Contents); err == nil {
			optimized = out
		} else {
			slog.Debug("svg minify skipped", logfields.Path(f.Path), logfields.Error(err))
		}
	}
	if optimized == nil || len(optimized) >= len(f.Contents) {
		return []*fileset.File{f}, nil
	}
	slog.Debug("Optimized image",
		logfields.Path(f.Path),
		slog.Int("before", len(f.Contents)),
		slog.Int("after", len(optimized)))
	return []*fileset.File{f.WithContents(optimized)}, nil
}

func (o *imageOptimizer) png(f *fileset.File) []byte {
	img, err := png.Decode(bytes.NewReader(f.Contents))
	if err != nil {
		slog.Debug("png decode skipped", logfields.Path(f.Path), logfields.Error(err))
		return nil
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
