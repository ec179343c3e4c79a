package transform

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/godartsass/v2"

	"github.com/licht-dev/licht-compile/internal/fileset"
	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
	"github.com/licht-dev/licht-compile/internal/logfields"
)

// sassCompiler talks to a Dart Sass process over the embedded protocol. The
// process is started on first use so that projects without stylesheets never
// need the binary.
type sassCompiler struct {
	binary  string
	baseDir string

	mu sync.Mutex
	tr *godartsass.Transpiler
}

func newSassCompiler(binary, baseDir string) *sassCompiler {
	return &sassCompiler{binary: binary, baseDir: baseDir}
}

func (s *sassCompiler) transpiler() (*godartsass.Transpiler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr != nil {
		return s.tr, nil
	}
	tr, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: s.binary,
		Timeout:                  time.Minute,
		LogEventHandler: func(e godartsass.LogEvent) {
			slog.Warn("sass: "+e.Message, logfields.Transform(Sass))
		},
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryTransform, "start dart sass").
			WithContext("binary", s.binary).
			Build()
	}
	s.tr = tr
	return tr, nil
}

func (s *sassCompiler) transform(_ context.Context, f *fileset.File) ([]*fileset.File, error) {
	// Partials are only compiled through the files importing them.
	if strings.HasPrefix(path.Base(f.Path), "_") {
		return nil, nil
	}
	tr, err := s.transpiler()
	if err != nil {
		return nil, err
	}

	abs := filepath.Join(s.baseDir, filepath.FromSlash(f.Path))
	syntax := godartsass.SourceSyntaxSCSS
	if f.Ext() == ".sass" {
		syntax = godartsass.SourceSyntaxSASS
	}
	res, err := tr.Execute(godartsass.Args{
		Source:       string(f.Contents),
		URL:          "file://" + filepath.ToSlash(abs),
		OutputStyle:  godartsass.OutputStyleExpanded,
		SourceSyntax: syntax,
		IncludePaths: []string{filepath.Dir(abs), s.baseDir},
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryTransform, "sass compilation failed").
			WithContext("file", f.Path).
			Build()
	}
	return []*fileset.File{f.WithContents([]byte(res.CSS)).WithExt(".css")}, nil
}

func (s *sassCompiler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr == nil {
		return nil
	}
	err := s.tr.Close()
	s.tr = nil
	return err
}
