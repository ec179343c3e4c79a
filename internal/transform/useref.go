package transform

import (
	"context"

	"github.com/licht-dev/licht-compile/internal/fileset"
	"github.com/licht-dev/licht-compile/internal/useref"
)

// userefBundler emits the rewritten page followed by every bundle its build
// blocks reference. Non-HTML files pass through.
type userefBundler struct {
	p *useref.Processor
}

func (u *userefBundler) transform(_ context.Context, f *fileset.File) ([]*fileset.File, error) {
	if f.Ext() != ".html" && f.Ext() != ".htm" {
		return []*fileset.File{f}, nil
	}
	out, assets, err := u.p.Process(f.Contents, f.Path)
	if err != nil {
		return nil, err
	}
	files := make([]*fileset.File, 0, len(assets)+1)
	files = append(files, f.WithContents(out))
	for _, a := range assets {
		files = append(files, &fileset.File{Path: a.Path, Contents: a.Contents, Mode: f.Mode})
	}
	return files, nil
}
