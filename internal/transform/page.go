package transform

import (
	"bytes"
	"context"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/licht-dev/licht-compile/internal/fileset"
	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
	"github.com/licht-dev/licht-compile/internal/frontmatter"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	registerFiltersOnce sync.Once
)

// registerFilters installs the template filters pongo2 does not ship.
func registerFilters() {
	registerFiltersOnce.Do(func() {
		if !pongo2.FilterExists("markdown") {
			_ = pongo2.RegisterFilter("markdown", markdownFilter)
		}
	})
}

func markdownFilter(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(in.String()), &buf); err != nil {
		return nil, &pongo2.Error{Sender: "filter:markdown", OrigError: err}
	}
	return pongo2.AsSafeValue(buf.String()), nil
}

// pageRenderer renders Django-syntax templates. Includes and extends resolve
// against baseDir and a leading YAML block is exposed to the template as
// page. Each render uses a fresh template set so edited partials are never
// served from a cache.
type pageRenderer struct {
	baseDir string
	data    map[string]any
}

func newPageRenderer(baseDir string, data map[string]any) *pageRenderer {
	registerFilters()
	return &pageRenderer{baseDir: baseDir, data: data}
}

func (p *pageRenderer) transform(_ context.Context, f *fileset.File) ([]*fileset.File, error) {
	loader, err := pongo2.NewLocalFileSystemLoader(p.baseDir)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryTransform, "template loader").
			WithContext("path", p.baseDir).
			Build()
	}
	set := pongo2.NewSet("pages", loader)

	front, body, err := frontmatter.Parse(f.Contents)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryTransform, "front matter parse failed").
			WithContext("file", f.Path).
			Build()
	}
	tpl, err := set.FromBytes(body)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryTransform, "template parse failed").
			WithContext("file", f.Path).
			Build()
	}

	ctx := pongo2.Context{}
	for k, v := range p.data {
		ctx[k] = v
	}
	ctx["page"] = front
	out, err := tpl.ExecuteBytes(ctx)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryTransform, "template render failed").
			WithContext("file", f.Path).
			Build()
	}
	return []*fileset.File{f.WithContents(out)}, nil
}
