package transform

import (
	"context"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"

	"github.com/licht-dev/licht-compile/internal/fileset"
	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
)

var mediaTypes = map[string]string{
	".css":  "text/css",
	".js":   "application/javascript",
	".html": "text/html",
	".htm":  "text/html",
	".svg":  "image/svg+xml",
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	// Inline <script> bodies are minified through the same JS minifier.
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
		KeepDefaultAttrVals: true,
	})
	m.AddFunc("image/svg+xml", svg.Minify)
	return m
}

// minifier compresses JS, CSS and HTML by extension and leaves everything else alone.
type minifier struct {
	m *minify.M
}

func (mf *minifier) transform(_ context.Context, f *fileset.File) ([]*fileset.File, error) {
	mediaType, ok := mediaTypes[f.Ext()]
	if !ok || mediaType == "image/svg+xml" {
		return []*fileset.File{f}, nil
	}
	out, err := mf.m.Bytes(mediaType, f.Contents)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryTransform, "minification failed").
			WithContext("file", f.Path).
			Build()
	}
	return []*fileset.File{f.WithContents(out)}, nil
}
