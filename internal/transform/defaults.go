package transform

import "github.com/licht-dev/licht-compile/internal/useref"

// Options configures the built-in transforms.
type Options struct {
	// SrcDir anchors Sass imports and template includes.
	SrcDir string
	// SearchPath is probed in order for files referenced by useref blocks.
	SearchPath []string
	// Root anchors alternate useref search paths.
	Root string
	// Data is the template context for pages.
	Data map[string]any
	// SassBinary is the Dart Sass executable. Empty means "sass" on PATH.
	SassBinary string
}

// NewDefaultRegistry registers every built-in transform. Callers must Close
// the registry to stop the Dart Sass process if one was started.
func NewDefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	m := newMinifier()

	sass := newSassCompiler(opts.SassBinary, opts.SrcDir)
	r.addCloser(sass)

	r.Override(Sass, sass.transform)
	r.Override(Esbuild, transpileScript)
	r.Override(Pongo2, newPageRenderer(opts.SrcDir, opts.Data).transform)
	r.Override(Imagemin, (&imageOptimizer{m: m}).transform)
	r.Override(Useref, (&userefBundler{p: &useref.Processor{SearchPath: opts.SearchPath, Root: opts.Root}}).transform)
	r.Override(Minify, (&minifier{m: m}).transform)
	return r
}
