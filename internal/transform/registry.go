// Package transform holds the static registry of asset transforms. Each
// transform maps one input file to zero or more output files.
package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/licht-dev/licht-compile/internal/fileset"
)

// Names of the built-in transforms.
const (
	Sass     = "sass"
	Esbuild  = "esbuild"
	Pongo2   = "pongo2"
	Imagemin = "imagemin"
	Useref   = "useref"
	Minify   = "minify"
)

// Func transforms one file. Returning no files drops the input.
type Func func(ctx context.Context, f *fileset.File) ([]*fileset.File, error)

// Registry maps transform names to implementations.
type Registry struct {
	mu      sync.RWMutex
	funcs   map[string]Func
	closers []io.Closer
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds fn under name. Registering a name twice is an error.
func (r *Registry) Register(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("cannot register nil transform %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("transform %s already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// Override sets fn under name, replacing any existing transform.
func (r *Registry) Override(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the transform registered under name.
func (r *Registry) Lookup(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("transform %s not found", name)
	}
	return fn, nil
}

// Names returns the registered transform names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) addCloser(c io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, c)
}

// Close releases resources held by transforms, such as the Dart Sass process.
func (r *Registry) Close() error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Apply runs the named transforms over files in order.
func (r *Registry) Apply(ctx context.Context, files []*fileset.File, names ...string) ([]*fileset.File, error) {
	for _, name := range names {
		fn, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		next := make([]*fileset.File, 0, len(files))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, err := fn(ctx, f)
			if err != nil {
				return nil, err
			}
			next = append(next, out...)
		}
		files = next
	}
	return files, nil
}
