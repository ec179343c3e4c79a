// Package fileset reads glob-matched files into memory and writes them back
// out under a destination directory, preserving their path relative to a base.
package fileset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
)

// File is an in-memory file travelling through a task.
type File struct {
	// Path is slash-separated and relative to the base directory the file was read from.
	Path     string
	Contents []byte
	Mode     fs.FileMode
}

// Ext returns the file extension including the dot.
func (f *File) Ext() string {
	return path.Ext(f.Path)
}

// WithExt returns a copy of f renamed to the given extension.
func (f *File) WithExt(ext string) *File {
	out := *f
	out.Path = f.Path[:len(f.Path)-len(path.Ext(f.Path))] + ext
	return &out
}

// WithContents returns a copy of f holding data.
func (f *File) WithContents(data []byte) *File {
	out := *f
	out.Contents = data
	return &out
}

// Match returns the slash paths under base matching pattern, files only, sorted.
// A missing base directory yields no matches.
func Match(base, pattern string) ([]string, error) {
	if pattern == "" {
		return nil, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, ferrors.ValidationError("invalid glob pattern").WithContext("glob", pattern).Build()
	}
	st, err := os.Stat(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat base directory").WithContext("path", base).Build()
	}
	if !st.IsDir() {
		return nil, ferrors.FileSystemError("base is not a directory").WithContext("path", base).Build()
	}

	matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "glob failed").WithContext("glob", pattern).Build()
	}
	sort.Strings(matches)
	return matches, nil
}

// MatchPath reports whether rel (slash-separated) matches pattern.
func MatchPath(pattern, rel string) bool {
	ok, err := doublestar.Match(pattern, rel)
	return err == nil && ok
}

// Src reads every file under base matching pattern.
func Src(ctx context.Context, base, pattern string) ([]*File, error) {
	matches, err := Match(base, pattern)
	if err != nil {
		return nil, err
	}
	files := make([]*File, 0, len(matches))
	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs := filepath.Join(base, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat source file").WithContext("file", rel).Build()
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read source file").WithContext("file", rel).Build()
		}
		files = append(files, &File{Path: rel, Contents: data, Mode: info.Mode().Perm()})
	}
	return files, nil
}

// Dest writes files under dir, creating parent directories as needed.
func Dest(ctx context.Context, dir string, files []*File) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := write(dir, f); err != nil {
			return err
		}
	}
	return nil
}

func write(dir string, f *File) error {
	clean := path.Clean("/" + f.Path)[1:]
	if clean == "" {
		return ferrors.FileSystemError("refusing to write file with empty path").Build()
	}
	target := filepath.Join(dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output directory").WithContext("path", filepath.Dir(target)).Build()
	}
	mode := f.Mode
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(target, f.Contents, mode); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, fmt.Sprintf("write %s", clean)).WithContext("file", clean).Build()
	}
	return nil
}
