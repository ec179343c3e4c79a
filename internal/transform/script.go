package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/licht-dev/licht-compile/internal/fileset"
	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
)

// transpileScript lowers modern JavaScript to ES2015.
func transpileScript(_ context.Context, f *fileset.File) ([]*fileset.File, error) {
	result := api.Transform(string(f.Contents), api.TransformOptions{
		Loader:     api.LoaderJS,
		Target:     api.ES2015,
		Sourcefile: f.Path,
	})
	if len(result.Errors) > 0 {
		return nil, ferrors.WrapError(esbuildError(result.Errors), ferrors.CategoryTransform, "esbuild transform failed").
			WithContext("file", f.Path).
			Build()
	}
	return []*fileset.File{f.WithContents(result.Code)}, nil
}

func esbuildError(msgs []api.Message) error {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		parts = append(parts, m.Text)
	}
	return errors.New(strings.Join(parts, "; "))
}
