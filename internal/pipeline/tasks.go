package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
	"github.com/licht-dev/licht-compile/internal/logfields"
	"github.com/licht-dev/licht-compile/internal/runner"
	"github.com/licht-dev/licht-compile/internal/transform"
)

// Clean removes dist and temp. Missing directories are not an error.
func (p *Pipeline) Clean() runner.Task {
	return runner.Func(TaskClean, func(_ context.Context) error {
		for _, dir := range []string{p.dist, p.temp} {
			if err := p.checkRemovable(dir); err != nil {
				return err
			}
			if err := os.RemoveAll(dir); err != nil {
				return ferrors.WrapError(err, ferrors.CategoryFileSystem, "remove directory").
					WithContext("path", dir).
					Build()
			}
			p.logger.Debug("Removed directory", logfields.Path(dir))
		}
		return nil
	})
}

// checkRemovable refuses to delete the project root or anything above it.
func (p *Pipeline) checkRemovable(dir string) error {
	rel, err := filepath.Rel(p.root, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ferrors.ValidationError("refusing to clean a directory outside the project").
			WithContext("path", dir).
			Build()
	}
	return nil
}

// Style compiles stylesheets into temp.
func (p *Pipeline) Style() runner.Task {
	return p.compileTask(TaskStyle, p.cfg.Paths.Styles, transform.Sass)
}

// Script transpiles scripts into temp.
func (p *Pipeline) Script() runner.Task {
	return p.compileTask(TaskScript, p.cfg.Paths.Scripts, transform.Esbuild)
}

// Page renders templates into temp.
func (p *Pipeline) Page() runner.Task {
	return p.compileTask(TaskPage, p.cfg.Paths.Pages, transform.Pongo2)
}

func (p *Pipeline) compileTask(name, glob, transformName string) runner.Task {
	return runner.Func(name, func(ctx context.Context) error {
		out, err := p.stream(ctx, name, p.src, glob, p.temp, transformName)
		if err != nil {
			return err
		}
		p.reload(out)
		return nil
	})
}

// Image optimizes images into dist.
func (p *Pipeline) Image() runner.Task {
	return p.distTask(TaskImage, p.cfg.Paths.Images)
}

// Font copies fonts into dist through the same lossless optimizer.
func (p *Pipeline) Font() runner.Task {
	return p.distTask(TaskFont, p.cfg.Paths.Fonts)
}

func (p *Pipeline) distTask(name, glob string) runner.Task {
	return runner.Func(name, func(ctx context.Context) error {
		_, err := p.stream(ctx, name, p.src, glob, p.dist, transform.Imagemin)
		return err
	})
}

// Extra copies public verbatim into dist. It always leaves dist in place so
// a build of an empty project still produces the output directory.
func (p *Pipeline) Extra() runner.Task {
	return runner.Func(TaskExtra, func(ctx context.Context) error {
		if err := os.MkdirAll(p.dist, 0o755); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create dist directory").
				WithContext("path", p.dist).
				Build()
		}
		_, err := p.stream(ctx, TaskExtra, p.public, "**", p.dist)
		return err
	})
}

// Useref bundles the build blocks of compiled pages and minifies the
// result into dist.
func (p *Pipeline) Useref() runner.Task {
	return runner.Func(TaskUseref, func(ctx context.Context) error {
		_, err := p.stream(ctx, TaskUseref, p.temp, p.cfg.Paths.Pages, p.dist, transform.Useref, transform.Minify)
		return err
	})
}
