package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/licht-dev/licht-compile/internal/devserver"
	"github.com/licht-dev/licht-compile/internal/livereload"
	"github.com/licht-dev/licht-compile/internal/logfields"
	"github.com/licht-dev/licht-compile/internal/runner"
	"github.com/licht-dev/licht-compile/internal/watch"
)

const shutdownTimeout = 5 * time.Second

// Serve starts the dev server and watches sources until ctx is cancelled.
// Source edits rerun the matching compile task; image, font and public
// edits only reload the browser.
func (p *Pipeline) Serve() runner.Task {
	return runner.Func(TaskServe, func(ctx context.Context) error {
		hub := livereload.NewHub(p.recorder)
		srv := devserver.New(devserver.Options{
			Port:     p.cfg.Server.Port,
			Roots:    []string{p.temp, p.dist, p.public},
			Routes:   p.routes(),
			Hub:      hub,
			Registry: p.metrics,
			Logger:   p.logger,
		})
		if err := srv.Start(ctx); err != nil {
			return err
		}
		p.setReloader(hub)
		defer func() {
			p.setReloader(nil)
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil {
				p.logger.Warn("Dev server shutdown error", logfields.Error(err))
			}
		}()

		w := watch.New(p.watchRules(hub), watch.WithLogger(p.logger))
		return w.Run(ctx)
	})
}

// routes resolves route directories against the project root.
func (p *Pipeline) routes() map[string]string {
	out := make(map[string]string, len(p.cfg.Server.Routes))
	for prefix, dir := range p.cfg.Server.Routes {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(p.root, dir)
		}
		out[prefix] = dir
	}
	return out
}

func (p *Pipeline) watchRules(r Reloader) []watch.Rule {
	var rules []watch.Rule
	rerun := func(name, glob string, task runner.Task) {
		if glob == "" {
			return
		}
		rules = append(rules, watch.Rule{
			Name:  name,
			Root:  p.src,
			Globs: []string{glob},
			Action: func(ctx context.Context, _ []string) error {
				return p.runner.Run(ctx, task)
			},
		})
	}
	rerun(TaskStyle, p.cfg.Paths.Styles, p.Style())
	rerun(TaskScript, p.cfg.Paths.Scripts, p.Script())
	rerun(TaskPage, p.cfg.Paths.Pages, p.Page())

	reload := func(_ context.Context, paths []string) error {
		r.Reload(paths...)
		return nil
	}
	var assetGlobs []string
	for _, g := range []string{p.cfg.Paths.Images, p.cfg.Paths.Fonts} {
		if g != "" {
			assetGlobs = append(assetGlobs, g)
		}
	}
	if len(assetGlobs) > 0 {
		rules = append(rules, watch.Rule{Name: "assets", Root: p.src, Globs: assetGlobs, Action: reload})
	}
	rules = append(rules, watch.Rule{Name: "public", Root: p.public, Action: reload})
	return rules
}
