// Package pipeline declares the fixed task set of a site build and composes
// it into the compile, build and develop sequences.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/licht-dev/licht-compile/internal/config"
	"github.com/licht-dev/licht-compile/internal/fileset"
	"github.com/licht-dev/licht-compile/internal/logfields"
	"github.com/licht-dev/licht-compile/internal/metrics"
	"github.com/licht-dev/licht-compile/internal/runner"
	"github.com/licht-dev/licht-compile/internal/transform"
)

// Task names.
const (
	TaskClean   = "clean"
	TaskStyle   = "style"
	TaskScript  = "script"
	TaskPage    = "page"
	TaskImage   = "image"
	TaskFont    = "font"
	TaskExtra   = "extra"
	TaskServe   = "serve"
	TaskUseref  = "useref"
	TaskCompile = "compile"
	TaskBuild   = "build"
	TaskDevelop = "develop"
)

// Reloader is notified with the output paths of every compile step while
// the dev server runs.
type Reloader interface {
	Reload(paths ...string)
}

// Options configures a Pipeline.
type Options struct {
	// Root is the project directory every configured path is relative to.
	Root string
	// Registry overrides the built-in transforms. The pipeline does not
	// close a registry it did not create.
	Registry *transform.Registry
	// Overrides replace individual built-in transforms by name.
	Overrides map[string]transform.Func
	// SassBinary is passed to the built-in Sass transform.
	SassBinary string
	Recorder   metrics.Recorder
	// Observer is notified around every leaf task.
	Observer runner.Observer
	// Metrics backs the dev server metrics endpoint.
	Metrics *prom.Registry
	Logger  *slog.Logger
}

// Pipeline builds one project.
type Pipeline struct {
	cfg    *config.BuildConfig
	root   string
	src    string
	dist   string
	temp   string
	public string

	registry     *transform.Registry
	ownsRegistry bool
	runner       *runner.Runner
	recorder     metrics.Recorder
	metrics      *prom.Registry
	logger       *slog.Logger

	mu       sync.RWMutex
	reloader Reloader
}

// New creates a pipeline for cfg rooted at opts.Root.
func New(cfg *config.BuildConfig, opts Options) (*Pipeline, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	p := &Pipeline{
		cfg:      cfg,
		root:     root,
		src:      filepath.Join(root, cfg.Src),
		dist:     filepath.Join(root, cfg.Dist),
		temp:     filepath.Join(root, cfg.Temp),
		public:   filepath.Join(root, cfg.Public),
		registry: opts.Registry,
		recorder: rec,
		metrics:  opts.Metrics,
		logger:   logger,
	}
	if p.registry == nil {
		p.registry = transform.NewDefaultRegistry(transform.Options{
			SrcDir:     p.src,
			SearchPath: []string{p.temp, root},
			Root:       root,
			Data:       cfg.Data,
			SassBinary: opts.SassBinary,
		})
		p.ownsRegistry = true
	}
	for name, fn := range opts.Overrides {
		p.registry.Override(name, fn)
	}
	runnerOpts := []runner.Option{runner.WithLogger(logger), runner.WithRecorder(rec)}
	if opts.Observer != nil {
		runnerOpts = append(runnerOpts, runner.WithObserver(opts.Observer))
	}
	p.runner = runner.New(runnerOpts...)
	return p, nil
}

// Close releases the transforms the pipeline created.
func (p *Pipeline) Close() error {
	if !p.ownsRegistry {
		return nil
	}
	return p.registry.Close()
}

// Run executes t with the pipeline's runner.
func (p *Pipeline) Run(ctx context.Context, t runner.Task) error {
	return p.runner.Run(ctx, t)
}

// Tasks returns every named task.
func (p *Pipeline) Tasks() map[string]runner.Task {
	tasks := []runner.Task{
		p.Clean(), p.Style(), p.Script(), p.Page(), p.Image(), p.Font(),
		p.Extra(), p.Serve(), p.Useref(),
		p.Compile(), p.Build(), p.Develop(),
	}
	out := make(map[string]runner.Task, len(tasks))
	for _, t := range tasks {
		out[t.Name()] = t
	}
	return out
}

// Compile is parallel(style, script, page).
func (p *Pipeline) Compile() runner.Task {
	return runner.Parallel(TaskCompile, p.Style(), p.Script(), p.Page())
}

// Build is series(clean, parallel(series(compile, useref), image, font, extra)).
func (p *Pipeline) Build() runner.Task {
	return runner.Series(TaskBuild,
		p.Clean(),
		runner.Parallel("build:assets",
			runner.Series("build:pages", p.Compile(), p.Useref()),
			p.Image(),
			p.Font(),
			p.Extra(),
		),
	)
}

// Develop is series(compile, serve).
func (p *Pipeline) Develop() runner.Task {
	return runner.Series(TaskDevelop, p.Compile(), p.Serve())
}

func (p *Pipeline) setReloader(r Reloader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reloader = r
}

func (p *Pipeline) reload(files []*fileset.File) {
	p.mu.RLock()
	r := p.reloader
	p.mu.RUnlock()
	if r == nil || len(files) == 0 {
		return
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	r.Reload(paths...)
}

// stream reads glob under base, applies the named transforms and writes the
// result under dest. An empty glob makes the step a no-op.
func (p *Pipeline) stream(ctx context.Context, task, base, glob, dest string, transforms ...string) ([]*fileset.File, error) {
	if glob == "" {
		p.logger.Info("No glob configured; skipping", logfields.Task(task))
		return nil, nil
	}
	files, err := fileset.Src(ctx, base, glob)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		p.logger.Debug("No files matched", logfields.Task(task), logfields.Glob(glob), logfields.Path(base))
		return nil, nil
	}
	out, err := p.registry.Apply(ctx, files, transforms...)
	if err != nil {
		return nil, err
	}
	if err := fileset.Dest(ctx, dest, out); err != nil {
		return nil, err
	}
	p.recorder.AddFilesWritten(task, len(out))
	p.logger.Debug("Wrote files",
		logfields.Task(task),
		logfields.Files(len(out)),
		logfields.Dest(dest))
	return out, nil
}
