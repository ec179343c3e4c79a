// Package commands defines the CLI shared by the licht-compile and
// licht-pages executables.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/licht-dev/licht-compile/internal/config"
	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
	"github.com/licht-dev/licht-compile/internal/metrics"
	"github.com/licht-dev/licht-compile/internal/pipeline"
	"github.com/licht-dev/licht-compile/internal/version"
)

// Global holds state shared by every command.
type Global struct {
	Out      io.Writer
	Metrics  *prom.Registry
	Recorder metrics.Recorder
}

// CLI definition & global flags.
type CLI struct {
	Cwd     string           `name:"cwd" help:"Project directory" default:"." type:"existingdir"`
	Config  string           `short:"c" help:"Project config file (default: licht-compile.config.{yaml,yml,json,lua} in --cwd)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Sass    string           `name:"sass" help:"Dart Sass executable" env:"LICHT_SASS"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Clean, compile, bundle and copy the site into dist"`
	Develop DevelopCmd `cmd:"" help:"Compile and serve the site with live reload"`
	Clean   CleanCmd   `cmd:"" help:"Remove dist and temp"`
	Compile CompileCmd `cmd:"" help:"Compile styles, scripts and pages into temp"`
	Serve   ServeCmd   `cmd:"" help:"Serve temp, dist and public with live reload"`
	Tasks   TasksCmd   `cmd:"" help:"Print the task tree"`
	Init    InitCmd    `cmd:"" help:"Write a default project config file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// resolveConfig loads the project config for --cwd.
func (c *CLI) resolveConfig() *config.BuildConfig {
	return config.Resolve(c.Cwd, c.Config)
}

// runTask resolves the config, builds the pipeline and runs the named task
// until it completes or the process is interrupted.
func (c *CLI) runTask(g *Global, name string, adjust func(*config.BuildConfig)) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := c.resolveConfig()
	if adjust != nil {
		cfg = cfg.Clone()
		adjust(cfg)
	}
	p, err := pipeline.New(cfg, pipeline.Options{
		Root:       c.Cwd,
		SassBinary: c.Sass,
		Recorder:   g.Recorder,
		Metrics:    g.Metrics,
		Logger:     slog.Default(),
	})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "resolve project directory").
			WithContext("path", c.Cwd).
			Build()
	}
	defer func() {
		if err := p.Close(); err != nil {
			slog.Warn("Failed to release transforms", "error", err)
		}
	}()

	task, ok := p.Tasks()[name]
	if !ok {
		return ferrors.InternalError(fmt.Sprintf("unknown task %q", name)).Build()
	}
	return p.Run(ctx, task)
}

// Execute parses args and runs the selected command. It returns the process
// exit code.
func Execute(name string, args []string) int {
	var cli CLI
	reg := prom.NewRegistry()
	g := &Global{
		Out:      os.Stdout,
		Metrics:  reg,
		Recorder: metrics.NewPrometheusRecorder(reg),
	}

	parser, err := kong.New(&cli,
		kong.Name(name),
		kong.Description("Static site build pipeline: styles, scripts, templates, images and a live-reloading dev server."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		var parseErr *kong.ParseError
		if errors.As(err, &parseErr) {
			_ = parseErr.Context.PrintUsage(true)
		}
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", name, err)
		return 2
	}

	if err := kctx.Run(g); err != nil {
		adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		adapter.Report(err)
		return adapter.ExitCodeFor(err)
	}
	return 0
}
