package commands

import (
	"github.com/licht-dev/licht-compile/internal/config"
	"github.com/licht-dev/licht-compile/internal/pipeline"
)

// DevelopCmd compiles once and then serves with live reload.
type DevelopCmd struct {
	Port int `short:"p" help:"Dev server port (overrides server.port)"`
}

func (d *DevelopCmd) Run(g *Global, root *CLI) error {
	return root.runTask(g, pipeline.TaskDevelop, withPort(d.Port))
}

// ServeCmd serves the current output without compiling first.
type ServeCmd struct {
	Port int `short:"p" help:"Dev server port (overrides server.port)"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	return root.runTask(g, pipeline.TaskServe, withPort(s.Port))
}

func withPort(port int) func(*config.BuildConfig) {
	if port == 0 {
		return nil
	}
	return func(cfg *config.BuildConfig) { cfg.Server.Port = port }
}
