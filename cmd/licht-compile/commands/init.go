package commands

import (
	"fmt"
	"path/filepath"

	"github.com/licht-dev/licht-compile/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if path == "" {
		path = config.FileBaseName + ".yaml"
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root.Cwd, path)
	}
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	fmt.Fprintf(g.Out, "Wrote %s\n", path)
	return nil
}
