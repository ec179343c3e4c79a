package commands

import "github.com/licht-dev/licht-compile/internal/pipeline"

// BuildCmd implements the 'build' command.
type BuildCmd struct{}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	return root.runTask(g, pipeline.TaskBuild, nil)
}

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	return root.runTask(g, pipeline.TaskClean, nil)
}

// CompileCmd implements the 'compile' command.
type CompileCmd struct{}

func (c *CompileCmd) Run(g *Global, root *CLI) error {
	return root.runTask(g, pipeline.TaskCompile, nil)
}
