package commands

import (
	"fmt"

	"github.com/licht-dev/licht-compile/internal/pipeline"
	"github.com/licht-dev/licht-compile/internal/runner"
)

// TasksCmd prints the composition of the entry tasks.
type TasksCmd struct{}

func (t *TasksCmd) Run(g *Global, root *CLI) error {
	p, err := pipeline.New(root.resolveConfig(), pipeline.Options{Root: root.Cwd})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	tasks := p.Tasks()
	for _, name := range []string{pipeline.TaskBuild, pipeline.TaskDevelop, pipeline.TaskClean} {
		fmt.Fprint(g.Out, runner.Describe(tasks[name]))
	}
	return nil
}
