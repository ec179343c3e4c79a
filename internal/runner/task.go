// Package runner composes named tasks in series and in parallel and executes
// the resulting tree with logging, observers and metrics.
package runner

import (
	"context"
	"fmt"
	"strings"
)

// Kind distinguishes leaf tasks from composites.
type Kind int

const (
	KindFunc Kind = iota
	KindSeries
	KindParallel
)

func (k Kind) String() string {
	switch k {
	case KindSeries:
		return "series"
	case KindParallel:
		return "parallel"
	default:
		return "task"
	}
}

// Task is an immutable node of a task tree.
type Task struct {
	name     string
	kind     Kind
	fn       func(ctx context.Context) error
	children []Task
}

// Func declares a leaf task.
func Func(name string, fn func(ctx context.Context) error) Task {
	return Task{name: name, kind: KindFunc, fn: fn}
}

// Series declares a composite whose children run one after another; a child
// starts only after the previous one completed successfully.
func Series(name string, tasks ...Task) Task {
	return Task{name: name, kind: KindSeries, children: tasks}
}

// Parallel declares a composite whose children start together; it completes
// once every child has completed.
func Parallel(name string, tasks ...Task) Task {
	return Task{name: name, kind: KindParallel, children: tasks}
}

// Name returns the task name.
func (t Task) Name() string { return t.name }

// Leaves returns the names of all leaf tasks in declaration order.
func (t Task) Leaves() []string {
	if t.kind == KindFunc {
		return []string{t.name}
	}
	var out []string
	for _, c := range t.children {
		out = append(out, c.Leaves()...)
	}
	return out
}

// Describe renders the task tree, one node per line.
func Describe(t Task) string {
	var b strings.Builder
	describe(&b, t, "", true, true)
	return b.String()
}

func describe(b *strings.Builder, t Task, prefix string, last, root bool) {
	label := t.name
	if t.kind != KindFunc {
		label = fmt.Sprintf("%s (%s)", t.name, t.kind)
	}
	childPrefix := prefix
	if root {
		b.WriteString(label + "\n")
	} else {
		branch := "├── "
		childPrefix += "│   "
		if last {
			branch = "└── "
			childPrefix = prefix + "    "
		}
		b.WriteString(prefix + branch + label + "\n")
	}
	for i, c := range t.children {
		describe(b, c, childPrefix, i == len(t.children)-1, false)
	}
}
