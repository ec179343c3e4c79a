package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
	"github.com/licht-dev/licht-compile/internal/logfields"
	"github.com/licht-dev/licht-compile/internal/metrics"
)

type runIDKey struct{}

// RunID returns the identifier of the run executing ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Runner executes task trees.
type Runner struct {
	logger    *slog.Logger
	observers []Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger; defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithObserver adds an observer notified around every leaf task.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// WithRecorder reports task durations and outcomes to rec.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.observers = append(r.observers, recorderObserver{rec: rec})
		}
	}
}

// New constructs a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes t under a fresh run ID. In a parallel composite the first
// failure cancels the context of the sibling branches and is returned once
// every branch has stopped.
func (r *Runner) Run(ctx context.Context, t Task) error {
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, runIDKey{}, runID)
	logger := r.logger.With(logfields.RunID(runID))

	logger.Info("Starting", logfields.Task(t.name))
	t0 := time.Now()
	err := r.exec(ctx, logger, t)
	dur := time.Since(t0)
	if err != nil {
		logger.Error("Failed", logfields.Task(t.name), logfields.DurationMS(float64(dur.Milliseconds())), logfields.Error(err))
		return err
	}
	logger.Info("Finished", logfields.Task(t.name), logfields.DurationMS(float64(dur.Milliseconds())))
	return nil
}

func (r *Runner) exec(ctx context.Context, logger *slog.Logger, t Task) error {
	switch t.kind {
	case KindSeries:
		for _, c := range t.children {
			if err := r.exec(ctx, logger, c); err != nil {
				return err
			}
		}
		return nil
	case KindParallel:
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range t.children {
			g.Go(func() error { return r.exec(gctx, logger, c) })
		}
		return g.Wait()
	default:
		return r.execFunc(ctx, logger, t)
	}
}

func (r *Runner) execFunc(ctx context.Context, logger *slog.Logger, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, o := range r.observers {
		o.OnTaskStart(t.name)
	}
	logger.Debug("Task started", logfields.Task(t.name))

	t0 := time.Now()
	err := t.fn(ctx)
	dur := time.Since(t0)

	for _, o := range r.observers {
		o.OnTaskComplete(t.name, dur, err)
	}
	if err != nil {
		return wrapTaskError(t.name, err)
	}
	logger.Info("Task finished", logfields.Task(t.name), logfields.DurationMS(float64(dur.Milliseconds())))
	return nil
}

func wrapTaskError(name string, err error) error {
	if ferrors.IsClassified(err) || ctxErr(err) {
		return fmt.Errorf("task %s: %w", name, err)
	}
	return ferrors.TaskError("task failed").WithCause(err).WithContext("task", name).Build()
}

func ctxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
