package runner

import (
	"context"
	"errors"
	"time"

	"github.com/licht-dev/licht-compile/internal/metrics"
)

// Observer receives callbacks around every leaf task. Callbacks may arrive
// concurrently from parallel branches.
type Observer interface {
	OnTaskStart(task string)
	OnTaskComplete(task string, d time.Duration, err error)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnTaskStart(string)                          {}
func (NoopObserver) OnTaskComplete(string, time.Duration, error) {}

// recorderObserver adapts metrics.Recorder into an Observer.
type recorderObserver struct{ rec metrics.Recorder }

func (r recorderObserver) OnTaskStart(string) {}

func (r recorderObserver) OnTaskComplete(task string, d time.Duration, err error) {
	r.rec.ObserveTaskDuration(task, d)
	r.rec.IncTaskResult(task, resultLabel(err))
}

func resultLabel(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, context.Canceled):
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}
