package metrics

import "time"

// ResultLabel enumerates task result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for task runs.
type Recorder interface {
	ObserveTaskDuration(task string, d time.Duration)
	IncTaskResult(task string, result ResultLabel)
	AddFilesWritten(task string, n int)
	IncReloads()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)         {}
func (NoopRecorder) AddFilesWritten(string, int)               {}
func (NoopRecorder) IncReloads()                               {}
