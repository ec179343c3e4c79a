package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	taskDuration *prom.HistogramVec
	taskResults  *prom.CounterVec
	filesWritten *prom.CounterVec
	reloads      prom.Counter
}

// NewPrometheusRecorder constructs and registers the task metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "licht",
			Name:      "task_duration_seconds",
			Help:      "Duration of individual pipeline tasks",
			Buckets:   prom.DefBuckets,
		}, []string{"task"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "licht",
			Name:      "task_results_total",
			Help:      "Task result counts by outcome",
		}, []string{"task", "result"}),
		filesWritten: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "licht",
			Name:      "files_written_total",
			Help:      "Files written by each task",
		}, []string{"task"}),
		reloads: prom.NewCounter(prom.CounterOpts{
			Namespace: "licht",
			Name:      "livereload_broadcasts_total",
			Help:      "Live reload notifications sent to browsers",
		}),
	}
	reg.MustRegister(pr.taskDuration, pr.taskResults, pr.filesWritten, pr.reloads)
	return pr
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	if p == nil {
		return
	}
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(task string, result ResultLabel) {
	if p == nil {
		return
	}
	p.taskResults.WithLabelValues(task, string(result)).Inc()
}

func (p *PrometheusRecorder) AddFilesWritten(task string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.filesWritten.WithLabelValues(task).Add(float64(n))
}

func (p *PrometheusRecorder) IncReloads() {
	if p == nil {
		return
	}
	p.reloads.Inc()
}
