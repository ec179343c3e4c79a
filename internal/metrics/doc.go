// Package metrics provides the observability hooks for task runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder. The CLI wires the Prometheus implementation and the dev
// server exposes it:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	mux.Handle("/__licht/metrics", metrics.HTTPHandler(reg))
package metrics
