// Package metric manages Prometheus metrics for the alarm pipeline.
//
// MetricsRegistry owns a private prometheus.Registry preloaded with
// platform metrics (component status, message counters, processing
// durations, event-bus connection health) plus the Go runtime
// collectors. Components register their own domain metrics through the
// Registrar interface; duplicate names are rejected rather than
// silently merged.
//
// Server exposes the registry over HTTP at /metrics with a /health
// endpoint alongside.
package metric
