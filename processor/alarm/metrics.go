package alarm

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/alarmstreams/metric"
)

// pipelineMetrics holds Prometheus metrics for one alarm executor.
type pipelineMetrics struct {
	rowsIn            *prometheus.CounterVec
	rowsMatched       *prometheus.CounterVec
	windowsClosed     *prometheus.CounterVec
	rowsSuppressed    *prometheus.CounterVec
	duplicatesDropped prometheus.Counter
	recordsEmitted    prometheus.Counter
	publishErrors     prometheus.Counter
	reloads           prometheus.Counter
	processingLatency prometheus.Histogram
}

// newPipelineMetrics creates and registers executor metrics. Nil registry
// means no metrics (nil receiver methods are safe).
func newPipelineMetrics(registry *metric.MetricsRegistry, ruleID string) *pipelineMetrics {
	if registry == nil {
		return nil
	}

	labels := prometheus.Labels{"rule": ruleID}
	m := &pipelineMetrics{
		rowsIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "alarmstreams",
			Subsystem:   "pipeline",
			Name:        "rows_in_total",
			Help:        "Rows entering the pipeline per trigger kind",
			ConstLabels: labels,
		}, []string{"kind"}),

		rowsMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "alarmstreams",
			Subsystem:   "pipeline",
			Name:        "rows_matched_total",
			Help:        "Rows matched by each trigger query",
			ConstLabels: labels,
		}, []string{"trigger"}),

		windowsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "alarmstreams",
			Subsystem:   "shake",
			Name:        "windows_closed_total",
			Help:        "Closed shake-limit windows",
			ConstLabels: labels,
		}, []string{"scope"}),

		rowsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "alarmstreams",
			Subsystem:   "shake",
			Name:        "rows_suppressed_total",
			Help:        "Rows collapsed into shake-limit windows",
			ConstLabels: labels,
		}, []string{"scope"}),

		duplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "alarmstreams",
			Subsystem:   "dedup",
			Name:        "dropped_total",
			Help:        "Rows dropped by correlation-id deduplication",
			ConstLabels: labels,
		}),

		recordsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "alarmstreams",
			Subsystem:   "pipeline",
			Name:        "records_emitted_total",
			Help:        "Finalized alarm records forwarded to the output",
			ConstLabels: labels,
		}),

		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "alarmstreams",
			Subsystem:   "publish",
			Name:        "errors_total",
			Help:        "Failed event bus publishes",
			ConstLabels: labels,
		}),

		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "alarmstreams",
			Subsystem:   "pipeline",
			Name:        "reloads_total",
			Help:        "Successful executor reloads",
			ConstLabels: labels,
		}),

		processingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "alarmstreams",
			Subsystem:   "pipeline",
			Name:        "processing_duration_seconds",
			Help:        "Time from merged row to finalized record",
			Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			ConstLabels: labels,
		}),
	}

	collectors := map[string]prometheus.Collector{
		"rows_in":            m.rowsIn,
		"rows_matched":       m.rowsMatched,
		"windows_closed":     m.windowsClosed,
		"rows_suppressed":    m.rowsSuppressed,
		"duplicates_dropped": m.duplicatesDropped,
		"records_emitted":    m.recordsEmitted,
		"publish_errors":     m.publishErrors,
		"reloads":            m.reloads,
		"processing_latency": m.processingLatency,
	}
	for name, collector := range collectors {
		if err := registry.Register("alarm_"+ruleID, name, collector); err != nil {
			// Metrics are optional. A registration clash (rule restarted
			// with the same id) falls back to unregistered collectors.
			return m
		}
	}
	return m
}

func (m *pipelineMetrics) recordRowIn(kind string) {
	if m != nil {
		m.rowsIn.WithLabelValues(kind).Inc()
	}
}

func (m *pipelineMetrics) recordRowMatched(trigger string) {
	if m != nil {
		m.rowsMatched.WithLabelValues(trigger).Inc()
	}
}

func (m *pipelineMetrics) recordWindowClosed(scope string, suppressed int) {
	if m != nil {
		m.windowsClosed.WithLabelValues(scope).Inc()
		if suppressed > 0 {
			m.rowsSuppressed.WithLabelValues(scope).Add(float64(suppressed))
		}
	}
}

func (m *pipelineMetrics) recordDuplicateDropped() {
	if m != nil {
		m.duplicatesDropped.Inc()
	}
}

func (m *pipelineMetrics) recordEmitted() {
	if m != nil {
		m.recordsEmitted.Inc()
	}
}

func (m *pipelineMetrics) recordPublishError() {
	if m != nil {
		m.publishErrors.Inc()
	}
}

func (m *pipelineMetrics) recordReload() {
	if m != nil {
		m.reloads.Inc()
	}
}

func (m *pipelineMetrics) observeLatency(seconds float64) {
	if m != nil {
		m.processingLatency.Observe(seconds)
	}
}
