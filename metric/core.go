package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "alarmstreams"

// Metrics holds the platform-level metrics shared by all components.
// Domain metrics (alarm counts, suppression windows) live with the
// components that own them.
type Metrics struct {
	ComponentStatus    *prometheus.GaugeVec
	MessagesReceived   *prometheus.CounterVec
	MessagesProcessed  *prometheus.CounterVec
	MessagesPublished  *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
	HealthCheckStatus  *prometheus.GaugeVec

	BusConnected  prometheus.Gauge
	BusRTT        prometheus.Gauge
	BusReconnects prometheus.Counter
}

// NewMetrics creates all platform metrics, unregistered.
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "component",
				Name:      "status",
				Help:      "Component status (0=created, 1=initialized, 2=running, 3=stopped, 4=failed)",
			},
			[]string{"component"},
		),

		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total number of messages received",
			},
			[]string{"component", "type"},
		),

		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "processed_total",
				Help:      "Total number of messages processed",
			},
			[]string{"component", "type", "status"},
		),

		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "published_total",
				Help:      "Total number of messages published",
			},
			[]string{"component", "subject"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Message processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "operation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		BusConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "connected",
				Help:      "Event bus connection status (0=disconnected, 1=connected)",
			},
		),

		BusRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "rtt_milliseconds",
				Help:      "Event bus round-trip time in milliseconds",
			},
		),

		BusReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "reconnects_total",
				Help:      "Total number of event bus reconnections",
			},
		),
	}
}

// RecordComponentStatus updates the component status gauge.
func (m *Metrics) RecordComponentStatus(component string, status int) {
	m.ComponentStatus.WithLabelValues(component).Set(float64(status))
}

// RecordMessageReceived increments the received counter.
func (m *Metrics) RecordMessageReceived(component, messageType string) {
	m.MessagesReceived.WithLabelValues(component, messageType).Inc()
}

// RecordMessageProcessed increments the processed counter.
func (m *Metrics) RecordMessageProcessed(component, messageType, status string) {
	m.MessagesProcessed.WithLabelValues(component, messageType, status).Inc()
}

// RecordMessagePublished increments the published counter.
func (m *Metrics) RecordMessagePublished(component, subject string) {
	m.MessagesPublished.WithLabelValues(component, subject).Inc()
}

// RecordProcessingDuration records processing time.
func (m *Metrics) RecordProcessingDuration(component, operation string, d time.Duration) {
	m.ProcessingDuration.WithLabelValues(component, operation).Observe(d.Seconds())
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHealthStatus updates the health gauge.
func (m *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordBusStatus updates the event bus connection gauge.
func (m *Metrics) RecordBusStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.BusConnected.Set(value)
}

// RecordBusRTT updates the event bus round-trip time gauge.
func (m *Metrics) RecordBusRTT(rtt time.Duration) {
	m.BusRTT.Set(float64(rtt.Milliseconds()))
}

// RecordBusReconnect increments the reconnection counter.
func (m *Metrics) RecordBusReconnect() {
	m.BusReconnects.Inc()
}
