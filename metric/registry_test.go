package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	r := NewMetricsRegistry()

	require.NotNil(t, r.PrometheusRegistry())
	require.NotNil(t, r.CoreMetrics())

	// Core metrics must be gatherable out of the box.
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRegister_Component(t *testing.T) {
	r := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_alarms_emitted_total",
		Help: "test counter",
	})

	require.NoError(t, r.Register("executor", "alarms_emitted", counter))

	counter.Add(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(counter))
}

func TestRegister_DuplicateRejected(t *testing.T) {
	r := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "h"})
	require.NoError(t, r.Register("executor", "dup", first))

	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup2_total", Help: "h"})
	err := r.Register("executor", "dup", second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegister_SameNameDifferentComponents(t *testing.T) {
	r := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "a_total", Help: "h"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "b_total", Help: "h"})

	require.NoError(t, r.Register("executor", "events", first))
	require.NoError(t, r.Register("publisher", "events", second))
}

func TestUnregister(t *testing.T) {
	r := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_total", Help: "h"})
	require.NoError(t, r.Register("executor", "gone", counter))

	assert.True(t, r.Unregister("executor", "gone"))
	assert.False(t, r.Unregister("executor", "gone"))

	// Name is free for re-registration after unregister.
	again := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_total", Help: "h"})
	assert.NoError(t, r.Register("executor", "gone", again))
}

func TestCoreMetrics_Recorders(t *testing.T) {
	m := NewMetrics()

	m.RecordComponentStatus("executor", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ComponentStatus.WithLabelValues("executor")))

	m.RecordMessageReceived("executor", "properties")
	m.RecordMessageReceived("executor", "properties")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.MessagesReceived.WithLabelValues("executor", "properties")))

	m.RecordMessageProcessed("executor", "properties", "success")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MessagesProcessed.WithLabelValues("executor", "properties", "success")))

	m.RecordMessagePublished("publisher", "alarm.p1.d1.a1")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MessagesPublished.WithLabelValues("publisher", "alarm.p1.d1.a1")))

	m.RecordError("executor", "transient")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("executor", "transient")))

	m.RecordHealthStatus("executor", true)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HealthCheckStatus.WithLabelValues("executor")))

	m.RecordBusStatus(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BusConnected))

	m.RecordBusRTT(5 * time.Millisecond)
	assert.Equal(t, float64(5), testutil.ToFloat64(m.BusRTT))

	m.RecordBusReconnect()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BusReconnects))

	m.RecordProcessingDuration("executor", "evaluate", 10*time.Millisecond)
}

func TestServer_Defaults(t *testing.T) {
	s := NewServer(0, "", NewMetricsRegistry())
	assert.Equal(t, "http://localhost:9090/metrics", s.Address())
}

func TestServer_StopWithoutStart(t *testing.T) {
	s := NewServer(0, "", NewMetricsRegistry())
	assert.NoError(t, s.Stop())
}
