package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	require.NotNil(t, registry)
	require.NotNil(t, registry.PrometheusRegistry())
	require.NotNil(t, registry.CoreMetrics())
}

func TestRegistry_RegisterCounter(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "test counter",
	})

	err := registry.RegisterCounter("subscription", "test_counter_total", counter)
	assert.NoError(t, err)

	// Duplicate registration under the same key is rejected
	err = registry.RegisterCounter("subscription", "test_counter_total", counter)
	assert.Error(t, err)
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "test gauge",
	})

	require.NoError(t, registry.RegisterGauge("gateway", "test_gauge", gauge))

	assert.True(t, registry.Unregister("gateway", "test_gauge"))
	assert.False(t, registry.Unregister("gateway", "test_gauge"))

	// Can re-register after unregistering
	assert.NoError(t, registry.RegisterGauge("gateway", "test_gauge", gauge))
}

func TestMetrics_Recorders(t *testing.T) {
	registry := NewRegistry()
	m := registry.CoreMetrics()

	// Recorders must not panic and must accept the documented label values
	m.RecordFetch("page", nil, 0)
	m.RecordFetch("feed", assert.AnError, 0)
	m.RecordDiscovery("feed", true)
	m.RecordDiscovery("hub", false)
	m.RecordSubscribeAttempt("subscribe")
	m.RecordSubscribeOutcome("subscribe", "abandoned")
	m.RecordNotification("processed")
	m.RecordEntry("skipped")
	m.RecordActivityCreated()
	m.RecordError("gateway", "signature_mismatch")
	m.RecordNATSStatus(true)
	m.RecordNATSReconnect()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
