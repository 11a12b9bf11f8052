package obs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.Dispatch("ok")
	m.Dispatch("ok")
	m.Dispatch("no_collector")
	m.RouteLookup("hit")
	m.ProviderCall("ok", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatch.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatch.WithLabelValues("no_collector")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.routeLookup.WithLabelValues("hit")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.provider))
}

func TestMetricsReuseRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	first.Transition("completed", "ok")
	second.Transition("completed", "ok")
	assert.Equal(t, 2.0, testutil.ToFloat64(second.transitions.WithLabelValues("completed", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Dispatch("ok")
		m.Transition("completed", "ok")
		m.RouteLookup("miss")
		m.ProviderCall("error", time.Second)
		m.Notification("resident", "sent")
	})
}
