package proximity

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBuildPhase("forward", time.Second)
		m.AddIsochrones("forward", 3)
		m.ObserveUpdate(time.Millisecond, 10)
		m.IncSkipped("source")
	})
	assert.Nil(t, m.Gatherer())
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	assert.Equal(t, reg, m.Gatherer())

	_, err = NewMetrics(reg)
	assert.Error(t, err)

	m.AddIsochrones("reverse", 4)
	m.ObserveUpdate(time.Millisecond, 10)
	m.ObserveUpdate(time.Millisecond, 5)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.IsochronesTotal.WithLabelValues("reverse")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.AffectedNodesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpdatesApplied))
}

func TestBuildBaselineMetrics(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	net := randomNetwork(t, 2, 10, 4, 6, 40)
	categories, err := NewCategorySet("parks")
	require.NoError(t, err)
	_, err = BuildBaseline(t.Context(), net, NewPOITable(net, categories), Counts{1}, 3, WithMetrics(m))
	require.NoError(t, err)
	assert.Equal(t, 10.0, testutil.ToFloat64(m.IsochronesTotal.WithLabelValues("forward")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.IsochronesTotal.WithLabelValues("reverse")))
}
