package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	for _, c := range m.collectors() {
		require.NoError(t, reg.Register(c))
	}

	m.Predictions.WithLabelValues("local", "Minor").Inc()
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues("local", "Minor")), 1e-9)
}

func TestMetrics_Names(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)

	m.EventsPublished.Add(3)
	m.PredictorCache.WithLabelValues("hit").Inc()

	n, err := testutil.GatherAndCount(reg, "blast_events_published_total", "blast_predictor_cache_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
