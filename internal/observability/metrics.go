package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	Predictions    *prometheus.CounterVec // labels: source={remote,local}, level={None,...,Extreme}
	InvalidInputs  prometheus.Counter
	FallbackUsed   prometheus.Counter
	Measurements   prometheus.Counter
	StoreErrors    *prometheus.CounterVec // labels: operation
	EventsDropped  prometheus.Counter
	PublisherReady prometheus.Gauge

	// Remote predictor metrics.
	PredictorRequests *prometheus.CounterVec // labels: outcome={success,error}
	PredictorCache    *prometheus.CounterVec // labels: result={hit,miss}
	PredictorDuration prometheus.Histogram

	// Event publishing metrics.
	EventsPublished         prometheus.Counter
	PublishErrors           prometheus.Counter
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blast",
			Name:      "predictions_total",
			Help:      "Predictions served by source and damage level.",
		}, []string{"source", "level"}),
		InvalidInputs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blast",
			Name:      "invalid_inputs_total",
			Help:      "Requests rejected for invalid numeric or required input.",
		}),
		FallbackUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blast",
			Name:      "prediction_fallback_total",
			Help:      "Predictions answered by the local estimator after a remote failure.",
		}),
		Measurements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blast",
			Name:      "measurements_saved_total",
			Help:      "Field measurements stored.",
		}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blast",
			Name:      "store_errors_total",
			Help:      "Persistence failures by operation.",
		}, []string{"operation"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blast",
			Name:      "events_dropped_total",
			Help:      "Prediction events dropped because the publish queue was full.",
		}),
		PublisherReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blast",
			Name:      "publisher_running",
			Help:      "1 when the event publisher is active, 0 when shut down.",
		}),
		PredictorRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blast",
			Name:      "predictor_requests_total",
			Help:      "Remote predictor requests by outcome.",
		}, []string{"outcome"}),
		PredictorCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blast",
			Name:      "predictor_cache_total",
			Help:      "Remote predictor cache lookups by result.",
		}, []string{"result"}),
		PredictorDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blast",
			Name:      "predictor_request_duration_seconds",
			Help:      "Remote predictor request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blast",
			Name:      "events_published_total",
			Help:      "Prediction events written to the event topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blast",
			Name:      "publish_errors_total",
			Help:      "Failed batch writes to the event topic.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blast",
			Name:      "publish_batch_size",
			Help:      "Number of prediction events per published batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blast",
			Name:      "publish_batch_duration_seconds",
			Help:      "Duration of a complete extract-transform-load publishing cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Predictions,
		m.InvalidInputs,
		m.FallbackUsed,
		m.Measurements,
		m.StoreErrors,
		m.EventsDropped,
		m.PublisherReady,
		m.PredictorRequests,
		m.PredictorCache,
		m.PredictorDuration,
		m.EventsPublished,
		m.PublishErrors,
		m.BatchSize,
		m.BatchProcessingDuration,
	}
}
