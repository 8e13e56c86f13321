package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricFeedRequests        = "feed_requests_total"
	MetricFeedCandidates      = "feed_candidates"
	MetricFeedComposeDuration = "feed_compose_duration_seconds"
)

// Request outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeStorageError = "storage_error"
	OutcomeInvalid      = "invalid"
	OutcomeCanceled     = "canceled"
)

// Metrics contains Prometheus metrics for feed composition.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	candidates      *prometheus.HistogramVec
	composeDuration *prometheus.HistogramVec
}

// NewMetrics creates the feed metrics. Call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedRequests,
				Help: "Total number of feed compositions by feed and outcome",
			},
			[]string{"feed", "outcome"},
		),
		candidates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricFeedCandidates,
				Help:    "Number of candidate posts scored per feed composition",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 to ~16k
			},
			[]string{"feed"},
		),
		composeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricFeedComposeDuration,
				Help:    "Feed composition duration in seconds, storage reads included",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"feed"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all metric collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requests,
		m.candidates,
		m.composeDuration,
	}
}

func (m *Metrics) observe(feed, outcome string, candidates int, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(feed, outcome).Inc()
	m.composeDuration.WithLabelValues(feed).Observe(seconds)
	if outcome == OutcomeSuccess {
		m.candidates.WithLabelValues(feed).Observe(float64(candidates))
	}
}
