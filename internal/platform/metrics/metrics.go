package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics shared across the gateway.
type Metrics struct {
	// Query outcomes by query type and result.
	QueryOutcomes *prometheus.CounterVec

	// Bureau fetch latency by dataset (summary, obligations, payments).
	BureauFetchLatency *prometheus.HistogramVec

	// Quota rejections by entity plan limit bucket.
	QuotaRejections prometheus.Counter

	// Computed score distribution.
	ScoreDistribution prometheus.Histogram

	// HTTP request latency by route.
	RequestLatency *prometheus.HistogramVec
}

// New creates and registers all gateway metrics.
func New() *Metrics {
	return &Metrics{
		QueryOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "burogate_query_outcomes_total",
			Help: "Credit data query attempts by query type and outcome",
		}, []string{"query_type", "outcome"}),

		BureauFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "burogate_bureau_fetch_duration_seconds",
			Help:    "Duration of bureau data source fetches by dataset",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"dataset"}),

		QuotaRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "burogate_quota_rejections_total",
			Help: "Queries rejected because the monthly quota was exhausted",
		}),

		ScoreDistribution: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "burogate_score_total",
			Help:    "Distribution of computed credit scores",
			Buckets: []float64{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000},
		}),

		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "burogate_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
	}
}

// ObserveQueryOutcome records one authorization decision.
func (m *Metrics) ObserveQueryOutcome(queryType, outcome string) {
	if m != nil {
		m.QueryOutcomes.WithLabelValues(queryType, outcome).Inc()
	}
}

// ObserveBureauFetch records the duration of one bureau dataset fetch.
func (m *Metrics) ObserveBureauFetch(dataset string, d time.Duration) {
	if m != nil {
		m.BureauFetchLatency.WithLabelValues(dataset).Observe(d.Seconds())
	}
}

// IncrementQuotaRejections counts a quota-exhausted rejection.
func (m *Metrics) IncrementQuotaRejections() {
	if m != nil {
		m.QuotaRejections.Inc()
	}
}

// ObserveScore records a computed total score.
func (m *Metrics) ObserveScore(total int) {
	if m != nil {
		m.ScoreDistribution.Observe(float64(total))
	}
}
