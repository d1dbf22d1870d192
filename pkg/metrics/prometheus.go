package metrics

import (
	"FraudGuard/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	assessments  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	anomalyScore prometheus.Histogram
	lastScore    prometheus.Gauge
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		assessments: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudguard_assessments_total",
				Help: "Total number of risk assessments produced",
			},
			[]string{"risk_level"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudguard_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		anomalyScore: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fraudguard_anomaly_score",
				Help:    "Distribution of anomaly scores returned by the model",
				Buckets: prometheus.LinearBuckets(-0.5, 0.1, 11),
			},
		),
		lastScore: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fraudguard_last_anomaly_score",
				Help: "Most recent anomaly score",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fraudguard_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAssessment counts a completed assessment by risk level.
func (r *Recorder) RecordAssessment(level models.RiskLevel) {
	r.assessments.WithLabelValues(string(level)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordAnomalyScore tracks the model score distribution.
func (r *Recorder) RecordAnomalyScore(score float64) {
	r.anomalyScore.Observe(score)
	r.lastScore.Set(score)
}

// RecordLatency records the duration of an operation in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
