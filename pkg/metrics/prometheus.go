package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisionsTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	riskScore      prometheus.Histogram
	lastRiskScore  prometheus.Gauge
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		decisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditgate_decisions_total",
				Help: "Total number of settled decisions by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditgate_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		riskScore: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "creditgate_risk_score",
				Help:    "Distribution of computed risk scores",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		lastRiskScore: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "creditgate_last_risk_score",
				Help: "Most recently computed risk score",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "creditgate_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDecision records a settled decision outcome.
func (r *Recorder) RecordDecision(outcome string) {
	r.decisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordRiskScore records a computed risk score.
func (r *Recorder) RecordRiskScore(score float64) {
	r.riskScore.Observe(score)
	r.lastRiskScore.Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
