package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "churn"

// Metrics are the service collectors exposed on /metrics.
type Metrics struct {
	CacheLookups     *prometheus.CounterVec
	TrainingDuration prometheus.Histogram
	TrainingFailures prometheus.Counter
	Predictions      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Session cache lookups by cache and result (hit or miss).",
		}, []string{"cache", "result"}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Time spent training the churn model.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		TrainingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_failures_total",
			Help:      "Training runs that ended in an error.",
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "What-if predictions by outcome label.",
		}, []string{"label"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.CacheLookups,
			m.TrainingDuration,
			m.TrainingFailures,
			m.Predictions,
			m.HTTPRequests,
			m.HTTPDuration,
		)
	}
	return m
}

// CacheHit and CacheMiss count one lookup of the named cache.
func (m *Metrics) CacheHit(cache string)  { m.CacheLookups.WithLabelValues(cache, "hit").Inc() }
func (m *Metrics) CacheMiss(cache string) { m.CacheLookups.WithLabelValues(cache, "miss").Inc() }

// ObserveTraining records a finished training run.
func (m *Metrics) ObserveTraining(d time.Duration, err error) {
	if err != nil {
		m.TrainingFailures.Inc()
		return
	}
	m.TrainingDuration.Observe(d.Seconds())
}

// ObservePrediction counts a prediction by its label.
func (m *Metrics) ObservePrediction(label string) { m.Predictions.WithLabelValues(label).Inc() }
