// Package metrics exposes Prometheus instrumentation for the monitor.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"engine-health-monitor/internal/models"
)

const namespace = "engine_health"

type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	assessments       *prometheus.CounterVec
	healthScore       prometheus.Histogram
	remaining         prometheus.Histogram
	predictions       *prometheus.CounterVec
	readingsIngested  prometheus.Counter
	publishErrors     prometheus.Counter
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Total engine assessments by health status and risk level.",
		}, []string{"status", "risk"}),
		healthScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score",
			Help:      "Distribution of overall health scores.",
			Buckets:   []float64{0.3, 0.5, 0.7, 0.85, 1},
		}),
		remaining: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remaining_distance_km",
			Help:      "Distribution of estimated remaining distance before service.",
			Buckets:   prometheus.LinearBuckets(0, 1000, 11),
		}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_predictions_total",
			Help:      "Classifier predictions by outcome (H, F or error).",
		}, []string{"outcome"}),
		readingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Total sensor readings stored.",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total assessment events that failed to publish.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.assessments,
		m.healthScore,
		m.remaining,
		m.predictions,
		m.readingsIngested,
		m.publishErrors,
	)

	return m
}

// Registry returns the registry backing the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request count and latency under route
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAssessment records one evaluated assessment
func (m *Metrics) ObserveAssessment(a *models.HealthAssessment) {
	if m == nil || a == nil {
		return
	}
	m.assessments.WithLabelValues(a.Health.Status, string(a.Maintenance.RiskLevel)).Inc()
	m.healthScore.Observe(a.Health.OverallScore)
	m.remaining.Observe(float64(a.Health.RemainingDistance))
}

// ObservePrediction records a classifier outcome; err takes precedence
func (m *Metrics) ObservePrediction(p models.Prediction, err error) {
	if m == nil {
		return
	}
	outcome := string(p.Condition)
	if err != nil {
		outcome = "error"
	}
	m.predictions.WithLabelValues(outcome).Inc()
}

// ReadingsIngested adds n to the stored readings counter
func (m *Metrics) ReadingsIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.readingsIngested.Add(float64(n))
}

// PublishFailed counts a failed event publish
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}
