// Package metrics provides Prometheus instrumentation for the trigger engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EvaluationsTotal counts evaluations by strategy and outcome kind.
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trigger_evaluations_total",
		Help: "Total strategy evaluations",
	}, []string{"strategy", "outcome"})

	// EvaluationLatency tracks homomorphic evaluation time per strategy.
	EvaluationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trigger_evaluation_latency_seconds",
		Help:    "Homomorphic evaluation latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"strategy"})

	// InFlight tracks evaluations holding an admission slot.
	InFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trigger_evaluations_in_flight",
		Help: "Evaluations currently running",
	})

	// AdmissionRejections counts evaluations refused by admission control.
	AdmissionRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trigger_admission_rejections_total",
		Help: "Evaluations rejected because no slot freed up in time",
	})

	// RevealsTotal counts trust boundary decryptions by outcome.
	RevealsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trigger_reveals_total",
		Help: "Trust boundary decryptions",
	}, []string{"outcome"})

	// JobsTotal counts asynchronous jobs processed by workers.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trigger_jobs_total",
		Help: "Asynchronous evaluation jobs by final status",
	}, []string{"status"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trigger_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trigger_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
