package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/kudibooks/kudibooks/internal/jobs"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	codegenAttempts  *prometheus.CounterVec
	codegenConflicts *prometheus.CounterVec
	codegenExhausted *prometheus.CounterVec
	invoiceSaves     *prometheus.CounterVec
	jobs             *jobmetrics.Metrics
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kudibooks_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kudibooks_http_request_duration_seconds",
		Help:    "HTTP request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kudibooks_codegen_attempts_total",
		Help: "Code generation transactions started, by entity kind.",
	}, []string{"kind"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kudibooks_codegen_conflicts_total",
		Help: "Code generation attempts that hit a concurrency conflict.",
	}, []string{"kind"})
	exhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kudibooks_codegen_exhausted_total",
		Help: "Code generations that gave up after the retry budget.",
	}, []string{"kind"})
	saves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kudibooks_invoice_saves_total",
		Help: "Invoice save outcomes.",
	}, []string{"result"})
	registry.MustRegister(requests, duration, attempts, conflicts, exhausted, saves)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		codegenAttempts:  attempts,
		codegenConflicts: conflicts,
		codegenExhausted: exhausted,
		invoiceSaves:     saves,
		jobs:             jobmetrics.NewMetrics(registry),
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Jobs returns the background job collectors sharing this registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// CodegenAttempt counts one code generation transaction.
func (m *Metrics) CodegenAttempt(kind string) {
	if m == nil {
		return
	}
	m.codegenAttempts.WithLabelValues(kind).Inc()
}

// CodegenConflict counts one retried conflict.
func (m *Metrics) CodegenConflict(kind string) {
	if m == nil {
		return
	}
	m.codegenConflicts.WithLabelValues(kind).Inc()
}

// CodegenExhausted counts one generation that ran out of attempts.
func (m *Metrics) CodegenExhausted(kind string) {
	if m == nil {
		return
	}
	m.codegenExhausted.WithLabelValues(kind).Inc()
}

// InvoiceSave records the outcome of an invoice mutation: ok, invalid or error.
func (m *Metrics) InvoiceSave(result string) {
	if m == nil {
		return
	}
	m.invoiceSaves.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
