package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polisai/sourcemark/pkg/domain"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Locator metrics
	locateTotal    *prometheus.CounterVec
	locateDuration prometheus.Histogram
	cacheLookups   *prometheus.CounterVec

	// Rule annotation metrics
	annotatedRules *prometheus.CounterVec

	// Configuration reload metrics
	configReloads *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics instance on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcemark_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sourcemark_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		locateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcemark_locate_total",
				Help: "Total number of excerpt lookups by the tier that located them",
			},
			[]string{"tier"},
		),

		locateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sourcemark_locate_duration_seconds",
				Help:    "Excerpt lookup latency in seconds",
				Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .05, .1, .5},
			},
		),

		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcemark_cache_lookups_total",
				Help: "Highlight cache lookups by result",
			},
			[]string{"result"},
		),

		annotatedRules: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcemark_annotated_rules_total",
				Help: "Total number of rules annotated by the tier that located their source text",
			},
			[]string{"tier"},
		),

		configReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcemark_config_reloads_total",
				Help: "Total number of configuration reload attempts by status",
			},
			[]string{"status"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.locateTotal,
		m.locateDuration,
		m.cacheLookups,
		m.annotatedRules,
		m.configReloads,
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordLocate records the outcome of one excerpt lookup
func (m *Metrics) RecordLocate(tier domain.Tier, duration time.Duration) {
	m.locateTotal.WithLabelValues(string(tier)).Inc()
	m.locateDuration.Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordAnnotatedRule records one annotated rule
func (m *Metrics) RecordAnnotatedRule(tier domain.Tier) {
	m.annotatedRules.WithLabelValues(string(tier)).Inc()
}

// RecordConfigReload records a configuration reload attempt
func (m *Metrics) RecordConfigReload(status string) {
	m.configReloads.WithLabelValues(status).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware creates HTTP middleware that records request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.RecordHTTPRequest(r.Method, EndpointName(r.URL.Path), strconv.Itoa(wrapped.statusCode), time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// EndpointName extracts a normalized endpoint label from the path
func EndpointName(path string) string {
	switch path {
	case "/health":
		return "health"
	case "/metrics":
		return "metrics"
	case "/v1/highlight":
		return "highlight"
	case "/v1/highlight/lines":
		return "highlight_lines"
	case "/v1/rules/annotate":
		return "annotate"
	case "/v1/diff":
		return "diff"
	default:
		return "unknown"
	}
}
