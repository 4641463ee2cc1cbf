// Package metrics exposes the Prometheus collectors shared by every service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "postboard",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
		[]string{"service"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postboard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "postboard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"service", "method", "path"},
	)

	downstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postboard",
			Subsystem: "downstream",
			Name:      "calls_total",
			Help:      "Total number of calls made to other services.",
		},
		[]string{"target", "method", "status"},
	)

	downstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "postboard",
			Subsystem: "downstream",
			Name:      "call_duration_seconds",
			Help:      "Duration of calls made to other services.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"target"},
	)

	tokenValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postboard",
			Subsystem: "auth",
			Name:      "token_validations_total",
			Help:      "Token validations by outcome (valid, expired, invalid, unavailable).",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		downstreamCalls,
		downstreamDuration,
		tokenValidations,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with HTTP metrics collection labelled by service.
func InstrumentHandler(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		inflight := httpInFlight.WithLabelValues(service)
		inflight.Inc()
		defer inflight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := routePath(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(service, method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
	})
}

// Middleware adapts InstrumentHandler for mux.Router.Use.
func Middleware(service string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return InstrumentHandler(service, next)
	}
}

// RecordDownstreamCall records one outbound service call. status is the HTTP
// status code or "error" for transport failures.
func RecordDownstreamCall(target, method, status string, duration time.Duration) {
	if target == "" {
		target = "unknown"
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	downstreamCalls.WithLabelValues(target, strings.ToUpper(method), status).Inc()
	downstreamDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordTokenValidation counts a token validation outcome.
func RecordTokenValidation(result string) {
	tokenValidations.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// routePath prefers the mux route template so IDs don't explode label cardinality.
func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return canonicalPath(r.URL.Path)
}

// canonicalPath collapses numeric segments into ":id".
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}
