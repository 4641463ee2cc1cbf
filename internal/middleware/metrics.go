// Package middleware provides HTTP middleware shared by the gateway and services.
package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/postboard/service_layer/internal/metrics"
)

// MetricsMiddleware records HTTP metrics for each request, labelled by route template.
func MetricsMiddleware(serviceName string) mux.MiddlewareFunc {
	return metrics.Middleware(serviceName)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
