package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/postboard/service_layer/internal/logging"
)

// LoggingMiddleware assigns a trace ID (reusing an inbound X-Trace-ID), echoes it on
// the response and writes one access-log line per request.
func LoggingMiddleware(logger *logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := r.Header.Get(logging.TraceIDHeader)
			if traceID == "" {
				traceID = logging.NewTraceID()
			}

			ctx := logging.WithTraceID(r.Context(), traceID)
			r = r.WithContext(ctx)
			w.Header().Set(logging.TraceIDHeader, traceID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logger.LogRequest(ctx, r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
		})
	}
}
