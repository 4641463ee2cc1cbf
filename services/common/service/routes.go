package service

import (
	"net/http"
	"time"

	"github.com/postboard/service_layer/internal/httputil"
	"github.com/postboard/service_layer/internal/metrics"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// =============================================================================
// Standard Response Types
// =============================================================================

// HealthResponse is the standard response for /health endpoint.
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// InfoResponse is the standard response for /info endpoint.
type InfoResponse struct {
	Status     string         `json:"status"`
	Service    string         `json:"service"`
	Version    string         `json:"version"`
	Uptime     string         `json:"uptime"`
	Timestamp  string         `json:"timestamp"`
	Statistics map[string]any `json:"statistics,omitempty"`
}

// =============================================================================
// Standard Handlers
// =============================================================================

// HealthHandler answers 200 when every check passes and 503 otherwise.
func HealthHandler(s *BaseService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := s.CheckHealth(r.Context())

		resp := HealthResponse{
			Status:    statusHealthy,
			Service:   s.ID(),
			Version:   s.Version(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    report.Checks,
		}
		status := http.StatusOK
		if !report.Healthy {
			resp.Status = statusUnhealthy
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}

// InfoHandler returns a standardized /info handler for BaseService.
// It includes statistics from the registered stats function if available.
func InfoHandler(s *BaseService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := InfoResponse{
			Status:    "active",
			Service:   s.Name(),
			Version:   s.Version(),
			Uptime:    s.Uptime().Round(time.Second).String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		if s.statsFn != nil {
			resp.Statistics = s.statsFn()
		}

		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterStandardRoutes registers /health, /info and /metrics.
func (b *BaseService) RegisterStandardRoutes() {
	router := b.Router()
	router.HandleFunc("/health", HealthHandler(b)).Methods("GET")
	router.HandleFunc("/info", InfoHandler(b)).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
}
