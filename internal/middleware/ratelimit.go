package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/internal/httputil"
	"github.com/postboard/service_layer/internal/logging"
)

// KeyFunc derives the limiter bucket for a request.
type KeyFunc func(r *http.Request) string

// RejectFunc writes the response for a throttled request.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err *svcerrors.ServiceError)

// RateLimiter provides per-key token bucket rate limiting.
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	keyFn    KeyFunc
	rejectFn RejectFunc
	logger   *logging.Logger
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with the given burst
// per key. Keys default to the authenticated user ID, falling back to client IP.
func NewRateLimiter(requestsPerSecond float64, burst int, logger *logging.Logger) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		keyFn:    defaultKey,
		rejectFn: func(w http.ResponseWriter, r *http.Request, err *svcerrors.ServiceError) {
			httputil.WriteServiceError(w, r, err)
		},
		logger: logger,
	}
}

// WithKeyFunc overrides how requests are bucketed.
func (rl *RateLimiter) WithKeyFunc(fn KeyFunc) *RateLimiter {
	if fn != nil {
		rl.keyFn = fn
	}
	return rl
}

// WithRejectFunc overrides the throttled response (the gateway flashes instead of JSON).
func (rl *RateLimiter) WithRejectFunc(fn RejectFunc) *RateLimiter {
	if fn != nil {
		rl.rejectFn = fn
	}
	return rl
}

// Allow reports whether a request for key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFn(r)
		if !rl.Allow(key) {
			rl.logger.LogSecurityEvent(r.Context(), "rate_limit_exceeded", map[string]interface{}{
				"key":    key,
				"path":   r.URL.Path,
				"method": r.Method,
			})
			rl.rejectFn(w, r, svcerrors.RateLimitExceeded(int(rl.rate), "1s"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup drops limiters idle for longer than the idle TTL.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.idleTTL)
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func defaultKey(r *http.Request) string {
	if userID := logging.GetUserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return "ip:" + ClientIP(r)
}

// ClientIP returns the remote address without its port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
