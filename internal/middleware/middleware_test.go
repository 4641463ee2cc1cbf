package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/internal/logging"
)

func TestLoggingMiddlewareGeneratesTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithOutput("posts", "info", "json", &buf)

	var seen string
	router := mux.NewRouter()
	router.Use(LoggingMiddleware(logger))
	router.HandleFunc("/posts", func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetTraceID(r.Context())
		w.WriteHeader(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/posts", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(logging.TraceIDHeader))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, seen, line["trace_id"])
	assert.EqualValues(t, http.StatusCreated, line["status"])
}

func TestLoggingMiddlewareReusesInboundTraceID(t *testing.T) {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware(logging.NewNop()))
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upstream-trace", logging.GetTraceID(r.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(logging.TraceIDHeader, "upstream-trace")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "upstream-trace", rec.Header().Get(logging.TraceIDHeader))
}

func TestRecoveryMiddlewareWritesInternalError(t *testing.T) {
	router := mux.NewRouter()
	router.Use(RecoveryMiddleware(logging.NewNop(), nil))
	router.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL")
}

func TestRecoveryMiddlewareCustomHandler(t *testing.T) {
	onPanic := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("error page"))
	}
	h := RecoveryMiddleware(logging.NewNop(), onPanic)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "error page", rec.Body.String())
}

func TestRateLimiterThrottlesPerKey(t *testing.T) {
	rl := NewRateLimiter(1, 2, logging.NewNop())
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:3333"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1111"), "other clients keep their own bucket")
}

func TestRateLimiterCustomReject(t *testing.T) {
	var rejected *svcerrors.ServiceError
	rl := NewRateLimiter(1, 1, logging.NewNop()).
		WithKeyFunc(func(r *http.Request) string { return "shared" }).
		WithRejectFunc(func(w http.ResponseWriter, r *http.Request, err *svcerrors.ServiceError) {
			rejected = err
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		})
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	require.NotNil(t, rejected)
	assert.Equal(t, svcerrors.CodeRateLimited, rejected.Code)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestRateLimiterCleanupDropsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(10, 10, logging.NewNop())
	rl.idleTTL = time.Millisecond
	rl.Allow("a")
	rl.Allow("b")
	time.Sleep(5 * time.Millisecond)

	rl.Cleanup()
	assert.Equal(t, 0, rl.size())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.5:4242"
	assert.Equal(t, "192.0.2.5", ClientIP(req))

	req.RemoteAddr = "not-an-addr"
	assert.Equal(t, "not-an-addr", ClientIP(req))
}
