// Package service provides common service infrastructure shared by every
// backend service and the gateway.
package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/postboard/service_layer/internal/database"
	"github.com/postboard/service_layer/internal/logging"
	"github.com/postboard/service_layer/internal/middleware"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// BaseConfig contains shared configuration for all services.
type BaseConfig struct {
	ID      string
	Name    string
	Version string
	Logger  *logging.Logger
	// DB, when set, registers a "database" health check.
	DB *sqlx.DB
	// OnPanic renders the response after a recovered panic; nil writes JSON.
	OnPanic middleware.PanicHandler
}

// BaseService owns the router, middleware stack, health checks and lifecycle.
// It provides:
// - Safe stop channel management (sync.Once prevents double-close panic)
// - Optional hydration hook (schema migration) run on Start
// - Background worker management
// - Statistics provider for the /info endpoint
type BaseService struct {
	id      string
	name    string
	version string
	router  *mux.Router
	logger  *logging.Logger
	db      *sqlx.DB

	// Lifecycle management
	stopCh   chan struct{}
	stopOnce sync.Once

	// Extensibility hooks
	hydrate func(context.Context) error
	statsFn func() map[string]any

	// Worker management
	workers []func(context.Context)

	healthMu  sync.RWMutex
	checks    map[string]HealthCheck
	startTime time.Time
}

// NewBase constructs a BaseService and installs the recovery, logging and
// metrics middleware.
func NewBase(cfg *BaseConfig) *BaseService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(cfg.ID, "info", "json")
	}

	b := &BaseService{
		id:      cfg.ID,
		name:    cfg.Name,
		version: cfg.Version,
		router:  mux.NewRouter(),
		logger:  logger,
		db:      cfg.DB,
		stopCh:  make(chan struct{}),
		checks:  make(map[string]HealthCheck),
	}

	b.router.Use(
		middleware.RecoveryMiddleware(logger, cfg.OnPanic),
		middleware.LoggingMiddleware(logger),
		middleware.MetricsMiddleware(cfg.ID),
	)

	if cfg.DB != nil {
		db := cfg.DB
		b.AddHealthCheck("database", func(ctx context.Context) error {
			return database.Ping(ctx, db)
		})
	}
	return b
}

func (b *BaseService) ID() string                { return b.id }
func (b *BaseService) Name() string              { return b.name }
func (b *BaseService) Version() string           { return b.version }
func (b *BaseService) Router() *mux.Router       { return b.router }
func (b *BaseService) Logger() *logging.Logger   { return b.logger }
func (b *BaseService) DB() *sqlx.DB              { return b.db }
func (b *BaseService) StopChan() <-chan struct{} { return b.stopCh }

// WithHydrate sets an optional hydrate hook executed during Start, before
// background workers are launched. Stores use it to apply their schema.
func (b *BaseService) WithHydrate(fn func(context.Context) error) *BaseService {
	b.hydrate = fn
	return b
}

// WithStats sets a statistics provider function for the /info endpoint.
func (b *BaseService) WithStats(fn func() map[string]any) *BaseService {
	b.statsFn = fn
	return b
}

// AddWorker registers a background worker started after hydrate completes.
// Workers should return when ctx is done or StopChan() closes.
func (b *BaseService) AddWorker(fn func(context.Context)) *BaseService {
	b.workers = append(b.workers, fn)
	return b
}

// AddHealthCheck registers a named dependency probe for /health.
func (b *BaseService) AddHealthCheck(name string, check HealthCheck) *BaseService {
	b.healthMu.Lock()
	b.checks[name] = check
	b.healthMu.Unlock()
	return b
}

// Start runs hydrate once, then spins workers.
func (b *BaseService) Start(ctx context.Context) error {
	b.healthMu.Lock()
	if b.startTime.IsZero() {
		b.startTime = time.Now()
	}
	b.healthMu.Unlock()

	if b.hydrate != nil {
		if err := b.hydrate(ctx); err != nil {
			return fmt.Errorf("hydrate: %w", err)
		}
	}

	for _, w := range b.workers {
		worker := w
		go worker(ctx)
	}
	b.logger.WithContext(ctx).WithField("workers", len(b.workers)).Info("service started")
	return nil
}

// Stop signals workers. Calling it more than once is safe.
func (b *BaseService) Stop() error {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
	return nil
}

// WorkerCount returns the number of registered workers.
func (b *BaseService) WorkerCount() int {
	return len(b.workers)
}

// HealthReport is the result of running every registered check.
type HealthReport struct {
	Healthy bool
	Checks  map[string]string
}

// CheckHealth runs all checks concurrently with a bounded timeout. The
// service is healthy only if every check passes.
func (b *BaseService) CheckHealth(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	b.healthMu.RLock()
	names := make([]string, 0, len(b.checks))
	for name := range b.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]HealthCheck, len(names))
	for i, name := range names {
		checks[i] = b.checks[name]
	}
	b.healthMu.RUnlock()

	results := make([]error, len(names))
	var g errgroup.Group
	for i := range names {
		i := i
		g.Go(func() error {
			results[i] = checks[i](ctx)
			return nil
		})
	}
	_ = g.Wait()

	report := HealthReport{Healthy: true, Checks: make(map[string]string, len(names))}
	for i, name := range names {
		if results[i] != nil {
			report.Healthy = false
			report.Checks[name] = statusUnhealthy
			b.logger.WithContext(ctx).WithError(results[i]).WithField("check", name).Warn("health check failed")
			continue
		}
		report.Checks[name] = statusHealthy
	}
	return report
}

// Uptime returns time since Start.
func (b *BaseService) Uptime() time.Duration {
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()
	if b.startTime.IsZero() {
		return 0
	}
	return time.Since(b.startTime)
}

// ServeHTTP lets a BaseService be mounted directly (tests, httptest servers).
func (b *BaseService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}
