// Package server runs an HTTP handler until SIGINT/SIGTERM and shuts it down
// gracefully.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/postboard/service_layer/internal/logging"
)

// Config controls the listener and shutdown behaviour.
type Config struct {
	Port            int
	Handler         http.Handler
	Logger          *logging.Logger
	ShutdownTimeout time.Duration
	// OnShutdown runs after the listener is closed.
	OnShutdown func()
}

// New builds the http.Server with the timeouts used by every binary.
func New(cfg Config) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      cfg.Handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func Run(ctx context.Context, cfg Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on %d: %w", cfg.Port, err)
	}
	return Serve(ctx, ln, cfg)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, ln net.Listener, cfg Config) error {
	srv := New(cfg)
	errCh := make(chan error, 1)
	go func() {
		cfg.Logger.WithField("addr", ln.Addr().String()).Info("listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	cfg.Logger.Info("shutting down")
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if cfg.OnShutdown != nil {
		cfg.OnShutdown()
	}
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	cfg.Logger.Info("stopped")
	return nil
}
