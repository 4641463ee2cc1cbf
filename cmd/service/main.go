// Package main is the entry point for every backend service. The service is
// selected by the SERVICE_TYPE environment variable.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/postboard/service_layer/internal/config"
	"github.com/postboard/service_layer/internal/database"
	"github.com/postboard/service_layer/internal/logging"
	"github.com/postboard/service_layer/internal/server"
	"github.com/postboard/service_layer/services/auth"
	"github.com/postboard/service_layer/services/comments"
	"github.com/postboard/service_layer/services/posts"
	"github.com/postboard/service_layer/services/render"
	"github.com/postboard/service_layer/services/storage"
)

// ServiceRunner is implemented by every backend service.
type ServiceRunner interface {
	http.Handler
	Start(ctx context.Context) error
	Stop() error
}

var availableServices = []string{
	config.ServiceAuth, config.ServiceStorage, config.ServicePosts,
	config.ServiceComments, config.ServiceRender,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.ServiceType == "" {
		fmt.Fprintf(os.Stderr, "SERVICE_TYPE environment variable required. Available services: %v\n", availableServices)
		os.Exit(1)
	}

	logger := logging.New(cfg.ServiceType, cfg.LogLevel, cfg.LogFormat)
	if err := run(context.Background(), cfg, logger); err != nil {
		logger.WithError(err).Fatal("service exited")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	if !cfg.Services.IsEnabled(cfg.ServiceType) {
		logger.Infof("service %s is disabled in configuration, exiting", cfg.ServiceType)
		return nil
	}
	if err := cfg.Validate(cfg.ServiceType); err != nil {
		return err
	}

	svc, cleanup, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start %s: %w", cfg.ServiceType, err)
	}

	port, err := cfg.ListenPort(cfg.ServiceType)
	if err != nil {
		return err
	}

	return server.Run(ctx, server.Config{
		Port:            port,
		Handler:         svc,
		Logger:          logger,
		ShutdownTimeout: cfg.ShutdownTimeout,
		OnShutdown: func() {
			if err := svc.Stop(); err != nil {
				logger.WithError(err).Warn("service stop")
			}
		},
	})
}

// buildService wires the selected service. cleanup releases the database.
func buildService(ctx context.Context, cfg *config.Config, logger *logging.Logger) (ServiceRunner, func(), error) {
	cleanup := func() {}

	openDB := func() (*sqlx.DB, error) {
		db, err := database.Open(ctx, database.Config{
			Driver: cfg.DBDriver,
			DSN:    cfg.DatabaseDSN(cfg.ServiceType),
		})
		if err != nil {
			return nil, err
		}
		cleanup = func() { db.Close() }
		return db, nil
	}

	var (
		svc ServiceRunner
		err error
	)
	switch cfg.ServiceType {
	case config.ServiceAuth:
		var db *sqlx.DB
		if db, err = openDB(); err != nil {
			return nil, cleanup, err
		}
		svc, err = auth.New(auth.Config{
			Logger:   logger,
			DB:       db,
			Secret:   []byte(cfg.JWTSecret),
			TokenTTL: cfg.TokenTTL,
		})
	case config.ServiceStorage:
		var db *sqlx.DB
		if db, err = openDB(); err != nil {
			return nil, cleanup, err
		}
		svc, err = storage.New(storage.Config{Logger: logger, DB: db})
	case config.ServiceComments:
		var db *sqlx.DB
		if db, err = openDB(); err != nil {
			return nil, cleanup, err
		}
		authURL, urlErr := cfg.ServiceURL(config.ServiceAuth)
		if urlErr != nil {
			return nil, cleanup, urlErr
		}
		svc, err = comments.New(comments.Config{
			Logger:  logger,
			DB:      db,
			AuthURL: authURL,
			Timeout: cfg.HTTPTimeout,
		})
	case config.ServicePosts:
		storageURL, urlErr := cfg.ServiceURL(config.ServiceStorage)
		if urlErr != nil {
			return nil, cleanup, urlErr
		}
		authURL, urlErr := cfg.ServiceURL(config.ServiceAuth)
		if urlErr != nil {
			return nil, cleanup, urlErr
		}
		svc, err = posts.New(posts.Config{
			Logger:     logger,
			StorageURL: storageURL,
			AuthURL:    authURL,
			Timeout:    cfg.HTTPTimeout,
		})
	case config.ServiceRender:
		svc, err = render.New(render.Config{Logger: logger})
	default:
		return nil, cleanup, fmt.Errorf("unknown service %q, available: %v", cfg.ServiceType, availableServices)
	}
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("create %s: %w", cfg.ServiceType, err)
	}
	return svc, cleanup, nil
}
