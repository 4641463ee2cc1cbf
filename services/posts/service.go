// Package posts implements the post orchestrator: it authorizes mutations
// through the auth service and forwards them to storage.
package posts

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/postboard/service_layer/internal/httputil"
	"github.com/postboard/service_layer/internal/logging"
	"github.com/postboard/service_layer/internal/serviceauth"
	commonservice "github.com/postboard/service_layer/services/common/service"
)

const (
	ServiceID   = "posts"
	ServiceName = "Post Orchestrator"
	Version     = "1.0.0"
)

// Service forwards post operations to storage after validating tokens.
type Service struct {
	*commonservice.BaseService
	storage   *httputil.ServiceClient
	auth      *httputil.ServiceClient
	validator serviceauth.TokenValidator
}

// Config configures the orchestrator.
type Config struct {
	Logger     *logging.Logger
	StorageURL string
	AuthURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Validator overrides the auth-service validator (tests).
	Validator serviceauth.TokenValidator
}

// New creates a new post orchestrator.
func New(cfg Config) (*Service, error) {
	if cfg.StorageURL == "" || cfg.AuthURL == "" {
		return nil, errors.New("posts service requires storage and auth URLs")
	}

	base := commonservice.NewBase(&commonservice.BaseConfig{
		ID:      ServiceID,
		Name:    ServiceName,
		Version: Version,
		Logger:  cfg.Logger,
	})

	storage := httputil.NewServiceClient(httputil.ServiceClientConfig{
		Service:    "storage",
		BaseURL:    cfg.StorageURL,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
	})
	auth := httputil.NewServiceClient(httputil.ServiceClientConfig{
		Service:    "auth",
		BaseURL:    cfg.AuthURL,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
	})

	validator := cfg.Validator
	if validator == nil {
		validator = serviceauth.NewClient(auth, base.Logger())
	}

	s := &Service{
		BaseService: base,
		storage:     storage,
		auth:        auth,
		validator:   validator,
	}

	base.AddHealthCheck("storage", func(ctx context.Context) error { return storage.CheckHealth(ctx) })
	base.AddHealthCheck("auth", func(ctx context.Context) error { return auth.CheckHealth(ctx) })

	base.RegisterStandardRoutes()
	s.registerRoutes()

	return s, nil
}

func (s *Service) registerRoutes() {
	router := s.Router()
	router.HandleFunc("/", s.handleList).Methods("GET")
	router.HandleFunc("/create", s.handleCreate).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}", s.handleGet).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}/edit", s.handleEdit).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}/delete", s.handleDelete).Methods("DELETE")
}
