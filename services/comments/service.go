// Package comments implements the comment store. Creating and deleting
// comments requires a token validated by the auth service; the comment
// author is always the validated username.
package comments

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/postboard/service_layer/internal/httputil"
	"github.com/postboard/service_layer/internal/logging"
	"github.com/postboard/service_layer/internal/serviceauth"
	commonservice "github.com/postboard/service_layer/services/common/service"
)

const (
	ServiceID   = "comments"
	ServiceName = "Comment Service"
	Version     = "1.0.0"
)

// Service stores comments and authorizes their mutation.
type Service struct {
	*commonservice.BaseService
	store     Store
	validator serviceauth.TokenValidator
}

// Config configures the comment store.
type Config struct {
	Logger     *logging.Logger
	DB         *sqlx.DB
	Store      Store
	AuthURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Validator  serviceauth.TokenValidator
}

// New creates a new comment service.
func New(cfg Config) (*Service, error) {
	store := cfg.Store
	var sqlStore *SQLStore
	if store == nil {
		if cfg.DB == nil {
			return nil, errors.New("comments service requires a database or store")
		}
		sqlStore = NewSQLStore(cfg.DB)
		store = sqlStore
	}
	if cfg.Validator == nil && cfg.AuthURL == "" {
		return nil, errors.New("comments service requires an auth URL")
	}

	base := commonservice.NewBase(&commonservice.BaseConfig{
		ID:      ServiceID,
		Name:    ServiceName,
		Version: Version,
		Logger:  cfg.Logger,
		DB:      cfg.DB,
	})
	if sqlStore != nil {
		base.WithHydrate(sqlStore.Migrate)
	}

	validator := cfg.Validator
	if validator == nil {
		auth := httputil.NewServiceClient(httputil.ServiceClientConfig{
			Service:    "auth",
			BaseURL:    cfg.AuthURL,
			Timeout:    cfg.Timeout,
			HTTPClient: cfg.HTTPClient,
		})
		validator = serviceauth.NewClient(auth, base.Logger())
	}

	s := &Service{BaseService: base, store: store, validator: validator}
	base.WithStats(s.stats)

	base.RegisterStandardRoutes()
	s.registerRoutes()

	return s, nil
}

func (s *Service) registerRoutes() {
	router := s.Router()
	router.HandleFunc("/comments/{post_id}", s.handleList).Methods("GET")
	router.HandleFunc("/comments", s.handleCreate).Methods("POST")
	router.HandleFunc("/comments/{id}", s.handleDelete).Methods("DELETE")
}

func (s *Service) stats() map[string]any {
	total, err := s.store.CountComments(context.Background())
	if err != nil {
		return map[string]any{"comments": "unavailable"}
	}
	return map[string]any{"comments": total}
}
