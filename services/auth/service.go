// Package auth implements the account and credential token service.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/postboard/service_layer/internal/logging"
	commonservice "github.com/postboard/service_layer/services/common/service"
)

const (
	ServiceID   = "auth"
	ServiceName = "Auth Service"
	Version     = "1.0.0"

	// TokenIssuer is the iss claim of every token this service signs.
	TokenIssuer = "postboard-auth"
)

// Service implements register, login and token validation.
type Service struct {
	*commonservice.BaseService
	store  Store
	tokens *TokenManager
}

// Config configures the auth service. Secret is required.
type Config struct {
	Logger   *logging.Logger
	DB       *sqlx.DB
	Store    Store // optional override of the DB-backed store
	Secret   []byte
	TokenTTL time.Duration
	// Now overrides the clock used to issue and verify tokens.
	Now func() time.Time
}

// New creates a new auth service.
func New(cfg Config) (*Service, error) {
	tokens, err := NewTokenManager(cfg.Secret, cfg.TokenTTL, TokenIssuer, cfg.Now)
	if err != nil {
		return nil, err
	}

	store := cfg.Store
	var sqlStore *SQLStore
	if store == nil {
		if cfg.DB == nil {
			return nil, errors.New("auth service requires a database or store")
		}
		sqlStore = NewSQLStore(cfg.DB)
		store = sqlStore
	}

	base := commonservice.NewBase(&commonservice.BaseConfig{
		ID:      ServiceID,
		Name:    ServiceName,
		Version: Version,
		Logger:  cfg.Logger,
		DB:      cfg.DB,
	})
	if sqlStore != nil {
		base.WithHydrate(func(ctx context.Context) error {
			return sqlStore.Migrate(ctx)
		})
	}

	s := &Service{
		BaseService: base,
		store:       store,
		tokens:      tokens,
	}

	base.RegisterStandardRoutes()
	s.registerRoutes()

	return s, nil
}

func (s *Service) registerRoutes() {
	router := s.Router()
	router.HandleFunc("/register", s.handleRegister).Methods("POST")
	router.HandleFunc("/login", s.handleLogin).Methods("POST")
	router.HandleFunc("/validate", s.handleValidate).Methods("POST")
}
