// Package storage implements the post persistence service. It has no
// knowledge of users or tokens; callers authorize before reaching it.
package storage

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/postboard/service_layer/internal/logging"
	commonservice "github.com/postboard/service_layer/services/common/service"
)

const (
	ServiceID   = "storage"
	ServiceName = "Storage Service"
	Version     = "1.0.0"
)

// Service implements post CRUD over HTTP.
type Service struct {
	*commonservice.BaseService
	store Store
}

// Config configures the storage service.
type Config struct {
	Logger *logging.Logger
	DB     *sqlx.DB
	Store  Store // optional override of the DB-backed store
}

// New creates a new storage service.
func New(cfg Config) (*Service, error) {
	store := cfg.Store
	var sqlStore *SQLStore
	if store == nil {
		if cfg.DB == nil {
			return nil, errors.New("storage service requires a database or store")
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
		base.WithHydrate(sqlStore.Migrate)
	}

	s := &Service{BaseService: base, store: store}
	base.WithStats(s.stats)

	base.RegisterStandardRoutes()
	s.registerRoutes()

	return s, nil
}

func (s *Service) registerRoutes() {
	router := s.Router()
	router.HandleFunc("/posts", s.handleListPosts).Methods("GET")
	router.HandleFunc("/posts", s.handleCreatePost).Methods("POST")
	router.HandleFunc("/posts/{id}", s.handleGetPost).Methods("GET")
	router.HandleFunc("/posts/{id}", s.handleUpdatePost).Methods("PUT")
	router.HandleFunc("/posts/{id}", s.handleDeletePost).Methods("DELETE")
}

func (s *Service) stats() map[string]any {
	total, err := s.store.CountPosts(context.Background())
	if err != nil {
		return map[string]any{"posts": "unavailable"}
	}
	return map[string]any{"posts": total}
}
