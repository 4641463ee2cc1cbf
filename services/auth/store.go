package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/postboard/service_layer/internal/database"
	svcerrors "github.com/postboard/service_layer/internal/errors"
)

// User is a stored account.
type User struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
}

// Store persists users.
type Store interface {
	// CreateUser returns a CONFLICT error when the username is taken.
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)
	// GetUserByUsername returns (nil, nil) when no such user exists.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// SQLStore is the sqlx-backed Store.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Schema returns the users table DDL for driver.
func Schema(driver string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			` + database.AutoIncrementPK(driver) + `,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		)`,
	}
}

// Migrate creates the users table.
func (s *SQLStore) Migrate(ctx context.Context) error {
	return database.Migrate(ctx, s.db, Schema(s.db.DriverName()))
}

func (s *SQLStore) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		query := conn.Rebind(`INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id`)
		return conn.QueryRowxContext(ctx, query, username, passwordHash).Scan(&id)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, svcerrors.Conflict("User already exists")
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		query := conn.Rebind(`SELECT id, username, password_hash FROM users WHERE username = ?`)
		return conn.GetContext(ctx, &user, query, username)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
