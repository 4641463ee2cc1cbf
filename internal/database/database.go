// Package database opens the per-service SQL database and provides scoped
// connection helpers shared by the stores.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const pingTimeout = 5 * time.Second

// Config selects the driver and data source.
type Config struct {
	Driver string
	DSN    string
	// MaxOpenConns caps the pool; zero keeps the driver default
	// (sqlite is always capped at one writer).
	MaxOpenConns int
}

// Open connects and pings the database.
func Open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverSQLite, DriverPostgres, DriverPGX:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := Ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// WithConn acquires a dedicated connection for the duration of fn and
// releases it on every exit path.
func WithConn(ctx context.Context, db *sqlx.DB, fn func(conn *sqlx.Conn) error) error {
	conn, err := db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// Ping checks connectivity with a bounded timeout.
func Ping(ctx context.Context, db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	return WithConn(ctx, db, func(conn *sqlx.Conn) error {
		if err := conn.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		return nil
	})
}

// AutoIncrementPK returns the primary key column definition for the driver.
func AutoIncrementPK(driver string) string {
	if isPostgres(driver) {
		return "id BIGSERIAL PRIMARY KEY"
	}
	return "id INTEGER PRIMARY KEY AUTOINCREMENT"
}

// IsUniqueViolation reports whether err is a unique constraint failure on any
// supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// TotalPages returns the number of pages needed for total rows.
func TotalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
