package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Execer is satisfied by *sql.DB, *sqlx.DB and their Conn types.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Migrate applies idempotent schema statements in order. Statements must be
// safe to re-run (CREATE ... IF NOT EXISTS).
func Migrate(ctx context.Context, db Execer, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
