package database

import (
	"github.com/jmoiron/sqlx"

	// Registered drivers: "postgres" (lib/pq), "pgx" (pgx stdlib) and "sqlite" (modernc).
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported driver names for DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

func isPostgres(driver string) bool {
	return driver == DriverPostgres || driver == DriverPGX
}
