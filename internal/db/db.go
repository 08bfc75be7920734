package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Open connects to a PostgreSQL DSN or a SQLite path and reports which
// driver it chose.
func Open(dsn string) (*sql.DB, string, error) {
	driver, source := DriverFor(dsn)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, "", err
	}
	if driver == DriverSQLite {
		// one writer at a time; concurrent workers queue on the pool
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, "", err
		}
		return db, driver, nil
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, driver, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// hasTable reports whether table exists in the default schema.
func hasTable(ctx context.Context, db *sql.DB, driver, table string) (bool, error) {
	q := `SELECT COUNT(*) FROM information_schema.tables
          WHERE table_schema = current_schema() AND table_name = $1`
	if driver == DriverSQLite {
		q = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}
	var n int
	if err := db.QueryRowContext(ctx, q, table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
