package db

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// DriverFor picks the database/sql driver for dsn and returns the data
// source string that driver expects. sqlite:// URLs, file: URIs, :memory:
// and paths ending in .sqlite, .sqlite3 or .db go to SQLite.
func DriverFor(dsn string) (driver, source string) {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "sqlite://"):
		return DriverSQLite, dsn[len("sqlite://"):]
	case strings.HasPrefix(lower, "file:"), lower == ":memory:":
		return DriverSQLite, dsn
	}
	path := lower
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, ext := range []string{".sqlite", ".sqlite3", ".db"} {
		if strings.HasSuffix(path, ext) && !strings.Contains(lower, "://") {
			return DriverSQLite, dsn
		}
	}
	return DriverPostgres, dsn
}

// WithDBName returns a DSN identical to the input but with the database path replaced.
// Supports postgres:// and postgresql:// schemes.
func WithDBName(dsn, database string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("empty DSN")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		// allow missing scheme by prefixing postgres://
		if !strings.Contains(dsn, "://") {
			dsn = "postgres://" + dsn
			u, err = url.Parse(dsn)
			if err != nil {
				return "", err
			}
		} else {
			return "", fmt.Errorf("unsupported DSN scheme %q", u.Scheme)
		}
	}
	if !strings.HasPrefix(database, "/") {
		u.Path = "/" + database
	} else {
		u.Path = database
	}
	return u.String(), nil
}

var placeholder = regexp.MustCompile(`\$\d+`)

// rebind rewrites $n placeholders for SQLite. Queries must use each
// placeholder once, in order.
func rebind(driver, q string) string {
	if driver != DriverSQLite {
		return q
	}
	return placeholder.ReplaceAllString(q, "?")
}
