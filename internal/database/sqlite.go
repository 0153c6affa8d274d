package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	_ "modernc.org/sqlite" // registers the pure-Go "sqlite" driver
)

// NewSQLiteDB opens the SQLite file at path. SQLite allows one writer at a time, so
// the pool is capped at a single connection and busy waits are delegated to the
// driver.
func NewSQLiteDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error pinging sqlite database: %w", err)
	}

	slog.Info("SQLite database opened", "path", path)

	return db, nil
}

// sqliteDSN builds a file: URI for path. The path is percent-encoded so that
// '?', '#' and '%' in a file name stay part of the name.
func sqliteDSN(path string) string {
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}
