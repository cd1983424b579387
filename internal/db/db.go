package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_time_format=sqlite"

// Connect opens and pings a database. For sqlite the URL is a file path and
// the pool is pinned to one connection.
func Connect(ctx context.Context, driver, databaseURL string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres:
		db, err := sqlx.ConnectContext(ctx, DriverPostgres, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, nil
	case DriverSQLite:
		return connectSQLite(ctx, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func connectSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += sqlitePragmas

	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Exists runs an EXISTS query and treats no rows as false.
func Exists(ctx context.Context, ex Executor, query string, args ...interface{}) (bool, error) {
	var exists bool
	err := ex.GetContext(ctx, &exists, ex.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return exists, err
}
