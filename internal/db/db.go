package db

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/usermgmt/usersvc/config"
)

const (
	defaultDBDriver     = "sqlite3"
	defaultDBPath       = "users.db"
	defaultPingTimeout  = 5 * time.Second
	defaultBusyTimeout  = 5000
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 10
)

// Open opens (or creates) the SQLite database file named by cfg and verifies it
// is reachable. The schema is managed separately by MigrateUp.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open(defaultDBDriver, DSN(cfg.Database.Path))
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(defaultConnMaxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLife)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetMaxOpenConns(defaultMaxOpenConns)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// DSN builds a go-sqlite3 connection string for path. Pragmas are passed as
// connection parameters so every pooled connection gets them.
func DSN(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultDBPath
	}

	params := url.Values{}
	params.Set("_busy_timeout", strconv.Itoa(defaultBusyTimeout))
	params.Set("_foreign_keys", "on")
	params.Set("_journal_mode", "WAL")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

// Ping reports whether the database answers within the default timeout.
func Ping(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("nil db")
	}
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}
