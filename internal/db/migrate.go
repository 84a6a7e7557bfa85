package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies all pending migrations to the database at path.
func MigrateUp(path string) error {
	migrator, err := newMigrator(path)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}

// MigrateDown reverts all applied migrations, dropping the users table.
func MigrateDown(path string) error {
	migrator, err := newMigrator(path)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate down failed: %w", err)
	}
	return nil
}

// Reset drops the users table and the migration bookkeeping, then re-applies
// the schema, leaving an empty users table with a fresh id sequence. Tables
// created outside the migrations are dropped too.
func Reset(path string) error {
	conn, err := sql.Open(defaultDBDriver, DSN(path))
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, table := range []string{"users", sqlitemigrate.DefaultMigrationsTable} {
		if _, err := conn.Exec(`DROP TABLE IF EXISTS ` + table); err != nil {
			return fmt.Errorf("drop %s failed: %w", table, err)
		}
	}
	if err := conn.Close(); err != nil {
		return err
	}
	return MigrateUp(path)
}

// newMigrator opens a dedicated connection; closing the migrator closes it.
func newMigrator(path string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations failed: %w", err)
	}

	conn, err := sql.Open(defaultDBDriver, DSN(path))
	if err != nil {
		return nil, err
	}

	driver, err := sqlitemigrate.WithInstance(conn, &sqlitemigrate.Config{})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, defaultDBDriver, driver)
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return migrator, nil
}
