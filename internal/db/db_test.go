package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/usermgmt/usersvc/config"
	"github.com/usermgmt/usersvc/internal/password"
	"golang.org/x/crypto/bcrypt"
)

func openMigrated(t *testing.T) (string, config.Config) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.db")
	if err := MigrateUp(path); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	return path, config.Config{Database: config.DatabaseConfig{Path: path}}
}

func countUsers(t *testing.T, cfg config.Config) int {
	t.Helper()
	conn, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(1) FROM users`).Scan(&n); err != nil {
		t.Fatalf("count users: %v", err)
	}
	return n
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		prefix string
	}{
		{"plain path", "data/users.db", "data/users.db?"},
		{"blank path", "  ", "users.db?"},
		{"uri with params", "file:users.db?cache=shared", "file:users.db?cache=shared&"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.path)
			if !strings.HasPrefix(got, tt.prefix) {
				t.Fatalf("DSN(%q) = %q, want prefix %q", tt.path, got, tt.prefix)
			}
			if !strings.Contains(got, "_busy_timeout=5000") {
				t.Fatalf("DSN(%q) = %q, missing busy timeout", tt.path, got)
			}
		})
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	path, cfg := openMigrated(t)
	if err := MigrateUp(path); err != nil {
		t.Fatalf("second migrate up: %v", err)
	}
	if n := countUsers(t, cfg); n != 0 {
		t.Fatalf("expected empty table, got %d rows", n)
	}
}

func TestSeedAndReset(t *testing.T) {
	path, cfg := openMigrated(t)
	hasher := password.NewHasher(bcrypt.MinCost)

	conn, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Seed(context.Background(), conn, hasher, SampleUsers); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var stored string
	if err := conn.QueryRow(`SELECT password FROM users WHERE email = ?`, "john@example.com").Scan(&stored); err != nil {
		t.Fatalf("load hash: %v", err)
	}
	if stored == "password123" || !hasher.Verify("password123", stored) {
		t.Fatalf("expected a bcrypt digest of the sample password, got %q", stored)
	}
	_ = conn.Close()

	if n := countUsers(t, cfg); n != len(SampleUsers) {
		t.Fatalf("expected %d rows, got %d", len(SampleUsers), n)
	}

	if err := Reset(path); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n := countUsers(t, cfg); n != 0 {
		t.Fatalf("expected empty table after reset, got %d rows", n)
	}
}

func TestResetDropsUntrackedTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	cfg := config.Config{Database: config.DatabaseConfig{Path: path}}

	conn, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := conn.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, email TEXT NOT NULL UNIQUE, password TEXT NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO users (name, email, password) VALUES (?, ?, ?)`, "John Doe", "john@example.com", "plain"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_ = conn.Close()

	if err := Reset(path); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n := countUsers(t, cfg); n != 0 {
		t.Fatalf("expected empty table after reset, got %d rows", n)
	}

	conn, err = Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := Seed(context.Background(), conn, password.NewHasher(bcrypt.MinCost), SampleUsers); err != nil {
		t.Fatalf("seed after reset: %v", err)
	}

	var firstID int64
	if err := conn.QueryRow(`SELECT MIN(id) FROM users`).Scan(&firstID); err != nil {
		t.Fatalf("min id: %v", err)
	}
	if firstID != 1 {
		t.Fatalf("expected ids to restart at 1, got %d", firstID)
	}
}

func TestSeedRollsBackOnDuplicate(t *testing.T) {
	_, cfg := openMigrated(t)
	conn, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	dup := []SampleUser{
		{Name: "A", Email: "same@example.com", Password: "abcdef"},
		{Name: "B", Email: "same@example.com", Password: "abcdef"},
	}
	if err := Seed(context.Background(), conn, password.NewHasher(bcrypt.MinCost), dup); err == nil {
		t.Fatalf("expected duplicate email to fail")
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(1) FROM users`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected rollback to leave no rows, got %d", n)
	}
}

func TestMigrateDownDropsTable(t *testing.T) {
	path, cfg := openMigrated(t)
	if err := MigrateDown(path); err != nil {
		t.Fatalf("migrate down: %v", err)
	}

	conn, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(`SELECT 1 FROM users`); err == nil {
		t.Fatalf("expected users table to be gone")
	}
}
