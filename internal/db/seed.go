package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/usermgmt/usersvc/internal/password"
)

// SampleUser is a fixture row loaded by Seed.
type SampleUser struct {
	Name     string
	Email    string
	Password string
}

// SampleUsers are the accounts loaded by init-db.
var SampleUsers = []SampleUser{
	{Name: "John Doe", Email: "john@example.com", Password: "password123"},
	{Name: "Jane Smith", Email: "jane@example.com", Password: "secret456"},
	{Name: "Bob Johnson", Email: "bob@example.com", Password: "qwerty789"},
}

// Seed inserts users in a single transaction, hashing each password first.
func Seed(ctx context.Context, db *sql.DB, hasher *password.Hasher, users []SampleUser) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO users (name, email, password) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range users {
		hash, err := hasher.Hash(u.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		if _, err := stmt.ExecContext(ctx, u.Name, u.Email, hash); err != nil {
			return fmt.Errorf("insert %s: %w", u.Email, err)
		}
	}

	return tx.Commit()
}
