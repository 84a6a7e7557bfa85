/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/usermgmt/usersvc/internal/db"
	"github.com/usermgmt/usersvc/internal/password"
)

// initDBCmd represents the init-db command
var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Recreate the users table and load sample users",
	Long: `Drops the users table, recreates it from the migrations and inserts
the sample accounts with hashed passwords. All existing users are lost.
Run it while the server is stopped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		if err := db.Reset(cfg.Database.Path); err != nil {
			return err
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := db.Seed(cmd.Context(), conn, password.NewHasher(cfg.BcryptCost), db.SampleUsers); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Database initialized with sample data")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
