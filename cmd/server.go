/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/usermgmt/usersvc/internal/logging"
	"github.com/usermgmt/usersvc/internal/server"
)

var serverPort int

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the user management HTTP server",
	Long: `Starts the user management HTTP server. Pending schema migrations are
applied on startup. Usage:

	usersvc server --port 8080
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if serverPort != 0 {
			cfg.ServerPort = serverPort
		}
		logger := logging.New(cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to start server")
			os.Exit(1)
		}
		if err := srv.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "HTTP port (overrides SERVER_PORT)")
}
