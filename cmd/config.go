package cmd

import (
	"github.com/usermgmt/usersvc/config"
)

// loadConfig reads the environment and applies command line overrides.
func loadConfig() config.Config {
	cfg := config.LoadConfig()
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg
}
