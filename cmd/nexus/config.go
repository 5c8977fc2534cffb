package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/nexus/pkg/config"
)

// loadConfig resolves the effective configuration for a command: a
// --config file if given, falling back to config.Default with --data-dir
// applied on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		return cfg, nil
	}

	cfg := config.Default()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}
