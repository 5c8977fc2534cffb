package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/nexus/pkg/engine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the database and run until interrupted",
	Long: `serve opens the data directory, starts any configured replication
role, and blocks until SIGINT/SIGTERM, so replica streaming and metrics
collection keep running in the background without a client attached.
Compaction is not run in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		db, err := engine.Open(cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		fmt.Printf("nexus serving from %s (replication role: %s)\n", cfg.DataDir, cfg.Repl.Role)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		fmt.Println("shutting down...")
		return nil
	},
}
