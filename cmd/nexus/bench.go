package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/nexus/pkg/engine"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Create N nodes and report throughput",
	Long: `bench opens a database, runs --nodes single-node CREATE statements
back to back, and reports writes/sec. It's a smoke test for the storage
and WAL write path, not a substitute for a real workload benchmark.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("nodes")

		db, err := engine.Open(cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		ctx := context.Background()
		start := time.Now()
		for i := 0; i < n; i++ {
			if _, err := db.Query(ctx, "CREATE (n:BenchNode {seq: $seq})", map[string]any{"seq": i}); err != nil {
				return fmt.Errorf("create node %d: %w", i, err)
			}
		}
		elapsed := time.Since(start)

		fmt.Printf("created %d nodes in %s (%.0f writes/sec)\n", n, elapsed, float64(n)/elapsed.Seconds())
		return nil
	},
}

func init() {
	benchCmd.Flags().Int("nodes", 10000, "Number of nodes to create")
}
