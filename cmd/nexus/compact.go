package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/nexus/pkg/engine"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Run one compaction pass, reporting reclaimable tombstoned node/relationship slots",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")

		db, err := engine.Open(cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if dryRun {
			s, err := db.CompactionPlan()
			if err != nil {
				return err
			}
			fmt.Printf("would reclaim %d nodes, %d relationships (%d -> %d bytes)\n",
				s.NodesReclaimed, s.RelationshipsReclaimed, s.BytesBefore, s.BytesAfter)
			return nil
		}

		s, err := db.Compact()
		if err != nil {
			return err
		}
		fmt.Printf("reclaimed %d nodes, %d relationships (%d -> %d bytes)\n",
			s.NodesReclaimed, s.RelationshipsReclaimed, s.BytesBefore, s.BytesAfter)
		return nil
	},
}

func init() {
	compactCmd.Flags().Bool("dry-run", false, "Report what compaction would reclaim without rewriting")
}
