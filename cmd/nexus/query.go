package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/nexus/pkg/engine"
	"github.com/cuemby/nexus/pkg/exec"
)

var queryCmd = &cobra.Command{
	Use:   "query <statement>",
	Short: "Run a single statement against the database and print its result",
	Args:  cobra.MinimumNArgs(1),
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

		src := strings.Join(args, " ")
		result, err := db.Query(context.Background(), src, nil)
		if err != nil {
			return err
		}

		if result.Applied != "" {
			fmt.Printf("%s (%.2fms)\n", result.Applied, result.ExecutionTimeMS)
			return nil
		}
		printResultSet(result.Rows)
		fmt.Printf("(%.2fms)\n", result.ExecutionTimeMS)
		return nil
	},
}

func printResultSet(rs *exec.ResultSet) {
	if rs == nil || len(rs.Columns) == 0 {
		fmt.Println("(no columns)")
		return
	}
	fmt.Println(strings.Join(rs.Columns, "\t"))
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	fmt.Printf("(%d rows)\n", rs.RowCount)
}
