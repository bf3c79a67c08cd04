package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <sheet> [range]",
		Short: "Print raw rows of a sheet in the configured store",
		Example: `  ceo-agent inspect Tasks A1:F20
  ceo-agent inspect StrategyPlan`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			a1 := "A:Z"
			if len(args) == 2 {
				a1 = args[1]
			}

			rows, err := a.store.ReadRange(ctx, args[0], a1)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, row := range rows {
				fmt.Fprintf(w, "%d\t%s\t\n", i+1, strings.Join(row, "\t"))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d rows from %s!%s\n", len(rows), args[0], a1)
			return nil
		},
	}
}
