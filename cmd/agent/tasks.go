package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks or change their status",
	}
	cmd.AddCommand(newTasksListCmd(), newTasksSetStatusCmd())
	return cmd
}

func newTasksListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			records, err := a.tasks.ListTasks(ctx, status)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REF\tCREATED\tOWNER\tSTATUS\tTEXT\t")
			for _, r := range records {
				created := ""
				if !r.CreatedAt.IsZero() {
					created = r.CreatedAt.In(a.location).Format("2006-01-02 15:04")
				}
				state := string(r.Status)
				if r.Status == tasks.StatusUnknown {
					state = fmt.Sprintf("unknown (%s)", r.RawStatus)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", r.Ref(), created, r.Owner, state, r.Text)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "new, in_progress, done or unknown")
	return cmd
}

func newTasksSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <ref> <status>",
		Short: "Move a task to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := tasks.ParseStatus(args[1])
			if !status.Known() {
				return fmt.Errorf("invalid status %q", args[1])
			}

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

			record, err := a.tasks.SetStatus(ctx, args[0], status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", record.Ref(), record.Status.Label())
			return nil
		},
	}
}
