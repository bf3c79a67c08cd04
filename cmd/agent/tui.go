package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexrabarts/ceo-agent/internal/tui"
)

func newTUICmd() *cobra.Command {
	var remote string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse and move tasks in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			interval := time.Duration(cfg.TUI.AutoRefreshSeconds) * time.Second

			// Remote mode doesn't need the store or any credentials
			if remote != "" {
				if cfg.API.AuthKey == "" {
					return fmt.Errorf("remote mode needs api.auth_key (API_AUTH_KEY)")
				}
				return tui.Start(tui.NewAPIClient(remote, cfg.API.AuthKey), cfg.Company.Name, interval)
			}

			a, err := newApp(context.Background(), cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			return tui.Start(tui.NewLocalBackend(a.tasks, a.database), cfg.Company.Name, interval)
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "base URL of a running agent's API, e.g. http://localhost:3000")
	return cmd
}
