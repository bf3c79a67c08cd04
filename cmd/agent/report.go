package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexrabarts/ceo-agent/internal/bot"
	"github.com/alexrabarts/ceo-agent/internal/scheduler"
)

func newReportCmd() *cobra.Command {
	var send bool

	cmd := &cobra.Command{
		Use:       "report daily|weekly",
		Short:     "Generate the daily report or the weekly suggestions now",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"daily", "weekly"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := newApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if send {
				if err := cfg.RequireBot(); err != nil {
					return err
				}
				if cfg.Telegram.AdminChatID == 0 {
					return fmt.Errorf("telegram.admin_chat_id (ADMIN_CHAT_ID) is required to send reports")
				}
				telegram, err := bot.NewTelegram(cfg.Telegram.Token, cfg.Telegram.Debug)
				if err != nil {
					return err
				}
				sched := scheduler.New(a.planner, telegram, cfg.Telegram.AdminChatID, cfg.Schedule)
				return sched.RunNow(ctx, args[0])
			}

			generate := a.planner.GenerateDailyReport
			if args[0] == "weekly" {
				generate = a.planner.GenerateWeeklySuggestions
			}
			text, err := generate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&send, "send", false, "send to the admin chat instead of printing")
	return cmd
}
