package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexrabarts/ceo-agent/internal/api"
	"github.com/alexrabarts/ceo-agent/internal/bot"
	"github.com/alexrabarts/ceo-agent/internal/scheduler"
	"github.com/alexrabarts/ceo-agent/internal/speech"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the scheduler and the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireBot(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, err := newApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			telegram, err := bot.NewTelegram(cfg.Telegram.Token, cfg.Telegram.Debug)
			if err != nil {
				return err
			}
			if err := telegram.RegisterCommands(); err != nil {
				log.Printf("⚠ %v", err)
			}

			deps := bot.Deps{
				Messenger: telegram,
				Assistant: a.planner,
				Tasks:     a.tasks,
				Journal:   a.journal,
			}
			if a.strategy != nil {
				deps.Strategy = a.strategy
			}
			if cfg.Features.Voice && a.google != nil {
				deps.Transcriber = speech.NewClient(a.google.Speech, cfg.Speech, a.database)
			}

			router := bot.NewRouter(deps, bot.Options{
				Company:      cfg.Company.Name,
				DefaultOwner: cfg.Company.DefaultOwner,
				Speech:       cfg.Speech,
				Location:     a.location,
				PendingTTL:   time.Duration(cfg.Pending.TTLMinutes) * time.Minute,
			})
			dispatcher := bot.NewDispatcher(router)

			// Initialize scheduler
			var sched *scheduler.Scheduler
			if cfg.Features.Scheduler {
				sched = scheduler.New(a.planner, telegram, cfg.Telegram.AdminChatID, cfg.Schedule)
				if err := sched.Start(); err != nil {
					return err
				}
			}

			// The HTTP server carries the webhook even when the API is off
			var apiServer *api.Server
			webhook := cfg.Telegram.Mode == "webhook"
			if cfg.API.Enabled || webhook {
				opts := api.Options{AuthKey: cfg.API.AuthKey}
				if cfg.API.Enabled {
					opts.Tasks = a.tasks
					opts.Usage = a.database
					if sched != nil {
						opts.Reports = sched
					}
				}
				if webhook {
					opts.WebhookPath = cfg.Telegram.WebhookPath
					opts.Webhook = telegram.WebhookHandler(ctx, dispatcher, cfg.Telegram.WebhookSecret)
				}

				apiServer = api.NewServer(opts)
				go func() {
					if err := apiServer.Start(cfg.API.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Fatalf("API server error: %v", err)
					}
				}()
			}

			if webhook {
				if err := telegram.SetWebhook(cfg.Telegram.PublicURL, cfg.Telegram.WebhookPath, cfg.Telegram.WebhookSecret); err != nil {
					return err
				}
			} else {
				go func() {
					if err := telegram.Poll(ctx, dispatcher); err != nil {
						log.Printf("Polling stopped: %v", err)
						cancel()
					}
				}()
			}

			log.Printf("Starting ceo-agent for %s (%s mode)...", cfg.Company.Name, cfg.Telegram.Mode)

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigChan:
			case <-ctx.Done():
			}

			log.Println("Shutting down...")
			cancel()
			if sched != nil {
				sched.Stop()
			}
			if apiServer != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if err := apiServer.Stop(shutdownCtx); err != nil {
					log.Printf("Failed to stop API server: %v", err)
				}
			}
			dispatcher.Wait()

			return nil
		},
	}
}
