package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexrabarts/ceo-agent/internal/config"
)

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ceo-agent",
		Short: "AI CEO assistant for Telegram",
		Long: `ceo-agent answers the founder in Telegram with the company profile and
this week's strategy in mind, turns action-like messages into tasks in the
shared sheet and pushes a daily report and weekly suggestions.

Examples:
  ceo-agent serve
  ceo-agent report weekly --send
  ceo-agent tasks list --status in_progress
  ceo-agent tui --remote http://localhost:3000`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", os.ExpandEnv("$HOME/.ceo-agent/config.yaml"), "path to configuration file")

	// Bare invocation runs the bot, as deployments start it without arguments
	serveCmd := newServeCmd()
	rootCmd.Args = cobra.NoArgs
	rootCmd.RunE = serveCmd.RunE

	rootCmd.AddCommand(
		serveCmd,
		newReportCmd(),
		newTasksCmd(),
		newTUICmd(),
		newInspectCmd(),
		newVersionCmd(version),
	)

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ceo-agent v%s\n", version)
		},
	}
}
