package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/kvistad/renderloop/internal/config"
	"github.com/kvistad/renderloop/internal/db"
	"github.com/kvistad/renderloop/internal/notify"
	"github.com/kvistad/renderloop/internal/notify/discord"
	"github.com/kvistad/renderloop/internal/notify/slack"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rl",
		Short: "Renderloop — apartment render approval pipeline",
		Long:  "Renderloop tracks generated apartment imagery through staged human/AI review.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newPipelineCmd())
	cmd.AddCommand(newSpaceCmd())
	cmd.AddCommand(newAssetCmd())
	cmd.AddCommand(newStepCmd())
	cmd.AddCommand(newFeedbackCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSweepCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rl %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
	}

	return cfg, gormDB, nil
}

// notifierFromConfig wires up every chat platform with credentials in the
// config. Returns nil when none is configured.
func notifierFromConfig(cfg *config.Config) (notify.Notifier, error) {
	var multi notify.Multi

	if cfg.Notify.Slack.BotToken != "" {
		n, err := slack.New(cfg.Notify.Slack)
		if err != nil {
			return nil, err
		}
		multi = append(multi, n)
	}
	if cfg.Notify.Discord.Token != "" {
		n, err := discord.New(cfg.Notify.Discord)
		if err != nil {
			return nil, err
		}
		multi = append(multi, n)
	}

	if len(multi) == 0 {
		return nil, nil
	}
	return multi, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
