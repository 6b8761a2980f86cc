package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kvistad/renderloop/internal/sweep"
)

func newSweepCmd() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the retry sweeper",
		Long: `Runs the retry sweeper, which blocks steps that have exhausted their
attempt budget without an approved attempt and notifies reviewers.

By default the sweeper runs as a daemon on the configured cron spec.
Use --once for a single pass.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, configPath, once)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep pass and exit")
	return cmd
}

func runSweep(cmd *cobra.Command, configPath string, once bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	notifier, err := notifierFromConfig(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if once {
		res, err := sweep.Sweep(gormDB, notifier)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Swept %d exhausted steps, blocked %d\n", res.Scanned, res.Blocked)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return sweep.Run(ctx, gormDB, cfg.QA.SweepSpec, notifier, out)
}
