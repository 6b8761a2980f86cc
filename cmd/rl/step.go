package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kvistad/renderloop/internal/step"
)

func newStepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Retry step commands",
		Long:  "Inspect and resolve per-slot retry steps, including steps blocked for human review.",
	}

	cmd.AddCommand(newStepShowCmd())
	cmd.AddCommand(newStepApproveAttemptCmd())
	cmd.AddCommand(newStepRestartCmd())
	cmd.AddCommand(newStepRejectAllCmd())
	cmd.AddCommand(newStepStopAutoCmd())
	return cmd
}

func parseStepID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid step id %q", arg)
	}
	return uint(id), nil
}

func newStepShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show retry step details",
		Long:  "Displays the step's retry classification and its attempt history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStepShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	return cmd
}

func runStepShow(cmd *cobra.Command, configPath, arg string) error {
	id, err := parseStepID(arg)
	if err != nil {
		return err
	}
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	st, err := step.Get(gormDB, id)
	if err != nil {
		return err
	}
	attempts, err := step.Attempts(gormDB, st)
	if err != nil {
		return err
	}
	c := step.Classify(st, attempts)

	out := cmd.OutOrStdout()
	slot := st.Slot
	if slot == "" {
		slot = "-"
	}
	fmt.Fprintf(out, "Step:     %d (%s / %s / slot %s)\n", st.ID, st.SpaceID, st.Stage, slot)
	fmt.Fprintf(out, "Status:   %s\n", st.Status)
	fmt.Fprintf(out, "Attempts: %d/%d\n", c.AttemptCount, c.MaxAttempts)

	switch {
	case c.IsBlocked:
		fmt.Fprintf(out, "Blocked:  %s", c.Label)
		if c.Confidence != "" {
			fmt.Fprintf(out, " (%s confidence)", c.Confidence)
		}
		fmt.Fprintln(out)
		if c.Reason != "" {
			fmt.Fprintf(out, "          %s\n", c.Reason)
		}
	case c.IsRetrying:
		fmt.Fprintln(out, "Retrying automatically")
	case !c.AutoRetry:
		fmt.Fprintln(out, "Auto-retry stopped")
	}

	if len(attempts) > 0 {
		fmt.Fprintln(out, "\nAttempt history:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  #\tSTATUS\tLOCKED\tCREATED")
		for _, at := range attempts {
			locked := "-"
			if at.LockedApproved {
				locked = "yes"
			}
			fmt.Fprintf(w, "  %d\t%s\t%s\t%s\n",
				at.Index, at.Status, locked, at.CreatedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
	}
	return nil
}

func newStepApproveAttemptCmd() *cobra.Command {
	var (
		configPath   string
		attemptIndex int
		reviewer     string
	)

	cmd := &cobra.Command{
		Use:   "approve-attempt <id>",
		Short: "Approve one attempt of a blocked step",
		Long:  "Locks the chosen attempt as the step's output and approves the asset. Any attempt may be chosen, not just the latest.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStepID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := step.ApproveAttempt(gormDB, id, attemptIndex, reviewer); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Attempt %d approved for step %d\n", attemptIndex, id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	cmd.Flags().IntVar(&attemptIndex, "attempt", 0, "attempt index to approve (required)")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer identity")
	cmd.MarkFlagRequired("attempt")
	return cmd
}

func newStepRestartCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "restart <id>",
		Short: "Restart a blocked step from scratch",
		Long:  "Clears the attempt history and requeues the asset with a fresh attempt budget.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStepID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := step.Restart(gormDB, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Step %d restarted\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	return cmd
}

func newStepRejectAllCmd() *cobra.Command {
	var (
		configPath string
		reviewer   string
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "reject-all <id>",
		Short: "Reject every attempt and halt the pipeline",
		Long:  "Rejects the step's asset, disables auto-retry, and halts the owning pipeline.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStepID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := step.RejectAllStop(gormDB, id, reviewer, notes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Step %d rejected; pipeline halted\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer identity")
	cmd.Flags().StringVar(&notes, "notes", "", "rejection notes")
	return cmd
}

func newStepStopAutoCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stop-auto <id>",
		Short: "Stop automatic retries for a step",
		Long:  "Freezes automatic retries without discarding the attempt counter or history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStepID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := step.StopAutoRetry(gormDB, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Auto-retry stopped for step %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	return cmd
}
