package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kvistad/renderloop/internal/approval"
	"github.com/kvistad/renderloop/internal/asset"
	"github.com/kvistad/renderloop/internal/qa"
	"github.com/kvistad/renderloop/internal/status"
)

func newAssetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Asset management commands",
	}

	cmd.AddCommand(newAssetListCmd())
	cmd.AddCommand(newAssetShowCmd())
	cmd.AddCommand(newAssetApproveCmd())
	cmd.AddCommand(newAssetRejectCmd())
	cmd.AddCommand(newAssetRetryCmd())
	return cmd
}

func newAssetListCmd() *cobra.Command {
	var (
		configPath string
		pipelineID string
		spaceID    string
		stage      string
		rawStatus  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		Long:  "Lists assets with optional filters. Shows the raw worker status and the derived review status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			assets, err := asset.List(gormDB, asset.ListFilters{
				PipelineID: pipelineID,
				SpaceID:    spaceID,
				Stage:      stage,
				Status:     rawStatus,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(assets) == 0 {
				fmt.Fprintln(out, "No assets found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSPACE\tSTAGE\tSLOT\tRAW\tDERIVED\tBUCKET\tATTEMPTS")
			for i := range assets {
				a := &assets[i]
				slot := a.Slot
				if slot == "" {
					slot = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
					a.ID, a.SpaceID, a.Stage, slot, a.Status,
					status.Derive(a), approval.Bucket(a), a.AttemptCount)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	cmd.Flags().StringVar(&pipelineID, "pipeline", "", "filter by pipeline ID")
	cmd.Flags().StringVar(&spaceID, "space", "", "filter by space ID")
	cmd.Flags().StringVar(&stage, "stage", "", "filter by stage (renders, panoramas, final360)")
	cmd.Flags().StringVar(&rawStatus, "status", "", "filter by raw status")
	return cmd
}

func newAssetShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show asset details",
		Long:  "Displays full asset details including the normalized QA verdict and attempt history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssetShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	return cmd
}

func runAssetShow(cmd *cobra.Command, configPath, id string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	a, err := asset.Get(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Asset:    %s\n", a.ID)
	fmt.Fprintf(out, "Pipeline: %s\n", a.PipelineID)
	fmt.Fprintf(out, "Space:    %s\n", a.SpaceID)
	slot := a.Slot
	if slot == "" {
		slot = "-"
	}
	fmt.Fprintf(out, "Stage:    %s (slot %s)\n", a.Stage, slot)
	fmt.Fprintf(out, "Status:   %s (derived: %s, bucket: %s)\n",
		a.Status, status.Derive(a), approval.Bucket(a))
	if a.LockedApproved {
		fmt.Fprintf(out, "Approved: by %s", a.ApprovedBy)
		if a.ApprovedAt != nil {
			fmt.Fprintf(out, " at %s", a.ApprovedAt.Format("2006-01-02 15:04"))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Attempts: %d\n", a.AttemptCount)

	if a.QAReport != "" {
		res := qa.Normalize(a.QAReport)
		code := qa.ExtractCategory(res)
		fmt.Fprintf(out, "\nQA: %s (%s confidence)\n", qa.DisplayLabel(code), qa.ExtractConfidence(res))
		fmt.Fprintf(out, "    %s\n", qa.BuildRejectionReason(res))
	}
	if a.ReviewNotes != "" {
		fmt.Fprintf(out, "\nReview notes:\n%s\n", a.ReviewNotes)
	}

	if len(a.Attempts) > 0 {
		fmt.Fprintln(out, "\nAttempt history:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  #\tSTATUS\tLOCKED\tCREATED")
		for _, at := range a.Attempts {
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

func newAssetApproveCmd() *cobra.Command {
	var (
		configPath string
		reviewer   string
	)

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve an asset",
		Long:  "Locks the asset as human-approved. The lock is permanent; later automated writes cannot undo it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := asset.Approve(gormDB, args[0], reviewer); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Asset %s approved\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer identity")
	return cmd
}

func newAssetRejectCmd() *cobra.Command {
	var (
		configPath string
		reviewer   string
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := asset.Reject(gormDB, args[0], reviewer, notes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Asset %s rejected\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer identity")
	cmd.Flags().StringVar(&notes, "notes", "", "rejection notes for the regeneration prompt")
	return cmd
}

func newAssetRetryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Requeue an asset for another generation attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := asset.Retry(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Asset %s queued for retry\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	return cmd
}
