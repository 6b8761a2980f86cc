package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kvistad/renderloop/internal/asset"
)

func newFeedbackCmd() *cobra.Command {
	var (
		configPath string
		reviewer   string
		decision   string
		category   string
		score      int
		reason     string
		disagree   bool
	)

	cmd := &cobra.Command{
		Use:   "feedback <asset-id>",
		Short: "Record a structured reviewer verdict for an asset",
		Long:  "Appends a reviewer verdict to the feedback sink. Feedback never changes approval state; use asset approve/reject for that.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			fb, err := asset.RecordFeedback(gormDB, asset.FeedbackOpts{
				AssetID:  args[0],
				Reviewer: reviewer,
				Decision: decision,
				Category: category,
				Score:    score,
				Reason:   reason,
				Disagree: disagree,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded feedback %d for asset %s\n", fb.ID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer identity")
	cmd.Flags().StringVar(&decision, "decision", "", "verdict: approve or reject (required)")
	cmd.Flags().StringVar(&category, "category", "", "failure category code")
	cmd.Flags().IntVar(&score, "score", 0, "quality score 0-100")
	cmd.Flags().StringVar(&reason, "reason", "", "free-text reason (200 chars max)")
	cmd.Flags().BoolVar(&disagree, "disagree", false, "flag disagreement with the automated QA verdict")
	cmd.MarkFlagRequired("decision")
	return cmd
}
