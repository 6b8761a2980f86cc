package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvistad/renderloop/internal/pipeline"
)

func newPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Pipeline management commands",
	}

	cmd.AddCommand(newPipelineCreateCmd())
	cmd.AddCommand(newPipelineListCmd())
	cmd.AddCommand(newPipelineStatusCmd())
	cmd.AddCommand(newPipelineActivateCmd())
	cmd.AddCommand(newPipelineAdvanceCmd())
	cmd.AddCommand(newPipelineHaltCmd())
	return cmd
}

func newPipelineCreateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		floorPlan  string
		manualQA   bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new pipeline",
		Long:  "Creates a new generation pipeline in draft state with an auto-generated ID.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			p, err := pipeline.Create(gormDB, pipeline.CreateOpts{
				Name:        name,
				FloorPlanID: floorPlan,
				ManualQA:    manualQA,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created pipeline %s\n", p.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	cmd.Flags().StringVar(&name, "name", "", "pipeline name (required)")
	cmd.Flags().StringVar(&floorPlan, "floor-plan", "", "floor plan upload ID")
	cmd.Flags().BoolVar(&manualQA, "manual-qa", false, "require human approval for every slot")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newPipelineListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pipelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			pipelines, err := pipeline.List(gormDB)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(pipelines) == 0 {
				fmt.Fprintln(out, "No pipelines found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSTAGE\tMANUAL QA")
			for _, p := range pipelines {
				qa := "-"
				if p.ManualQA {
					qa = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					p.ID, truncate(p.Name, 40), p.Status, p.CurrentStage, qa)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	return cmd
}

func newPipelineStatusCmd() *cobra.Command {
	var (
		configPath string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Show per-stage approval progress",
		Long:  "Displays the pipeline's per-stage approval summary. Use --watch for auto-refresh.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipelineStatus(cmd, configPath, args[0], watch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	cmd.Flags().BoolVar(&watch, "watch", false, "auto-refresh every 5 seconds")
	return cmd
}

func runPipelineStatus(cmd *cobra.Command, configPath, id string, watch bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for {
		p, err := pipeline.Get(gormDB, id)
		if err != nil {
			return err
		}
		summaries, err := pipeline.StageSummaries(gormDB, id)
		if err != nil {
			return err
		}

		if watch {
			// Clear screen.
			fmt.Fprint(out, "\033[2J\033[H")
		}

		fmt.Fprintf(out, "%s  %s  [%s]  stage: %s\n\n", p.ID, p.Name, p.Status, p.CurrentStage)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tAPPROVED\tPENDING\tREJECTED\tBLOCKED\tRUNNING\tCOMPLETE")
		for _, s := range summaries {
			complete := "-"
			if s.IsComplete {
				complete = "yes"
			}
			marker := " "
			if s.Stage == p.CurrentStage {
				marker = "*"
			}
			fmt.Fprintf(w, "%s%s\t%d/%d\t%d\t%d\t%d\t%d\t%s\n",
				marker, s.Stage, s.Approved, s.Total, s.Pending, s.Rejected, s.Blocked, s.Running, complete)
		}
		w.Flush()

		if !watch {
			return nil
		}
		time.Sleep(5 * time.Second)
	}
}

func newPipelineActivateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "activate <id>",
		Short: "Activate a draft pipeline",
		Long:  "Moves a draft pipeline to active and seeds render slots for every space.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := pipeline.Activate(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %s is active\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	return cmd
}

func newPipelineAdvanceCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "advance <id>",
		Short: "Advance the pipeline to its next stage",
		Long:  "Moves the pipeline to the next stage if the current stage's gate is open (every slot approved).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := pipeline.Advance(gormDB, args[0]); err != nil {
				return err
			}
			p, err := pipeline.Get(gormDB, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if p.Status == "complete" {
				fmt.Fprintf(out, "Pipeline %s is complete\n", p.ID)
			} else {
				fmt.Fprintf(out, "Pipeline %s advanced to %s\n", p.ID, p.CurrentStage)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	return cmd
}

func newPipelineHaltCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "halt <id>",
		Short: "Halt an active pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := pipeline.Halt(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %s halted\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	return cmd
}
