package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kvistad/renderloop/internal/space"
)

func newSpaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "space",
		Short: "Space management commands",
	}

	cmd.AddCommand(newSpaceAddCmd())
	cmd.AddCommand(newSpaceListCmd())
	cmd.AddCommand(newSpaceExcludeCmd())
	cmd.AddCommand(newSpaceIncludeCmd())
	return cmd
}

func newSpaceAddCmd() *cobra.Command {
	var (
		configPath string
		pipelineID string
		name       string
		kind       string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a space to a pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			sp, err := space.Create(gormDB, space.CreateOpts{
				PipelineID: pipelineID,
				Name:       name,
				Kind:       kind,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created space %s\n", sp.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	cmd.Flags().StringVar(&pipelineID, "pipeline", "", "pipeline ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "space name (required)")
	cmd.Flags().StringVar(&kind, "kind", "", "space kind (bedroom, kitchen, hallway, ...)")
	cmd.MarkFlagRequired("pipeline")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newSpaceListCmd() *cobra.Command {
	var (
		configPath string
		pipelineID string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List spaces in a pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			spaces, err := space.ListForPipeline(gormDB, pipelineID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(spaces) == 0 {
				fmt.Fprintln(out, "No spaces found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tKIND\tACTIVE")
			for i := range spaces {
				sp := &spaces[i]
				kind := sp.Kind
				if kind == "" {
					kind = "-"
				}
				active := "yes"
				if !sp.Active() {
					active = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sp.ID, truncate(sp.Name, 40), kind, active)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	cmd.Flags().StringVar(&pipelineID, "pipeline", "", "pipeline ID (required)")
	cmd.MarkFlagRequired("pipeline")
	return cmd
}

func newSpaceExcludeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "exclude <id>",
		Short: "Exclude a space from stage aggregation",
		Long:  "Removes the space from approval totals without deleting its assets.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := space.SetExcluded(gormDB, args[0], true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Space %s excluded\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	return cmd
}

func newSpaceIncludeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "include <id>",
		Short: "Re-include an excluded space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := space.SetExcluded(gormDB, args[0], false); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Space %s included\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "renderloop.yaml", "path to Renderloop config file")
	return cmd
}
