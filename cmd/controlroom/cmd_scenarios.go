package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/talgya/control-room/internal/backend"
	"github.com/talgya/control-room/internal/scenario"
)

func newScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			remote, _ := cmd.Flags().GetBool("remote")
			status, _ := cmd.Flags().GetString("status")
			out := cmd.OutOrStdout()

			if remote {
				client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
				list, err := client.ListScenarios(cmd.Context())
				if err != nil {
					return fmt.Errorf("list remote scenarios: %w", err)
				}
				if jsonOut {
					return printJSON(out, list)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tROUNDS")
				for _, s := range list {
					fmt.Fprintf(tw, "%s\t%s\t%d\n", s.ID, s.Name, s.Rounds)
				}
				return tw.Flush()
			}

			if status != "" && !scenario.Status(status).Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			catalog, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			list := catalog.ByStatus(scenario.Status(status))
			if jsonOut {
				return printJSON(out, list)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tROUNDS\tAGENTS\tMOVES\tRUNS AS")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					s.ID, s.Title, s.Status, s.Rounds, len(s.Agents), len(s.Moves), s.BackendID())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("remote", false, "List the scenarios the simulation service offers")
	cmd.Flags().String("status", "", "Only scenarios with this status")
	return cmd
}
