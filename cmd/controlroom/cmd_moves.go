package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/control-room/internal/engine"
	"github.com/talgya/control-room/internal/relations"
	"github.com/talgya/control-room/internal/scenario"
)

// movesReport is the --json output of moves.
type movesReport struct {
	Scenario string                    `json:"scenario"`
	Before   []relations.AgentStanding `json:"before"`
	After    []relations.AgentStanding `json:"after"`
	Executed []engine.MoveRecord       `json:"executed"`
}

func newMovesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "moves <scenario-id> [move-id...]",
		Short: "List a scenario's moves, or apply them locally and show standings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(cmd); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			catalog, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			sc, err := catalog.Get(args[0])
			if err != nil {
				return err
			}

			if len(args) == 1 {
				if jsonOut {
					return printJSON(out, sc.Moves)
				}
				listMoves(out, sc)
				return nil
			}

			board := engine.NewBoard(sc)
			report := movesReport{Scenario: sc.ID, Before: board.Standings.List()}
			for _, id := range args[1:] {
				rec, err := board.Execute(id)
				if err != nil {
					return err
				}
				report.Executed = append(report.Executed, rec)
			}
			report.After = board.Standings.List()

			if jsonOut {
				return printJSON(out, report)
			}
			for _, rec := range report.Executed {
				fmt.Fprintf(out, "%s move: %s (%s)\n", humanize.Ordinal(rec.Seq), rec.Title, rec.Type)
				for _, c := range rec.Changes {
					fmt.Fprintf(out, "  %-12s trust %3d -> %3d  influence %3d -> %3d\n",
						c.Agent, c.Before.Trust, c.After.Trust, c.Before.Influence, c.After.Influence)
				}
			}
			fmt.Fprintln(out)
			printStandings(out, sc, report.Before, report.After)
			return nil
		},
	}
}

func listMoves(w io.Writer, sc *scenario.Scenario) {
	fmt.Fprintf(w, "%s (%d moves)\n", sc.Title, len(sc.Moves))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	current, hasCurrent := sc.CurrentMove()
	fmt.Fprintln(tw, "\tID\tTYPE\tTITLE\tAFFECTS")
	for _, m := range sc.Moves {
		mark := ""
		if hasCurrent && m.ID == current.ID {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", mark, m.ID, m.Type, m.Title, len(m.Impacts))
	}
	tw.Flush()
}

func printStandings(w io.Writer, sc *scenario.Scenario, before, after []relations.AgentStanding) {
	prior := make(map[string]relations.AgentStanding, len(before))
	for _, s := range before {
		prior[string(s.Agent)] = s
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tTRUST\tINFLUENCE\tBAND")
	for _, s := range after {
		name := string(s.Agent)
		if a, ok := sc.Agent(s.Agent); ok {
			name = a.Label()
		}
		p := prior[string(s.Agent)]
		fmt.Fprintf(tw, "%s\t%d (%+d)\t%d (%+d)\t%s\n",
			name, s.Trust, s.Trust-p.Trust, s.Influence, s.Influence-p.Influence, s.Band)
	}
	tw.Flush()
}
