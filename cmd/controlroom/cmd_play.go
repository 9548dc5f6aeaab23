package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/control-room/internal/backend"
	"github.com/talgya/control-room/internal/engine"
	"github.com/talgya/control-room/internal/journal"
	"github.com/talgya/control-room/internal/scenario"
	"github.com/talgya/control-room/internal/session"
	"github.com/talgya/control-room/internal/snapshot"
)

// playReport is the --json output of play.
type playReport struct {
	Session      session.View           `json:"session"`
	Rounds       []snapshot.Snapshot    `json:"rounds"`
	ShareChanges []snapshot.ShareChange `json:"share_changes"`
	Brief        *backend.Brief         `json:"brief,omitempty"`
	History      []journal.Entry        `json:"history"`
	Events       int                    `json:"events"`
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <scenario-id>",
		Short: "Run a scenario and step through its rounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			interval, _ := cmd.Flags().GetDuration("interval")
			rounds, _ := cmd.Flags().GetInt("rounds")
			lens, _ := cmd.Flags().GetString("perspective")
			if lens == "" {
				lens = cfg.Session.Perspective
			}
			perspective, err := scenario.ParsePerspective(lens)
			if err != nil {
				return err
			}

			catalog, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			j, err := journal.Open(cfg.Journal.DSN)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()

			sess := session.New(session.Options{
				Catalog:          catalog,
				Backend:          backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout),
				Journal:          j,
				Perspective:      perspective,
				MaxNotifications: cfg.Session.Notifications,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var numRounds *int
			if rounds > 0 {
				numRounds = &rounds
			}
			if err := sess.Select(ctx, args[0], numRounds); err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			// Let the completion brief land before reporting.
			sess.Wait()

			out := cmd.OutOrStdout()
			report := playReport{}
			// show records the current round and reports whether more remain.
			show := func() bool {
				snap := sess.Snapshot()
				report.Rounds = append(report.Rounds, snap)
				v := sess.View()
				if !jsonOut {
					printRound(out, v, snap)
				}
				return v.Cursor < v.TotalRounds-1
			}

			more := show()
			if more && interval > 0 {
				pb := engine.NewPlayback(interval, func(uint64) bool {
					sess.Next()
					return show()
				})
				pb.Run(ctx)
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			for more && interval <= 0 {
				sess.Next()
				more = show()
			}

			report.Session = sess.View()
			report.ShareChanges = sess.ShareChanges()
			report.Brief, _ = sess.Brief()
			report.History, err = sess.History(ctx, 50)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			report.Events, err = sess.EventCount(ctx)
			if err != nil {
				return fmt.Errorf("count events: %w", err)
			}

			if jsonOut {
				return printJSON(out, report)
			}
			printImpact(out, report.ShareChanges)
			printBrief(out, perspective, report.Brief)
			printHistory(out, report.History, report.Events)
			return nil
		},
	}
	cmd.Flags().String("perspective", "", "Lens for the strategic brief: CRO, Regulator or Investor")
	cmd.Flags().Int("rounds", 0, "Override the number of rounds to simulate")
	cmd.Flags().Duration("interval", 0, "Pause between rounds (e.g. 2s)")
	return cmd
}

func printRound(w io.Writer, v session.View, snap snapshot.Snapshot) {
	fmt.Fprintf(w, "\n=== %s: round %d of %d ===\n", v.ScenarioTitle, snap.Round, v.TotalRounds)
	if snap.Model != nil {
		m := snap.Model
		fmt.Fprintf(w, "Votes  yes %d  no %d  abstain %d\n", m.TotalVotesYes, m.TotalVotesNo, m.TotalVotesAbstain)
		if m.ExclusivityDealSecured != nil {
			fmt.Fprintf(w, "Exclusivity deal secured: %t\n", *m.ExclusivityDealSecured)
		}
	}
	if len(snap.Agents) == 0 {
		fmt.Fprintln(w, "No agent data for this round.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tVOTE\tTRUST\tSHARE\tINCENTIVE")
	for _, a := range snap.Agents {
		vote := "-"
		if a.Vote != nil {
			vote = *a.Vote
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.1f%%\t%s\n",
			a.Name, vote, a.TrustLevel, a.MarketShare*100, a.CurrentIncentive)
	}
	tw.Flush()
}

func printImpact(w io.Writer, changes []snapshot.ShareChange) {
	fmt.Fprintln(w, "\nMarket impact:")
	shown := 0
	for _, c := range changes {
		if c.Significant() {
			fmt.Fprintf(w, "  %s\n", c)
			shown++
		}
	}
	if shown == 0 {
		fmt.Fprintln(w, "  No significant market share movement.")
	}
}

func printBrief(w io.Writer, p scenario.Perspective, b *backend.Brief) {
	fmt.Fprintf(w, "\nStrategic brief (%s):\n", p)
	if b == nil {
		fmt.Fprintln(w, "  Unavailable.")
		return
	}
	for _, s := range b.Summary.WhatHappened {
		fmt.Fprintf(w, "  * %s\n", s)
	}
	for _, s := range b.Summary.StrategicImplications {
		fmt.Fprintf(w, "  > %s\n", s)
	}
	if b.Summary.SuggestedNextMove != "" {
		fmt.Fprintf(w, "  Next: %s\n", b.Summary.SuggestedNextMove)
	}
}

func printHistory(w io.Writer, entries []journal.Entry, total int) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "\nSession log (%d of %d events):\n", len(entries), total)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", humanize.Time(e.At), e.Kind, strings.TrimSpace(e.Detail))
	}
	tw.Flush()
}
