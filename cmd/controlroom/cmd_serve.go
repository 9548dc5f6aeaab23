package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/control-room/internal/api"
	"github.com/talgya/control-room/internal/backend"
	"github.com/talgya/control-room/internal/journal"
	"github.com/talgya/control-room/internal/scenario"
	"github.com/talgya/control-room/internal/session"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a control room session over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				cfg.Server.Port = port
			}

			catalog, err := loadCatalog(cmd)
			if err != nil {
				return err
			}

			// ── Journal ───────────────────────────────────────────────
			j, err := journal.Open(cfg.Journal.DSN)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()

			// ── Simulation service ────────────────────────────────────
			client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
			if cfg.Backend.ReadyTimeout > 0 {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Backend.ReadyTimeout)
				err := client.WaitReady(ctx)
				cancel()
				if err != nil {
					return err
				}
			}

			// ── Session + API ─────────────────────────────────────────
			perspective, err := scenario.ParsePerspective(cfg.Session.Perspective)
			if err != nil {
				perspective = scenario.DefaultPerspective
			}
			sess := session.New(session.Options{
				Catalog:          catalog,
				Backend:          client,
				Journal:          j,
				Perspective:      perspective,
				MaxNotifications: cfg.Session.Notifications,
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			srv := &api.Server{
				Session:          sess,
				Remote:           client,
				Port:             cfg.Server.Port,
				CORSOrigins:      cfg.Server.CORSOrigins,
				BriefRate:        cfg.Server.BriefRate,
				PlaybackInterval: cfg.Playback.Interval,
				Ctx:              ctx,
			}
			srv.Start()

			slog.Info("control room ready",
				"port", cfg.Server.Port,
				"backend", cfg.Backend.URL,
				"scenarios", catalog.Len(),
				"journal", cfg.Journal.DSN,
			)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			sig := <-sigCh
			slog.Info("received signal, shutting down", "signal", sig)

			cancel()
			sess.StopPlayback()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown failed", "error", err)
			}
			sess.Wait()
			fmt.Fprintln(cmd.OutOrStdout(), "Control room stopped.")
			return nil
		},
	}
	cmd.Flags().Int("port", 0, "Listen port (overrides config)")
	return cmd
}
