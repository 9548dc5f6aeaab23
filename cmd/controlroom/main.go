// Command controlroom steps through multi-round bureau strategy simulations
// from the terminal or serves a session over HTTP.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/talgya/control-room/internal/config"
	"github.com/talgya/control-room/internal/logging"
	"github.com/talgya/control-room/internal/scenario"
)

var version = "0.1.0-dev"

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "controlroom",
		Short: "Bureau Control Room - strategic scenario simulation",
		Long: `controlroom selects a scenario, runs it on the simulation service, and
steps through the resulting rounds from the perspective of a CRO, a
regulator or an investor.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("catalog", "", "Load scenarios from this YAML file instead of the built-in catalog")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newScenariosCmd(),
		newPlayCmd(),
		newMovesCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "controlroom version %s\n", version)
			}
		},
	}
}

// setup loads configuration and installs the default logger.
func setup(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	slog.SetDefault(logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()))
	return cfg, nil
}

// loadCatalog returns the catalog named by --catalog, or the built-in one.
func loadCatalog(cmd *cobra.Command) (*scenario.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		return scenario.Builtin(), nil
	}
	return scenario.LoadFile(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
