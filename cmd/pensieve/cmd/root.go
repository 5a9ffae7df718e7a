// Package cmd provides the CLI commands for Pensieve.
package cmd

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pensieve-kb/pensieve/internal/logging"
	"github.com/pensieve-kb/pensieve/pkg/version"
)

// Persistent flags shared by all commands.
var (
	flagDataDir string
	flagDebug   bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the pensieve CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pensieve",
		Short: "Personal knowledge base with version-aware hybrid search",
		Long: `Pensieve ingests your documents, chunks them semantically, and serves
hybrid keyword + semantic search over the current version of each one.

Re-uploading a renamed copy ("report_v2.pdf", "report (1).pdf") updates
the same document instead of creating a duplicate, and the full version
history stays queryable.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("pensieve version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Library data directory (default ~/.pensieve/library)")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDocsCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newContextCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging routes slog to the rotating log file. Stderr mirroring
// stays off so command output is not interleaved with JSON log lines;
// the serve command keeps stdout clean for JSON-RPC either way.
func setupLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	cfg.WriteToStderr = false
	if flagDebug {
		cfg.Level = "debug"
	}

	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		// Logging is never worth failing the command over.
		slog.Warn("log file unavailable", slog.String("error", err.Error()))
		return nil
	}
	loggingCleanup = cleanup
	return nil
}

// Execute runs the root command.
func Execute() error {
	// A .env next to the binary can hold PENSIEVE_* overrides.
	_ = godotenv.Load()
	return NewRootCmd().Execute()
}
