// Package cli implements the codeflow command line: index a tree into the
// snapshot store, query it, or serve it over HTTP.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpolishuk/codeflow/internal/config"
	"github.com/dpolishuk/codeflow/internal/logging"
)

// Version is the current version of codeflow
var Version = "0.1.0"

const (
	FormatJSON = "json"
	FormatText = "text"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	snapshotDB string
	logLevel   string
	format     string
	verbose    bool

	// stderr receives logs; tests replace it.
	stderr io.Writer
}

// config loads the environment, then applies flag overrides.
func (g *globals) config() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if g.snapshotDB != "" {
		cfg.SnapshotPath = g.snapshotDB
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// logger writes text logs to stderr so stdout stays machine readable.
func (g *globals) logger(cfg *config.Config) *slog.Logger {
	return logging.New(g.stderr, "text", logging.LevelFromString(cfg.LogLevel))
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "codeflow",
		Short: "Search code and trace UI-to-backend flows",
		Long: `codeflow indexes a source tree into entities (functions, classes, routes,
API calls, event listeners and HTML elements), infers the relations between
them, and answers searches with lexical, semantic and graph-context signals.

Examples:
  codeflow index ./myapp                 # Build and persist a snapshot
  codeflow index https://github.com/org/app.git --branch main
  codeflow search "where is login handled"
  codeflow related 'static/app.js::handleSearch::3'
  codeflow flow "search button"          # UI -> handler -> API -> backend
  codeflow serve                         # HTTP API on BACKEND_PORT`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.snapshotDB, "snapshot-db", "", "Path to the snapshot database (default: SNAPSHOT_PATH)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: LOG_LEVEL)")
	root.PersistentFlags().StringVar(&g.format, "format", FormatText, "Output format: text or json")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newIndexCmd(g),
		newSearchCmd(g),
		newRelatedCmd(g),
		newFlowCmd(g),
		newServeCmd(g),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
