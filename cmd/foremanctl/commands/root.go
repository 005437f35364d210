package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	serverURL     string
	username      string
	password      string
	journalPath   string
	traceExporter string
	metricsListen string
	verbose       bool
	jsonOutput    bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "foremanctl",
		Short: "foremanctl - Declarative entity reconciliation for Foreman",
		Long: `foremanctl reconciles entities on a Foreman-compatible server against a
declarative YAML manifest.

For every manifest entry it looks up the current entity, resolves name
references to server ids, computes the minimal change set, and issues
only the API calls needed to converge. Plan mode previews every change
without touching the server.

Credentials can also be supplied via the FOREMANCTL_SERVER,
FOREMANCTL_USERNAME and FOREMANCTL_PASSWORD environment variables.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", os.Getenv("FOREMANCTL_SERVER"), "server URL")
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", os.Getenv("FOREMANCTL_USERNAME"), "API username")
	rootCmd.PersistentFlags().StringVar(&password, "password", os.Getenv("FOREMANCTL_PASSWORD"), "API password")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal", "", "SQLite run journal path (empty disables journaling)")
	rootCmd.PersistentFlags().StringVar(&traceExporter, "trace-exporter", "", "trace exporter (otlp, stdout; empty disables tracing)")
	rootCmd.PersistentFlags().StringVar(&metricsListen, "metrics-listen", "", "Prometheus metrics listen address (empty disables metrics)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newResourcesCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}
