package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/riveredge/bulkport/internal/config"
	"github.com/riveredge/bulkport/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the bulkport CLI.
// It wires up configuration, logging and tracing before any subcommand runs.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:     "bulkport",
		Short:   "Bulk import and export for master data",
		Long:    "bulkport: import spreadsheets into the backend in concurrent, retried batches and export them back",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loadConfig(cmd)
			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("project-dir", "", "project directory holding .bulkport/config.yaml")
	cmd.PersistentFlags().String("api-url", "", "backend base URL (overrides config)")
	cmd.PersistentFlags().String("token", "", "API bearer token (overrides config)")
	cmd.PersistentFlags().String("tenant", "", "tenant id sent as X-Tenant-ID (overrides config)")
	cmd.PersistentFlags().String("templates", "", "YAML file with additional entity templates")
	cmd.PersistentFlags().Bool("plain", false, "plain text output without colors or progress bar")
	cmd.PersistentFlags().Bool("no-color", false, "disable colors")
	cmd.PersistentFlags().Bool("verbose", false, "print request timings after the command")

	cmd.AddCommand(
		NewImportCmd(), NewExportCmd(), NewTemplateCmd(), NewReportCmd(),
		NewEntitiesCmd(), NewStatusCmd(), newConfigCmd(),
	)
	return cmd
}

// loadConfig resolves the project directory and installs the merged configuration
// as the global config.
func loadConfig(cmd *cobra.Command) {
	flagDir, _ := cmd.Flags().GetString("project-dir")
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	projectDir := config.ResolveProjectDir(cmd.Context(), flagDir, cwd)
	config.SetResolvedProjectDir(projectDir)
	config.SetGlobalConfig(config.NewWithProjectDir(cmd.Context(), projectDir))
}

const rootCmdExample = `  # Write an import template for plants
  bulkport template plants --out plants.csv

  # Import plants, 10 requests at a time, writing failed rows for a retry
  bulkport import plants --file plants.csv --concurrency 10 --errors-csv failed.csv

  # Validate a sheet without sending anything
  bulkport import users --file users.csv --dry-run

  # Export all warehouses
  bulkport export warehouses --out warehouses.csv

  # Report production for the next pending operation of a work order
  bulkport report --work-order WO20240001

  # Set configuration values
  bulkport config set import.concurrency 10`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(
		NewConfigInitCmd(), NewConfigSetCmd(), NewConfigGetCmd(),
		NewConfigListCmd(), NewConfigValidateCmd(),
	)
	return cmd
}
