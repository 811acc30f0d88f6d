package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riveredge/bulkport/internal/config"
	"github.com/riveredge/bulkport/internal/engine/journal"
	"github.com/riveredge/bulkport/internal/ingest"
)

// NewConfigValidateCmd creates the config validate command.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Validates the configuration after merging the global file, the project
file and BULKPORT_* environment variables. Entity templates given with
--templates are validated too.`,
		Example: `  bulkport config validate
  bulkport config validate --templates suppliers.yaml --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the validated settings")
	return cmd
}

func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := globalConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if cfg.Journal.Enabled {
		if err := journal.ValidateTTL(cfg.Journal.TTLSeconds); err != nil {
			return fmt.Errorf("configuration validation failed: journal.ttl_seconds: %w", err)
		}
	}

	reg, err := loadRegistry(cmd)
	if err != nil {
		return fmt.Errorf("template validation failed: %w", err)
	}

	cmd.Printf("%s Configuration is valid\n", "✓")
	if verbose {
		printVerboseDetails(cmd, cfg, reg)
	}
	return nil
}

func printVerboseDetails(cmd *cobra.Command, cfg *config.Config, reg *ingest.Registry) {
	cmd.Println()
	if path := cfg.ConfigPath(); path != "" {
		cmd.Printf("Config file:   %s\n", path)
	}
	if dir := config.GetResolvedProjectDir(); dir != "" {
		cmd.Printf("Project:       %s\n", dir)
	}
	cmd.Printf("API:           %s (timeout %s)\n", cfg.API.BaseURL, cfg.API.Timeout)
	cmd.Printf("Import:        concurrency %d, %d attempts, %s backoff unit\n",
		cfg.Import.Concurrency, cfg.Import.RetryCount, cfg.Import.RetryDelay)
	if cfg.Journal.Enabled {
		cmd.Printf("Journal:       %s (ttl %ds)\n", cfg.Journal.Directory, cfg.Journal.TTLSeconds)
	} else {
		cmd.Printf("Journal:       disabled\n")
	}
	cmd.Printf("Entities:      %d\n", len(reg.Names()))
}
