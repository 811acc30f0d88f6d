package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/riveredge/bulkport/internal/config"
)

// projectOverlay is what a project config holds: the sections that differ
// between projects. Other sections come from the global config.
type projectOverlay struct {
	API    config.APIConfig    `yaml:"api"`
	Import config.ImportConfig `yaml:"import"`
}

// NewConfigInitCmd creates the config init command.
// Inside a project and without --global it writes a project overlay holding the
// api and import sections; otherwise the full global ~/.bulkport/config.yaml.
func NewConfigInitCmd() *cobra.Command {
	var (
		force  bool
		global bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a configuration file with default values. The --api-url and
--tenant flags, when given, are stored in it.

Inside a project (see --project-dir), creates $PROJECT/.bulkport/config.yaml
holding the api and import sections, plus a .gitignore that keeps the import
journal and logs out of version control. Use --global to initialize
~/.bulkport/config.yaml even inside a project.`,
		Example: `  # Create project configuration for a test tenant
  bulkport config init --project-dir . --api-url https://erp-test.example.com --tenant 2

  # Create global configuration
  bulkport config init --global

  # Overwrite an existing configuration
  bulkport config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			cfg.API = apiSettingsOver(cmd, cfg.API)

			projectDir := config.GetResolvedProjectDir()
			if projectDir != "" && !global {
				return initProjectConfig(cmd, projectDir, cfg, force)
			}
			return initGlobalConfig(cmd, cfg, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	cmd.Flags().BoolVar(&global, "global", false, "initialize the global configuration even inside a project")

	return cmd
}

// apiSettingsOver applies the connection flags to base. The token is never
// written by init.
func apiSettingsOver(cmd *cobra.Command, base config.APIConfig) config.APIConfig {
	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		base.BaseURL = v
	}
	if v, _ := cmd.Flags().GetString("tenant"); v != "" {
		base.TenantID = v
	}
	return base
}

// checkWritable refuses to overwrite path unless force is set.
func checkWritable(path string, force bool) error {
	if force {
		return nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return errors.New("configuration file already exists, use --force to overwrite")
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access config path %s: %w", path, err)
	}
	return nil
}

func initProjectConfig(cmd *cobra.Command, projectDir string, cfg *config.Config, force bool) error {
	configPath := filepath.Join(projectDir, "config.yaml")
	if err := checkWritable(configPath, force); err != nil {
		return err
	}
	if err := os.MkdirAll(projectDir, 0o750); err != nil {
		return fmt.Errorf("failed to create project config directory: %w", err)
	}

	data, err := yaml.Marshal(projectOverlay{API: cfg.API, Import: cfg.Import})
	if err != nil {
		return fmt.Errorf("failed to marshal project configuration: %w", err)
	}
	if err = os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	created, err := config.EnsureGitignore(projectDir)
	if err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	cmd.Printf("Project configuration initialized at %s\n", configPath)
	if created {
		cmd.Printf("Created .gitignore for the journal and logs\n")
	}
	return nil
}

func initGlobalConfig(cmd *cobra.Command, cfg *config.Config, force bool) error {
	if err := checkWritable(cfg.ConfigPath(), force); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	cmd.Printf("Configuration file: %s\n", cfg.ConfigPath())
	return nil
}
