package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/riveredge/bulkport/internal/config"
)

// NewConfigSetCmd creates the config set command. It edits the global file only,
// so values from the project file or the environment do not leak into it.
func NewConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: `  bulkport config set api.base_url https://erp.example.com
  bulkport config set import.retry_delay 1s`,
		Args: cobra.ExactArgs(2), //nolint:mnd // key and value.
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := loadIfExists(cfg); err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("refusing to save invalid configuration: %w", err)
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			shown := args[1]
			if args[0] == "api.token" {
				shown = config.MaskSecret(shown)
			}
			cmd.Printf("Set %s = %s\n", args[0], shown)
			return nil
		},
	}
}

// NewConfigGetCmd creates the config get command showing the effective value.
func NewConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a configuration key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := globalConfig().Get(args[0])
			if err != nil {
				return fmt.Errorf("%w (keys: %v)", err, config.Keys())
			}
			cmd.Println(v)
			return nil
		},
	}
}

// NewConfigListCmd creates the config list command.
func NewConfigListCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			values := globalConfig().List()
			if output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), values)
			}
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				cmd.Printf("%-24s %s\n", k, values[k])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

// loadIfExists reads cfg's file when it exists.
func loadIfExists(cfg *config.Config) error {
	if cfg.ConfigPath() == "" {
		return fmt.Errorf("cannot locate the configuration directory (set %s)", config.EnvHome)
	}
	if !fileExists(cfg.ConfigPath()) {
		return nil
	}
	return cfg.Load()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
