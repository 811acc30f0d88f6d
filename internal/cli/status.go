package cli

import (
	"github.com/spf13/cobra"

	"github.com/riveredge/bulkport/internal/perf"
)

// defaultServerConstraint is the backend version range this client is written against.
const defaultServerConstraint = ">= 1.0.0, < 2.0.0"

// NewStatusCmd creates the status command checking the backend version.
func NewStatusCmd() *cobra.Command {
	var constraint string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the backend is reachable and compatible",
		Example: `  bulkport status
  bulkport status --require ">= 1.0.2"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			monitor := perf.NewMonitor()
			defer printPerfSummary(cmd, monitor)

			client, err := newAPIClient(cmd, monitor)
			if err != nil {
				return err
			}
			v, err := client.CheckVersion(cmd.Context(), constraint)
			if v != nil {
				cmd.Printf("Server: %s\nVersion: %s\n", apiSettings(cmd).BaseURL, v)
			}
			if err != nil {
				return friendlyError(err)
			}
			cmd.Printf("Compatible with %s\n", constraint)
			return nil
		},
	}

	cmd.Flags().StringVar(&constraint, "require", defaultServerConstraint, "semver constraint the server must satisfy")
	return cmd
}
