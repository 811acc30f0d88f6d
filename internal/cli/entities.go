package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewEntitiesCmd creates the entities command listing importable entities.
func NewEntitiesCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List importable entities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := loadRegistry(cmd)
			if err != nil {
				return err
			}

			if output == outputJSON {
				type entry struct {
					Name     string   `json:"name"`
					Title    string   `json:"title"`
					Endpoint string   `json:"endpoint"`
					Required []string `json:"required"`
				}
				var entries []entry
				for _, name := range reg.Names() {
					e, _ := reg.Get(name)
					var required []string
					for _, c := range e.RequiredColumns() {
						required = append(required, c.Header)
					}
					entries = append(entries, entry{e.Name, e.Title, e.Endpoint, required})
				}
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // Column padding.
			fmt.Fprintln(w, "NAME\tTITLE\tENDPOINT\tREQUIRED")
			for _, name := range reg.Names() {
				e, _ := reg.Get(name)
				var required []string
				for _, c := range e.RequiredColumns() {
					required = append(required, c.Header)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Title, e.Endpoint, strings.Join(required, ", "))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}
