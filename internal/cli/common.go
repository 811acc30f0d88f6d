package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riveredge/bulkport/internal/api"
	"github.com/riveredge/bulkport/internal/config"
	"github.com/riveredge/bulkport/internal/export"
	"github.com/riveredge/bulkport/internal/ingest"
	"github.com/riveredge/bulkport/internal/perf"
	"github.com/riveredge/bulkport/internal/tui"
	"github.com/riveredge/bulkport/pkg/version"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputPlain = "plain"
)

// globalConfig returns the configuration installed by the root command, falling
// back to the defaults when a command runs without it (tests).
func globalConfig() *config.Config {
	return config.GetGlobalConfig()
}

// apiSettings returns the API section with the connection flags applied.
func apiSettings(cmd *cobra.Command) config.APIConfig {
	cfg := globalConfig().API
	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.BaseURL = v
	}
	if v, _ := cmd.Flags().GetString("token"); v != "" {
		cfg.Token = v
	}
	if v, _ := cmd.Flags().GetString("tenant"); v != "" {
		cfg.TenantID = v
	}
	return cfg
}

// newAPIClient builds a client from the config and the connection flags.
func newAPIClient(cmd *cobra.Command, monitor *perf.Monitor) (*api.Client, error) {
	cfg := apiSettings(cmd)
	return api.NewClient(api.Options{
		BaseURL:   cfg.BaseURL,
		Token:     cfg.Token,
		TenantID:  cfg.TenantID,
		Timeout:   cfg.Timeout,
		Monitor:   monitor,
		UserAgent: "bulkport/" + version.GetVersion(),
	})
}

// loadRegistry returns the built-in entities plus those from --templates.
func loadRegistry(cmd *cobra.Command) (*ingest.Registry, error) {
	reg := ingest.BuiltinRegistry()
	path, _ := cmd.Flags().GetString("templates")
	if path == "" {
		return reg, nil
	}
	entities, err := ingest.LoadTemplates(path)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if err = reg.Add(e); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// outputMode picks the presentation for human-readable output.
func outputMode(cmd *cobra.Command, format string) tui.OutputMode {
	if format == outputPlain {
		return tui.OutputModePlain
	}
	plain, _ := cmd.Flags().GetBool("plain")
	noColor, _ := cmd.Flags().GetBool("no-color")
	if cmd.OutOrStdout() != os.Stdout {
		return tui.OutputModePlain
	}
	return tui.DetectOutputMode(false, noColor, plain)
}

// resolveOutputFormat validates --output, defaulting to the configured format.
func resolveOutputFormat(format string) (string, error) {
	if format == "" {
		format = globalConfig().Output.DefaultFormat
	}
	switch format {
	case outputTable, outputJSON, outputPlain:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported output format %q: use table, json or plain", format)
	}
}

// parseQuery turns repeated k=v flags into query values.
func parseQuery(pairs []string) (url.Values, error) {
	q := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid query %q: expected key=value", p)
		}
		q.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	return q, nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTableFile writes t as BOM-prefixed CSV to path, or to w when path is empty or "-".
func writeTableFile(w io.Writer, path string, t export.Table) error {
	if path == "" || path == "-" {
		return export.WriteCSV(w, t)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err = export.WriteCSV(f, t); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// printPerfSummary prints request timings when --verbose is set and ends the
// monitor's collection.
func printPerfSummary(cmd *cobra.Command, monitor *perf.Monitor) {
	defer monitor.Reset()
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose || monitor == nil {
		return
	}
	stats := monitor.Snapshot()
	if len(stats) == 0 {
		return
	}
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "\nRequests (%s):\n", tui.FormatDuration(monitor.Uptime()))
	for _, s := range stats {
		fmt.Fprintf(w, "  %-60s count=%-5d errors=%-4d mean=%-10s p95=%-10s max=%s\n",
			s.Name, s.Count, s.Errors,
			tui.FormatDuration(s.Mean), tui.FormatDuration(s.P95), tui.FormatDuration(s.Max))
	}
}

// lookupFunc resolves reference parents through the API.
func lookupFunc(client *api.Client, reg *ingest.Registry) ingest.LookupFunc {
	return func(ctx context.Context, name string) ([]map[string]any, error) {
		parent, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		return client.ListAll(ctx, parent.Endpoint, api.Paging(parent.PagingStyle()), nil, api.DefaultPageSize)
	}
}

// friendlyError adds a hint to errors users can act on.
func friendlyError(err error) error {
	switch {
	case errors.Is(err, api.ErrAuthExpired):
		return fmt.Errorf("%w (set a token with 'bulkport config set api.token <token>' or --token)", err)
	case errors.Is(err, context.Canceled):
		return errors.New("interrupted")
	default:
		return err
	}
}
