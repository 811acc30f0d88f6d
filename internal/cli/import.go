package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/riveredge/bulkport/internal/api"
	"github.com/riveredge/bulkport/internal/config"
	"github.com/riveredge/bulkport/internal/engine/batch"
	"github.com/riveredge/bulkport/internal/engine/journal"
	"github.com/riveredge/bulkport/internal/export"
	"github.com/riveredge/bulkport/internal/ingest"
	"github.com/riveredge/bulkport/internal/logging"
	"github.com/riveredge/bulkport/internal/perf"
	"github.com/riveredge/bulkport/internal/tui"
)

// importOptions holds the import command flags.
type importOptions struct {
	file               string
	output             string
	errorsCSV          string
	concurrency        int
	retries            int
	retryDelay         time.Duration
	skipSucceeded      bool
	skipInvalid        bool
	failOnError        bool
	dryRun             bool
	retryTransientOnly bool
}

// importReport is the JSON document written by --output json.
type importReport struct {
	tui.ImportSummary

	Invalid   []ingest.RowIssue `json:"invalid_rows,omitempty"`
	ErrorsCSV string            `json:"errors_csv,omitempty"`
}

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <entity>",
		Short: "Import a sheet of records in concurrent, retried batches",
		Long: `Reads a CSV or JSON sheet laid out like the entity's template (headers in
row 1, the example row in row 2, data from row 3), validates every row and
creates the records through the API.

Rows are sent in rounds of --concurrency requests; the next round starts once
every request of the current one has settled. Each row is tried up to --retries
times with a linear backoff of --retry-delay times the attempt number.

Rows that fail local validation stop the import unless --skip-invalid is set.`,
		Example: `  # Import plants with the configured defaults
  bulkport import plants --file plants.csv

  # 10 requests per round, 5 attempts per row, failed rows written for a retry
  bulkport import users --file users.csv --concurrency 10 --retries 5 --errors-csv failed.csv

  # Only check the sheet
  bulkport import workshops --file workshops.csv --dry-run

  # Skip rows imported by an earlier run and fail the build on any error
  bulkport import materials --file materials.csv --skip-succeeded --fail-on-error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "sheet to import (.csv or .json)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output format: table, json or plain")
	cmd.Flags().StringVar(&opts.errorsCSV, "errors-csv", "", "write failed and invalid rows to this CSV file")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", config.DefaultConcurrency,
		fmt.Sprintf("requests per round (1-%d)", config.MaxConcurrency))
	cmd.Flags().IntVar(&opts.retries, "retries", config.DefaultRetryCount,
		fmt.Sprintf("attempts per row (1-%d)", config.MaxRetryCount))
	cmd.Flags().DurationVar(&opts.retryDelay, "retry-delay", config.DefaultRetryDelay,
		"backoff unit; attempt n waits n times this")
	cmd.Flags().BoolVar(&opts.skipSucceeded, "skip-succeeded", false, "skip rows recorded as imported by earlier runs")
	cmd.Flags().BoolVar(&opts.skipInvalid, "skip-invalid", false, "import the valid rows even if some rows are invalid")
	cmd.Flags().BoolVar(&opts.failOnError, "fail-on-error", false,
		fmt.Sprintf("exit with code %d when any row failed", ExitCodeImportFailed))
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate the sheet without calling the API")
	cmd.Flags().BoolVar(&opts.retryTransientOnly, "retry-transient-only", false,
		"retry only timeouts, rate limits and server errors")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// importSettings applies explicitly set flags over the configured import section.
func importSettings(cmd *cobra.Command, opts importOptions) config.ImportConfig {
	settings := globalConfig().Import
	if cmd.Flags().Changed("concurrency") {
		settings.Concurrency = opts.concurrency
	}
	if cmd.Flags().Changed("retries") {
		settings.RetryCount = opts.retries
	}
	if cmd.Flags().Changed("retry-delay") {
		settings.RetryDelay = opts.retryDelay
	}
	if cmd.Flags().Changed("skip-succeeded") {
		settings.SkipSucceeded = opts.skipSucceeded
	}
	return settings
}

//nolint:funlen,gocognit // Sequential pipeline: read, validate, filter, run, report.
func runImport(cmd *cobra.Command, entityName string, opts importOptions) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	format, err := resolveOutputFormat(opts.output)
	if err != nil {
		return err
	}
	settings := importSettings(cmd, opts)
	proc, err := newImportProcessor(settings, opts.retryTransientOnly)
	if err != nil {
		return err
	}

	reg, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	entity, err := reg.Get(entityName)
	if err != nil {
		return fmt.Errorf("%w (see 'bulkport entities')", err)
	}

	sheet, err := ingest.LoadSheet(ctx, opts.file)
	if err != nil {
		return err
	}
	records, issues, err := ingest.MapRecords(entity, sheet)
	if err != nil {
		return err
	}

	monitor := perf.NewMonitor()
	defer printPerfSummary(cmd, monitor)

	var client *api.Client
	if !opts.dryRun {
		if client, err = newAPIClient(cmd, monitor); err != nil {
			return err
		}
		var refIssues []ingest.RowIssue
		records, refIssues, err = ingest.ResolveReferences(ctx, entity, records, lookupFunc(client, reg))
		if err != nil {
			return friendlyError(err)
		}
		issues = append(issues, refIssues...)
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Row < issues[j].Row })

	summary := tui.ImportSummary{Entity: entity.Name, Invalid: len(issues), DryRun: opts.dryRun}
	failed := newFailedRows(sheet)
	for _, issue := range issues {
		failed.add(issue.Row, issue.Error)
	}

	if len(issues) > 0 && !opts.skipInvalid {
		summary.Errors = issueErrors(issues)
		if writeErr := writeFailedRows(cmd, opts.errorsCSV, sheet, failed); writeErr != nil {
			return writeErr
		}
		if renderErr := renderImport(cmd, format, summary, issues, opts.errorsCSV); renderErr != nil {
			return renderErr
		}
		return fmt.Errorf("%w: %d of %d rows (fix them or use --skip-invalid)",
			ErrInvalidRows, len(issues), len(sheet.Rows))
	}

	store, err := openJournal()
	if err != nil {
		return err
	}
	pending, keys, skipped, err := filterImported(store, entity.Name, records, settings.SkipSucceeded)
	if err != nil {
		return err
	}
	summary.Skipped = skipped

	if opts.dryRun {
		summary.Total = len(pending)
		summary.Errors = issueErrors(issues)
		if writeErr := writeFailedRows(cmd, opts.errorsCSV, sheet, failed); writeErr != nil {
			return writeErr
		}
		return renderImport(cmd, format, summary, issues, opts.errorsCSV)
	}

	proc.WithRowNumbering(func(i int) int { return pending[i].Row })
	importFn := func(ctx context.Context, rec ingest.Record) (map[string]any, error) {
		data, createErr := client.Create(ctx, entity.Endpoint, rec.Fields)
		if createErr != nil && opts.retryTransientOnly && !api.IsRetryable(createErr) {
			return nil, batch.Permanent(createErr)
		}
		return data, createErr
	}

	log.Info().Ctx(ctx).
		Str("operation", "import").
		Str("entity", entity.Name).
		Int("rows", len(pending)).
		Int("skipped", skipped).
		Int("invalid", len(issues)).
		Int("concurrency", proc.Concurrency()).
		Int("retry_attempts", proc.RetryPolicy().Attempts).
		Msg("importing")

	result, runErr := executeImport(cmd, format, entity, proc, pending, importFn)
	if result == nil {
		return friendlyError(runErr)
	}

	if store.IsEnabled() {
		recordImported(ctx, store, entity.Name, result, keys)
	}

	for _, f := range result.FailureItems {
		failed.add(f.Row, f.Error)
	}
	if writeErr := writeFailedRows(cmd, opts.errorsCSV, sheet, failed); writeErr != nil {
		return writeErr
	}

	remote := tui.NewImportSummary(entity.Name, result)
	remote.Skipped = summary.Skipped
	remote.Invalid = summary.Invalid
	remote.Errors = mergeErrors(result.Errors, issues)
	if err = renderImport(cmd, format, remote, issues, opts.errorsCSV); err != nil {
		return err
	}

	if runErr != nil {
		return friendlyError(runErr)
	}
	if opts.failOnError && (result.HasFailures() || len(issues) > 0) {
		return &ImportFailedError{
			ExitCode: ExitCodeImportFailed,
			Failed:   result.FailureCount + len(issues),
			Total:    result.Total + len(issues),
		}
	}
	return nil
}

func newImportProcessor(
	settings config.ImportConfig, transientOnly bool,
) (*batch.Processor[ingest.Record, map[string]any], error) {
	proc, err := batch.NewProcessor[ingest.Record, map[string]any](settings.Concurrency)
	if err != nil {
		return nil, err
	}
	policy := batch.RetryPolicy{Attempts: settings.RetryCount, BaseDelay: settings.RetryDelay}
	if transientOnly {
		policy.RetryIf = batch.RetryUnlessPermanent
	}
	return proc.WithRetryPolicy(policy)
}

// executeImport runs the processor with the progress display matching the output mode.
// The returned error is the context error when the run was interrupted.
func executeImport(
	cmd *cobra.Command,
	format string,
	entity *ingest.Entity,
	proc *batch.Processor[ingest.Record, map[string]any],
	pending []ingest.Record,
	importFn batch.ImportFunc[ingest.Record, map[string]any],
) (*batch.Result[ingest.Record, map[string]any], error) {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if format == outputJSON || len(pending) == 0 {
		logger := logging.FromContext(ctx)
		proc.WithProgressCallback(func(current, total, succeeded, failed int) {
			logger.Debug().Ctx(ctx).
				Int("current", current).
				Int("total", total).
				Int("succeeded", succeeded).
				Int("failed", failed).
				Msg("import progress")
		})
		result, err := proc.Run(ctx, pending, importFn)
		if err != nil {
			return nil, err
		}
		return result, ctx.Err()
	}

	if outputMode(cmd, format) != tui.OutputModeInteractive {
		proc.WithSnapshotCallback(tui.PlainProgress(cmd.ErrOrStderr()))
		result, err := proc.Run(ctx, pending, importFn)
		if err != nil {
			return nil, err
		}
		return result, ctx.Err()
	}

	model := tui.NewImportProgressModel(fmt.Sprintf("Importing %s (%s)", entity.Title, entity.Name), len(pending), cancel)
	program := tea.NewProgram(model, tea.WithOutput(cmd.ErrOrStderr()), tea.WithInput(cmd.InOrStdin()))
	proc.WithSnapshotCallback(tui.ProgramProgress(program))
	proc.WithCompleteCallback(func(*batch.Result[ingest.Record, map[string]any]) {
		program.Send(tui.DoneMsg{})
	})

	type outcome struct {
		result *batch.Result[ingest.Record, map[string]any]
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := proc.Run(ctx, pending, importFn)
		if err != nil {
			program.Send(tui.DoneMsg{Err: err})
		}
		done <- outcome{result: result, err: err}
	}()

	if _, err := program.Run(); err != nil {
		logger := logging.FromContext(cmd.Context())
		logger.Warn().Ctx(cmd.Context()).Err(err).Msg("progress display failed, import continues")
	}
	out := <-done
	if out.err != nil {
		return nil, out.err
	}
	return out.result, ctx.Err()
}

// openJournal opens the journal described by config and BULKPORT_JOURNAL_* variables.
func openJournal() (*journal.Store, error) {
	cfg := globalConfig().Journal
	enabled := journal.GetEnabledFromEnv(cfg.Enabled)
	dir := journal.GetDirFromEnv(cfg.Directory)
	ttl := journal.GetTTLFromEnv(cfg.TTLSeconds)
	if dir == "" {
		enabled = false
	}
	store, err := journal.NewStore(dir, enabled, ttl)
	if err != nil {
		return nil, fmt.Errorf("opening import journal: %w", err)
	}
	return store, nil
}

// filterImported drops records the journal already holds when skip is set. keys
// holds the journal key of every returned record, by position.
func filterImported(
	store *journal.Store, entity string, records []ingest.Record, skip bool,
) ([]ingest.Record, []string, int, error) {
	if !store.IsEnabled() {
		if skip {
			return nil, nil, 0, errors.New("--skip-succeeded needs the import journal (journal.enabled)")
		}
		return records, nil, 0, nil
	}

	all := make([]string, len(records))
	for i, rec := range records {
		key, err := journal.Key(rec.Fields)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("row %d: %w", rec.Row, err)
		}
		all[i] = key
	}
	if !skip {
		return records, all, 0, nil
	}

	seen, err := store.Contains(entity, all)
	if err != nil {
		return nil, nil, 0, err
	}
	pending := make([]ingest.Record, 0, len(records))
	keys := make([]string, 0, len(records))
	for i, rec := range records {
		if seen[all[i]] {
			continue
		}
		pending = append(pending, rec)
		keys = append(keys, all[i])
	}
	return pending, keys, len(records) - len(pending), nil
}

// recordImported journals the successful rows. Journal failures are logged, not returned.
func recordImported(
	ctx context.Context,
	store *journal.Store,
	entity string,
	result *batch.Result[ingest.Record, map[string]any],
	keys []string,
) {
	runID := logging.TraceIDFromContext(ctx)
	entries := make([]journal.Entry, 0, len(result.SuccessItems))
	for _, s := range result.SuccessItems {
		if s.Index < len(keys) {
			entries = append(entries, store.NewEntry(keys[s.Index], s.Row, runID))
		}
	}
	if err := store.Record(entity, entries); err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().Ctx(ctx).Err(err).Str("entity", entity).Msg("could not update import journal")
	}
}

// failedRows collects failed sheet rows with their messages.
type failedRows struct {
	cells map[int][]string
	rows  []export.FailedRow
}

func newFailedRows(sheet *ingest.Sheet) *failedRows {
	cells := make(map[int][]string, len(sheet.Rows))
	for _, r := range sheet.Rows {
		cells[r.Number] = r.Cells
	}
	return &failedRows{cells: cells}
}

func (f *failedRows) add(row int, msg string) {
	f.rows = append(f.rows, export.FailedRow{Row: row, Cells: f.cells[row], Error: msg})
}

// writeFailedRows writes the failed rows when path is set and there are any.
func writeFailedRows(cmd *cobra.Command, path string, sheet *ingest.Sheet, failed *failedRows) error {
	if path == "" || len(failed.rows) == 0 {
		return nil
	}
	return writeTableFile(cmd.OutOrStdout(), path, export.FailedRowsTable(sheet.Headers, failed.rows))
}

func issueErrors(issues []ingest.RowIssue) []batch.RowError {
	out := make([]batch.RowError, len(issues))
	for i, issue := range issues {
		out[i] = batch.RowError{Row: issue.Row, Error: issue.Error}
	}
	return out
}

// mergeErrors combines remote failures and local issues in row order.
func mergeErrors(remote []batch.RowError, issues []ingest.RowIssue) []batch.RowError {
	out := make([]batch.RowError, 0, len(remote)+len(issues))
	out = append(out, remote...)
	out = append(out, issueErrors(issues)...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

func renderImport(
	cmd *cobra.Command, format string, summary tui.ImportSummary, issues []ingest.RowIssue, errorsCSV string,
) error {
	w := cmd.OutOrStdout()
	if format == outputJSON {
		report := importReport{ImportSummary: summary, Invalid: issues}
		if len(summary.Errors) > 0 {
			report.ErrorsCSV = errorsCSV
		}
		return writeJSON(w, report)
	}

	if outputMode(cmd, format) == tui.OutputModePlain {
		if err := tui.RenderPlainSummary(w, summary); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, tui.RenderImportSummary(summary, tui.TerminalWidth()))
	}
	if errorsCSV != "" && len(summary.Errors) > 0 {
		fmt.Fprintf(w, "Failed rows written to %s\n", errorsCSV)
	}
	return nil
}
