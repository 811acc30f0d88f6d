package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/riveredge/bulkport/internal/engine/batch"
)

// maxListedErrors bounds the failures shown in the styled summary.
const maxListedErrors = 20

// ImportSummary is what the summary views render.
type ImportSummary struct {
	Entity    string           `json:"entity"`
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Invalid   int              `json:"invalid"`
	Rounds    int              `json:"rounds"`
	Duration  time.Duration    `json:"duration"`
	Errors    []batch.RowError `json:"errors"`
	DryRun    bool             `json:"dry_run"`
}

// NewImportSummary builds a summary from a finished run.
func NewImportSummary[T, R any](entity string, res *batch.Result[T, R]) ImportSummary {
	return ImportSummary{
		Entity:    entity,
		Total:     res.Total,
		Succeeded: res.SuccessCount,
		Failed:    res.FailureCount,
		Rounds:    res.Rounds,
		Duration:  res.Duration,
		Errors:    append([]batch.RowError(nil), res.Errors...),
	}
}

// RenderImportSummary renders the styled summary box followed by the failures.
func RenderImportSummary(s ImportSummary, width int) string {
	var content strings.Builder

	title := "Import " + s.Entity
	if s.DryRun {
		title += " (dry run)"
	}
	content.WriteString(HeaderStyle.Render(title))
	content.WriteString("\n\n")

	line := func(label, value string) {
		content.WriteString(LabelStyle.Render(fmt.Sprintf("%-10s", label)))
		content.WriteString(value)
		content.WriteString("\n")
	}
	line("Total", ValueStyle.Render(FormatCount(s.Total)))
	line("Succeeded", OKStyle.Render(IconOK+" "+FormatCount(s.Succeeded)))
	failed := FormatCount(s.Failed)
	if s.Failed > 0 {
		line("Failed", ErrorStyle.Render(IconFailed+" "+failed))
	} else {
		line("Failed", MutedStyle.Render(failed))
	}
	if s.Skipped > 0 {
		line("Skipped", WarnStyle.Render(IconSkipped+" "+FormatCount(s.Skipped)))
	}
	if s.Invalid > 0 {
		line("Invalid", WarnStyle.Render(FormatCount(s.Invalid)))
	}
	line("Rounds", FormatCount(s.Rounds))
	line("Duration", FormatDuration(s.Duration)+MutedStyle.Render("  "+FormatRate(s.Total, s.Duration)))

	if len(s.Errors) > 0 {
		content.WriteString("\n")
		content.WriteString(HeaderStyle.Render("Failed rows"))
		content.WriteString("\n")
		for i, e := range s.Errors {
			if i == maxListedErrors {
				content.WriteString(MutedStyle.Render(
					fmt.Sprintf("... and %s more", FormatCount(len(s.Errors)-maxListedErrors))))
				content.WriteString("\n")
				break
			}
			content.WriteString(ErrorStyle.Render(fmt.Sprintf("row %d", e.Row)))
			content.WriteString("  ")
			content.WriteString(e.Error)
			content.WriteString("\n")
		}
	}

	box := BoxStyle
	if width > borderPadding {
		box = box.Width(width - borderPadding)
	}
	return lipgloss.JoinVertical(lipgloss.Left, box.Render(strings.TrimRight(content.String(), "\n")))
}

// RenderPlainSummary writes an unstyled summary listing every failed row.
func RenderPlainSummary(w io.Writer, s ImportSummary) error {
	var b strings.Builder
	mode := ""
	if s.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(&b, "Import %s%s: total=%s succeeded=%s failed=%s",
		s.Entity, mode, FormatCount(s.Total), FormatCount(s.Succeeded), FormatCount(s.Failed))
	if s.Skipped > 0 {
		fmt.Fprintf(&b, " skipped=%s", FormatCount(s.Skipped))
	}
	if s.Invalid > 0 {
		fmt.Fprintf(&b, " invalid=%s", FormatCount(s.Invalid))
	}
	fmt.Fprintf(&b, " rounds=%d duration=%s\n", s.Rounds, FormatDuration(s.Duration))
	for _, e := range s.Errors {
		fmt.Fprintf(&b, "  row %d: %s\n", e.Row, e.Error)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
