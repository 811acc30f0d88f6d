package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/riveredge/bulkport/internal/engine/batch"
)

// maxBarWidth caps the progress bar width on wide terminals.
const maxBarWidth = 60

// ProgressMsg reports that another round has settled.
type ProgressMsg struct {
	Current   int
	Total     int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
	Remaining time.Duration
}

// DoneMsg ends the progress program.
type DoneMsg struct {
	Err error
}

// ImportProgressModel shows a progress bar while an import runs.
type ImportProgressModel struct {
	title     string
	bar       progress.Model
	current   int
	total     int
	succeeded int
	failed    int
	elapsed   time.Duration
	remaining time.Duration
	cancel    context.CancelFunc

	done        bool
	interrupted bool
	err         error
}

// NewImportProgressModel creates the model. cancel, when set, is called on ctrl+c.
func NewImportProgressModel(title string, total int, cancel context.CancelFunc) ImportProgressModel {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth))
	return ImportProgressModel{
		title:  title,
		bar:    bar,
		total:  total,
		cancel: cancel,
	}
}

// Init implements tea.Model.
func (m ImportProgressModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ImportProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-borderPadding, maxBarWidth)
		return m, nil
	case ProgressMsg:
		m.current = msg.Current
		m.total = msg.Total
		m.succeeded = msg.Succeeded
		m.failed = msg.Failed
		m.elapsed = msg.Elapsed
		m.remaining = msg.Remaining
		return m, nil
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

// Percent returns completion in [0, 1].
func (m ImportProgressModel) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.current) / float64(m.total)
}

// Interrupted reports whether the user stopped the import.
func (m ImportProgressModel) Interrupted() bool {
	return m.interrupted
}

// View implements tea.Model.
func (m ImportProgressModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s/%s   %s %s   %s %s   %s\n",
		LabelStyle.Render("rows"),
		ValueStyle.Render(FormatCount(m.current)), FormatCount(m.total),
		OKStyle.Render(IconOK), FormatCount(m.succeeded),
		ErrorStyle.Render(IconFailed), FormatCount(m.failed),
		MutedStyle.Render(FormatDuration(m.elapsed)+"  "+FormatRate(m.current, m.elapsed)))
	if m.current > 0 && m.current < m.total {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("eta"), FormatDuration(m.remaining))
	}
	if m.interrupted {
		b.WriteString(WarnStyle.Render("stopping after the current round..."))
		b.WriteString("\n")
	} else {
		b.WriteString(MutedStyle.Render("ctrl+c to stop"))
		b.WriteString("\n")
	}
	return b.String()
}

// ProgramProgress forwards progress snapshots to a running program.
func ProgramProgress(p *tea.Program) batch.SnapshotCallback {
	return func(snap batch.ProgressSnapshot) {
		p.Send(ProgressMsg{
			Current:   snap.ProcessedItems,
			Total:     snap.TotalItems,
			Succeeded: snap.SuccessCount,
			Failed:    snap.FailureCount,
			Elapsed:   snap.Elapsed,
			Remaining: snap.Remaining,
		})
	}
}

// PlainProgress writes one line per settled round to w.
func PlainProgress(w io.Writer) batch.SnapshotCallback {
	return func(snap batch.ProgressSnapshot) {
		fmt.Fprintf(w, "progress %s/%s (%s) succeeded=%s failed=%s rate=%s eta=%s\n",
			FormatCount(snap.ProcessedItems), FormatCount(snap.TotalItems),
			FormatPercent(snap.ProcessedItems, snap.TotalItems),
			FormatCount(snap.SuccessCount), FormatCount(snap.FailureCount),
			FormatPerSecond(snap.ItemsPerSecond), FormatDuration(snap.Remaining))
	}
}
