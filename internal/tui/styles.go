package tui

import "github.com/charmbracelet/lipgloss"

// Palette.
const (
	ColorHeader  = lipgloss.Color("39")
	ColorLabel   = lipgloss.Color("245")
	ColorValue   = lipgloss.Color("255")
	ColorMuted   = lipgloss.Color("241")
	ColorOK      = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorError   = lipgloss.Color("196")
	ColorBorder  = lipgloss.Color("63")
)

// Status icons.
const (
	IconOK      = "✓"
	IconFailed  = "✗"
	IconSkipped = "↷"
)

// borderPadding is the horizontal space taken by a rounded border plus padding.
const borderPadding = 4

//nolint:gochecknoglobals // Shared lipgloss styles.
var (
	HeaderStyle = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	LabelStyle  = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle  = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	OKStyle     = lipgloss.NewStyle().Foreground(ColorOK).Bold(true)
	ErrorStyle  = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarning)
	InfoStyle   = lipgloss.NewStyle().Foreground(ColorHeader)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
)
