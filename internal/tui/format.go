package tui

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//nolint:gochecknoglobals // Printers are safe for concurrent use.
var printer = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatRate renders items per second, or "-" when d is zero.
func FormatRate(n int, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return FormatPerSecond(float64(n) / d.Seconds())
}

// FormatPerSecond renders a precomputed rate, or "-" when it is zero.
func FormatPerSecond(rate float64) string {
	if rate <= 0 {
		return "-"
	}
	return printer.Sprintf("%.1f/s", rate)
}

// FormatDuration rounds d for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// FormatPercent renders part/total as a whole percentage.
func FormatPercent(part, total int) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", part*100/total) //nolint:mnd // Percentage.
}
