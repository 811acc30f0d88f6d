package tui

import (
	"os"

	"golang.org/x/term"
)

// OutputMode is how results are presented.
type OutputMode int

const (
	// OutputModePlain writes unstyled lines, for pipes, files and NO_COLOR.
	OutputModePlain OutputMode = iota
	// OutputModeStyled writes lipgloss-styled output without an interactive program.
	OutputModeStyled
	// OutputModeInteractive runs a bubbletea program.
	OutputModeInteractive
)

// String returns the mode name.
func (m OutputMode) String() string {
	switch m {
	case OutputModeInteractive:
		return "interactive"
	case OutputModeStyled:
		return "styled"
	default:
		return "plain"
	}
}

// defaultTerminalWidth is used when the width cannot be determined.
const defaultTerminalWidth = 80

// DetectOutputMode picks a mode for stdout. plain always wins, then noColor and
// the NO_COLOR variable; forceColor styles output even when stdout is not a TTY.
func DetectOutputMode(forceColor, noColor, plain bool) OutputMode {
	return detectOutputMode(forceColor, noColor, plain, IsTTY(), os.LookupEnv)
}

func detectOutputMode(
	forceColor, noColor, plain, tty bool,
	lookupEnv func(string) (string, bool),
) OutputMode {
	if plain || noColor {
		return OutputModePlain
	}
	if _, set := lookupEnv("NO_COLOR"); set {
		return OutputModePlain
	}
	if v, _ := lookupEnv("TERM"); v == "dumb" {
		return OutputModePlain
	}
	if tty {
		if _, ci := lookupEnv("CI"); ci {
			return OutputModeStyled
		}
		return OutputModeInteractive
	}
	if forceColor {
		return OutputModeStyled
	}
	return OutputModePlain
}

// IsTTY reports whether stdout is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the stdout width, or a default when unknown.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	return width
}
