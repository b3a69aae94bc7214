// Package console renders human-facing status lines. It is a thin
// collaborator per spec.md §1: no decision logic, only formatting,
// generalized from the teacher's two-ANSI-constant approach to
// lipgloss styles that respect NO_COLOR and non-TTY output.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	noColor bool
	out     io.Writer = os.Stdout
)

// SetNoColor forces color off regardless of terminal/NO_COLOR detection.
func SetNoColor(v bool) {
	noColor = v
}

// SetOutput redirects rendered output; tests use this to capture it.
func SetOutput(w io.Writer) {
	out = w
}

func colorEnabled() bool {
	if noColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func render(style lipgloss.Style, msg string) string {
	if !colorEnabled() {
		return msg
	}
	return style.Render(msg)
}

// Success prints msg in green (when color is enabled).
func Success(msg string) {
	fmt.Fprintln(out, render(successStyle, msg))
}

// Warn prints msg in yellow (when color is enabled).
func Warn(msg string) {
	fmt.Fprintln(out, render(warnStyle, msg))
}

// Fail prints msg in red (when color is enabled).
func Fail(msg string) {
	fmt.Fprintln(out, render(failStyle, msg))
}

// Plain prints msg with no styling, for tabular output such as `zv list`.
func Plain(msg string) {
	fmt.Fprintln(out, msg)
}
