package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "#39FF14" // Green
	ColorError   lipgloss.Color = "#FF3366" // Red
	ColorWarning lipgloss.Color = "#FFB000" // Amber
	ColorInfo    lipgloss.Color = "#00F0FF" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "#E8E8F0" // Near white
	ColorSecondary lipgloss.Color = "#B026FF" // Purple
	ColorMuted     lipgloss.Color = "#6B6B80" // Gray
)

// GradientColors cycle through the spinner frames.
var GradientColors = []lipgloss.Color{
	"#FF2E97", // pink
	"#B026FF", // purple
	"#00F0FF", // cyan
	"#39FF14", // green
}

// SuccessStyle renders success text.
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorSuccess)
}

// ErrorStyle renders error text.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorError)
}

// WarningStyle renders warning text.
func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorWarning)
}

// InfoStyle renders informational text.
func InfoStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorInfo)
}

// MutedStyle renders secondary text such as timings and paths.
func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorMuted)
}

// DisableColors switches lipgloss to the plain ASCII profile so nothing
// emits escape codes (--no-color, NO_COLOR, or output that isn't a tty).
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ShouldDisableColors reports whether colors should be off for stdout.
func ShouldDisableColors(noColorFlag bool) bool {
	if noColorFlag {
		return true
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}

// PrintWarning writes a warning line to w, normally stderr.
func PrintWarning(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", WarningStyle().Render(SymbolWarning), msg)
}
