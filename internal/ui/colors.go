package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors use ANSI codes so they follow the terminal theme.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// Traffic direction colors for rate graphs.
const (
	ColorRx lipgloss.Color = "6" // Cyan
	ColorTx lipgloss.Color = "5" // Magenta
)

// GradientColors cycle through the spinner frames.
var GradientColors = []lipgloss.Color{"5", "4", "6", "2"}

// StateColor maps an interface operational state to a color.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "UP":
		return ColorSuccess
	case "DOWN":
		return ColorError
	default:
		return ColorMuted
	}
}

// DisableColors switches lipgloss to plain ASCII output (for --no-color).
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
