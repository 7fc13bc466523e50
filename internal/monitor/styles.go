package monitor

import (
	"github.com/ElPandos/interface-check-sub005/internal/ui"
	"github.com/charmbracelet/lipgloss"
)

// Dashboard palette
const (
	ColorBorder        = lipgloss.Color("#2A2A4A")
	ColorAccent        = lipgloss.Color("#FF2E97")
	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")
	ColorHealthy       = lipgloss.Color("#39FF14")
	ColorWarning       = lipgloss.Color("#FFAA00")
	ColorCritical      = lipgloss.Color("#FF0055")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	HostBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	HostBoxSelectedStyle = HostBoxStyle.
				BorderForeground(ColorAccent)

	HostNameStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorCritical)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	OnlineStyle = lipgloss.NewStyle().
			Foreground(ColorHealthy)
)

// Host status glyphs
const (
	StatusOnline  = ui.SymbolUp
	StatusOffline = ui.SymbolFail
	StatusStale   = ui.SymbolWarning
)
