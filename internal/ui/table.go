package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a new Bubbles table with default styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{
			Title: c.Title,
			Width: c.Width,
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.
		Foreground(ColorPrimary)
	// Non-interactive: the selected row must look like the others.
	s.Selected = s.Cell

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string for CLI output.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	t := NewTable(columns, tableRows)
	return t.View()
}

// LinkRow is one interface line in a link report.
type LinkRow struct {
	Name   string
	State  string
	MTU    string
	Rx     string
	Tx     string
	Errors string
	Drops  string
	Trend  string // optional sparkline column
}

// RenderLinkTable renders interface rows with a state glyph per line.
func RenderLinkTable(rows []LinkRow) string {
	if len(rows) == 0 {
		return lipgloss.NewStyle().Foreground(ColorMuted).Render("  no interfaces") + "\n"
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	warnStyle := lipgloss.NewStyle().Foreground(ColorWarning)

	var sb strings.Builder
	sb.WriteString("  ")
	sb.WriteString(headerStyle.Render(
		padRight("IFACE", 14) + padRight("STATE", 8) + padRight("MTU", 7) +
			padRight("RX", 12) + padRight("TX", 12) + padRight("ERR", 8) + "DROP"))
	sb.WriteString("\n")

	for _, row := range rows {
		glyph := lipgloss.NewStyle().Foreground(StateColor(row.State)).Render(StateSymbol(row.State))

		errs := row.Errors
		if errs != "" && errs != "0" {
			errs = warnStyle.Render(errs)
		}
		drops := row.Drops
		if drops != "" && drops != "0" {
			drops = warnStyle.Render(drops)
		}

		line := glyph + " " +
			padRight(row.Name, 14) +
			padRight(row.State, 8) +
			padRight(mutedStyle.Render(row.MTU), 7) +
			padRight(row.Rx, 12) +
			padRight(row.Tx, 12) +
			padRight(errs, 8) +
			padRight(drops, 6)
		if row.Trend != "" {
			line += " " + row.Trend
		}
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteString("\n")
	}

	return sb.String()
}

// padRight pads a string to the specified visible width.
func padRight(s string, width int) string {
	// Account for ANSI codes when calculating visible length
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}
