// Package ui provides the terminal building blocks shared by the CLI and the
// dashboard: the lipgloss palette, status symbols, sparklines, link tables,
// a spinner for one-shot commands and the huh host picker.
//
// Colors are ANSI codes so output follows the terminal theme. Call
// DisableColors for --no-color.
//
//	s := ui.NewSpinner("Collecting from 3 hosts")
//	s.Start()
//	// ... work ...
//	s.Success()
package ui
