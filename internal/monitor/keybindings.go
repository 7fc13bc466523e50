package monitor

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap holds the dashboard key bindings. It satisfies help.KeyMap.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	First   key.Binding
	Last    key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous host"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next host"),
		),
		First: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "first host"),
		),
		Last: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "last host"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "sample now"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.First, k.Last},
		{k.Refresh, k.Help, k.Quit},
	}
}

// handleKey applies a key press. It reports whether the key was bound.
func (m *Model) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return true, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return true, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return true, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.hosts)-1 {
			m.selected++
		}
		return true, nil

	case key.Matches(msg, m.keys.First):
		m.selected = 0
		return true, nil

	case key.Matches(msg, m.keys.Last):
		if len(m.hosts) > 0 {
			m.selected = len(m.hosts) - 1
		}
		return true, nil

	case key.Matches(msg, m.keys.Refresh):
		// Refresh only kicks collectors; results still arrive on the next drain.
		for _, f := range m.feeds {
			if f.Refresh != nil {
				f.Refresh()
			}
		}
		return true, nil
	}

	return false, nil
}
