package ui

import (
	"os"
	"strings"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// HostInfo describes a configured host in the picker.
type HostInfo struct {
	Name string
	SSH  string
	Jump []string
	Tags []string
}

// Label renders the picker line: name, connection and hop chain.
func (h HostInfo) Label() string {
	var parts []string
	parts = append(parts, h.Name)
	if h.SSH != "" && h.SSH != h.Name {
		parts = append(parts, h.SSH)
	}
	if len(h.Jump) > 0 {
		parts = append(parts, "via "+strings.Join(h.Jump, " -> "))
	}
	if len(h.Tags) > 0 {
		parts = append(parts, "["+strings.Join(h.Tags, ", ")+"]")
	}
	return strings.Join(parts, "  ")
}

// PickerOptions builds the huh options, all pre-selected.
func PickerOptions(hosts []HostInfo) []huh.Option[string] {
	options := make([]huh.Option[string], len(hosts))
	for i, h := range hosts {
		options[i] = huh.NewOption(h.Label(), h.Name).Selected(true)
	}
	return options
}

// PickHosts asks which hosts to use. A single host is returned without
// prompting. An empty result means the user deselected everything.
func PickHosts(title string, hosts []HostInfo) ([]string, error) {
	if len(hosts) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No hosts to pick from",
			"Add one with 'ifcheck hosts add <name> <ssh>'.")
	}
	if len(hosts) == 1 {
		return []string{hosts[0].Name}, nil
	}

	var picked []string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(title).
				Options(PickerOptions(hosts)...).
				Filterable(true).
				Value(&picked),
		),
	)
	if err := form.Run(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Host picker failed",
			"Name the hosts on the command line instead.")
	}
	return picked, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
