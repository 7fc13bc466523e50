package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ElPandos/interface-check-sub005/internal/config"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/ui"
	"github.com/ElPandos/interface-check-sub005/internal/util"
	"github.com/ElPandos/interface-check-sub005/pkg/sshutil"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// hostsAddOptions holds the flags of hosts add.
type hostsAddOptions struct {
	Jump       []string
	Interfaces []string
	Tags       []string
}

var hostsAddFlags hostsAddOptions

// hostsCmd lists configured hosts and ~/.ssh/config aliases
var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List configured and ~/.ssh/config hosts",
	Long: `List the hosts in the ifcheck config, followed by the concrete aliases
found in ~/.ssh/config. Either kind can be passed to diag, exec and watch.

Examples:
  ifcheck hosts
  ifcheck hosts add core-sw1 admin@10.0.0.1 --jump bastion --tag core`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		entries, err := sshutil.ParseSSHConfig()
		if err != nil {
			logger.Default().Debug("couldn't read ~/.ssh/config: %v", err)
		}
		return hostsCommand(cmd.OutOrStdout(), cfg, entries)
	},
}

// hostsAddCmd appends a host to the config file
var hostsAddCmd = &cobra.Command{
	Use:   "add <name> <ssh>",
	Short: "Add a host to the config",
	Long: `Add a host entry to the config file, keeping existing comments.

The config file is the one --config names, the nearest .ifcheck.yaml, or a
new .ifcheck.yaml in the current directory.

Examples:
  ifcheck hosts add core-sw1 admin@10.0.0.1
  ifcheck hosts add edge-fw edge-fw --jump bastion,dc1-gw --interfaces eth0,eth1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Find(cfgFile)
		if err != nil {
			return err
		}
		if path == "" || path == config.GlobalConfigPath() {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			path = filepath.Join(cwd, config.ConfigFileName)
		}
		return hostsAddCommand(cmd.OutOrStdout(), path, args[0], args[1], hostsAddFlags)
	},
}

func init() {
	hostsAddCmd.Flags().StringSliceVar(&hostsAddFlags.Jump, "jump", nil, "jump hosts, in order (comma-separated)")
	hostsAddCmd.Flags().StringSliceVar(&hostsAddFlags.Interfaces, "interfaces", nil, "only report these interfaces")
	hostsAddCmd.Flags().StringSliceVar(&hostsAddFlags.Tags, "tag", nil, "tags for --tag selection")
	hostsCmd.AddCommand(hostsAddCmd)
	rootCmd.AddCommand(hostsCmd)
}

func hostsCommand(out io.Writer, cfg *config.Config, entries []sshutil.SSHHostEntry) error {
	titleStyle := lipgloss.NewStyle().Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Configured hosts") + "\n")
	if names := cfg.HostNames(); len(names) == 0 {
		b.WriteString(mutedStyle.Render("  none, add one with 'ifcheck hosts add <name> <ssh>'") + "\n")
	} else {
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			h := cfg.Hosts[name]
			rows = append(rows, []string{
				name,
				h.SSH,
				util.JoinOrDefault(h.Jump, " -> ", "-"),
				util.JoinOrDefault(h.Interfaces, ",", "-"),
				util.JoinOrDefault(h.Tags, ",", "-"),
			})
		}
		b.WriteString(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "NAME", Width: 14},
			{Title: "SSH", Width: 22},
			{Title: "JUMP", Width: 20},
			{Title: "INTERFACES", Width: 14},
			{Title: "TAGS", Width: 12},
		}, rows))
		b.WriteString("\n")
	}

	b.WriteString("\n" + titleStyle.Render("~/.ssh/config") + "\n")
	if len(entries) == 0 {
		b.WriteString(mutedStyle.Render("  no concrete host aliases") + "\n")
	} else {
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Alias, e.Description()})
		}
		b.WriteString(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "ALIAS", Width: 18},
			{Title: "DETAILS", Width: 50},
		}, rows))
		b.WriteString("\n")
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func hostsAddCommand(out io.Writer, path, name, ssh string, opts hostsAddOptions) error {
	host := config.Host{
		SSH:        ssh,
		Jump:       opts.Jump,
		Interfaces: opts.Interfaces,
		Tags:       opts.Tags,
	}
	if err := config.AddHost(path, name, host); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Added %s to %s\n",
		lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolSuccess), name, path)
	return nil
}
