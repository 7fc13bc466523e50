package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ElPandos/interface-check-sub005/internal/diag"
	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/ui"
	"github.com/ElPandos/interface-check-sub005/internal/util"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var diagFlags CommonFlags

// diagCmd samples every selected host once
var diagCmd = &cobra.Command{
	Use:   "diag [hosts...]",
	Short: "One-shot interface report for remote hosts",
	Long: `Sample interface counters, link state and MTU from each host in parallel.

Hosts can be configured names, ~/.ssh/config aliases or user@host strings.
With no hosts named, every configured host is used (or picked interactively
when a terminal is attached).

Examples:
  ifcheck diag
  ifcheck diag core-sw1 admin@10.0.0.7
  ifcheck diag --tag core --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return diagCommand(cmd.Context(), cmd.OutOrStdout(), args, diagFlags)
	},
}

func init() {
	AddCommonFlags(diagCmd, &diagFlags)
	rootCmd.AddCommand(diagCmd)
}

func diagCommand(ctx context.Context, out io.Writer, args []string, flags CommonFlags) error {
	format, err := ParseOutputFormat(flags.Output)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	hosts, err := chooseHosts(cfg, args, flags.Tag, "Which hosts should be diagnosed?")
	if err != nil {
		return err
	}

	a := newApp(cfg, logger.Default())
	defer a.close()

	var spin *ui.Spinner
	if format == OutputText && interactive() {
		spin = ui.NewSpinner(fmt.Sprintf("Sampling %d %s", len(hosts), util.Pluralize(len(hosts), "host", "hosts")))
		spin.Start()
	}

	byHost := a.svc.CollectAll(ctx, hosts)
	reports := make([]*diag.HostReport, 0, len(hosts))
	failed := 0
	for _, h := range hosts {
		r := byHost[h]
		if r.Error != "" {
			failed++
		}
		reports = append(reports, r)
	}

	if spin != nil {
		if failed == 0 {
			spin.Success()
		} else {
			spin.Fail()
		}
	}

	switch format {
	case OutputJSON:
		err = WriteJSONSuccess(out, reports)
	case OutputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		err = enc.Encode(reports)
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	default:
		err = writeReports(out, reports)
	}
	if err != nil {
		return err
	}

	if failed > 0 {
		return errors.New(errors.ErrConnect,
			fmt.Sprintf("%d of %d %s could not be sampled", failed, len(hosts), util.Pluralize(len(hosts), "host", "hosts")),
			"Run with --verbose for details.")
	}
	return nil
}

func writeReports(out io.Writer, reports []*diag.HostReport) error {
	hostStyle := lipgloss.NewStyle().Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	errStyle := lipgloss.NewStyle().Foreground(ui.ColorError)
	warnStyle := lipgloss.NewStyle().Foreground(ui.ColorWarning)

	var b strings.Builder
	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		if r.Error != "" {
			b.WriteString(errStyle.Render(ui.SymbolFail) + " " + hostStyle.Render(r.Host) + "\n")
			b.WriteString("  " + errStyle.Render(r.Error) + "\n")
			continue
		}

		b.WriteString(lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolSuccess) + " " +
			hostStyle.Render(r.Host) +
			mutedStyle.Render(fmt.Sprintf("  %s, %s", r.Platform, ui.FormatDuration(r.Latency))) + "\n")
		for _, w := range r.Warnings {
			b.WriteString("  " + warnStyle.Render(ui.SymbolWarning+" "+w) + "\n")
		}
		b.WriteString(ui.RenderLinkTable(linkRows(r)))
	}

	_, err := io.WriteString(out, b.String())
	return err
}

// linkRows shows cumulative byte counters; a one-shot sample has no rate.
func linkRows(r *diag.HostReport) []ui.LinkRow {
	rows := make([]ui.LinkRow, 0, len(r.Interfaces))
	for _, iface := range r.Interfaces {
		mtu := "-"
		if iface.MTU > 0 {
			mtu = strconv.Itoa(iface.MTU)
		}
		rows = append(rows, ui.LinkRow{
			Name:   iface.Name,
			State:  iface.State,
			MTU:    mtu,
			Rx:     ui.FormatBytes(iface.RxBytes),
			Tx:     ui.FormatBytes(iface.TxBytes),
			Errors: strconv.FormatInt(iface.RxErrors+iface.TxErrors, 10),
			Drops:  strconv.FormatInt(iface.RxDrops+iface.TxDrops, 10),
		})
	}
	return rows
}
