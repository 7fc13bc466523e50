package monitor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ElPandos/interface-check-sub005/internal/diag"
	"github.com/ElPandos/interface-check-sub005/internal/ui"
)

// sparkWidth is the number of samples drawn per direction.
const sparkWidth = 20

func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if len(m.hosts) == 0 {
		b.WriteString(LabelStyle.Render("No hosts to watch"))
		b.WriteString("\n")
	}
	for i, host := range m.hosts {
		b.WriteString(m.renderHost(host, i == m.selected))
		b.WriteString("\n")
	}

	b.WriteString(FooterStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderHeader() string {
	updated := "waiting"
	if !m.lastDrain.IsZero() {
		updated = "drained " + ui.FormatAge(m.now().Sub(m.lastDrain))
	}

	stats := LabelStyle.Render(fmt.Sprintf(" | %d hosts | %d online | %s",
		len(m.hosts), m.OnlineCount(), updated))
	return HeaderStyle.Render(TitleStyle.Render(m.title) + stats)
}

func (m Model) renderHost(host string, selected bool) string {
	v := m.views[host]

	var lines []string
	lines = append(lines, m.renderHostLine(host, v))

	if v.err != nil {
		lines = append(lines, ErrorStyle.Render("  "+firstLine(v.err.Error())))
	}

	if v.report != nil {
		for _, w := range v.report.Warnings {
			lines = append(lines, WarningStyle.Render("  "+ui.SymbolWarning+" "+w))
		}
		lines = append(lines, strings.TrimRight(ui.RenderLinkTable(m.linkRows(host, v.report)), "\n"))
	}

	style := HostBoxStyle
	if selected {
		style = HostBoxSelectedStyle
	}
	if m.width > 4 {
		style = style.Width(m.width - 2)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHostLine(host string, v *hostView) string {
	var glyph string
	switch {
	case v.report == nil && v.err == nil:
		glyph = m.spinner.View()
	case v.err != nil && v.report == nil:
		glyph = ErrorStyle.Render(StatusOffline)
	case v.err != nil:
		glyph = WarningStyle.Render(StatusStale)
	default:
		glyph = OnlineStyle.Render(StatusOnline)
	}

	line := glyph + " " + HostNameStyle.Render(host)

	switch {
	case v.report != nil:
		meta := fmt.Sprintf("  %s | %s | v%d | %s",
			v.report.Platform,
			ui.FormatDuration(v.report.Latency),
			v.version,
			ui.FormatAge(m.now().Sub(v.updatedAt)))
		line += MutedStyle.Render(meta)
	case v.err == nil:
		line += MutedStyle.Render("  connecting")
	}
	return line
}

func (m Model) linkRows(host string, report *diag.HostReport) []ui.LinkRow {
	rows := make([]ui.LinkRow, 0, len(report.Interfaces))
	for _, iface := range report.Interfaces {
		rx, tx := m.history.Rates(host, iface.Name, sparkWidth)
		trend := ui.RenderSparkline(rx, sparkWidth, ui.ColorRx)
		if t := ui.RenderSparkline(tx, sparkWidth, ui.ColorTx); t != "" {
			trend += " " + t
		}

		rows = append(rows, ui.LinkRow{
			Name:   iface.Name,
			State:  iface.State,
			MTU:    mtu(iface.MTU),
			Rx:     ui.FormatRate(iface.RxRate),
			Tx:     ui.FormatRate(iface.TxRate),
			Errors: strconv.FormatInt(iface.RxErrors+iface.TxErrors, 10),
			Drops:  strconv.FormatInt(iface.RxDrops+iface.TxDrops, 10),
			Trend:  trend,
		})
	}
	return rows
}

func mtu(v int) string {
	if v <= 0 {
		return "-"
	}
	return strconv.Itoa(v)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// PlainLines renders a report as one line per interface, for non-tty output.
func PlainLines(u diag.Update) []string {
	stamp := u.At.Format("15:04:05")
	if u.Report == nil {
		msg := "no data"
		if u.Err != nil {
			msg = firstLine(u.Err.Error())
		}
		return []string{fmt.Sprintf("%s %s error: %s", stamp, u.Host, msg)}
	}

	lines := make([]string, 0, len(u.Report.Interfaces)+1)
	if u.Err != nil {
		lines = append(lines, fmt.Sprintf("%s %s stale: %s", stamp, u.Host, firstLine(u.Err.Error())))
	}
	for _, iface := range u.Report.Interfaces {
		lines = append(lines, fmt.Sprintf("%s %s %s %s rx=%s tx=%s err=%d drop=%d",
			stamp, u.Host, iface.Name, iface.State,
			ui.FormatRate(iface.RxRate), ui.FormatRate(iface.TxRate),
			iface.RxErrors+iface.TxErrors, iface.RxDrops+iface.TxDrops))
	}
	return lines
}
