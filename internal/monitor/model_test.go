package monitor

import (
	"strings"
	"testing"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/bridge"
	"github.com/ElPandos/interface-check-sub005/internal/diag"
	"github.com/ElPandos/interface-check-sub005/internal/errors"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFeeds(hosts ...string) []Feed {
	feeds := make([]Feed, len(hosts))
	for i, h := range hosts {
		feeds[i] = Feed{Host: h, Updates: bridge.New[diag.Update]()}
	}
	return feeds
}

func sampleReport(host string, rx float64) *diag.HostReport {
	return &diag.HostReport{
		Host:     host,
		Platform: diag.PlatformLinux,
		Latency:  12 * time.Millisecond,
		Interfaces: []diag.Interface{
			{Name: "eth0", State: diag.StateUp, MTU: 9000, RxRate: rx, TxRate: rx / 2, RxErrors: 1, TxDrops: 2},
			{Name: "eth1", State: diag.StateDown, MTU: 1500},
		},
	}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel_Defaults(t *testing.T) {
	m := NewModel(testFeeds("a", "b"), Options{})

	assert.Equal(t, []string{"a", "b"}, m.Hosts())
	assert.Equal(t, DefaultRefresh, m.refresh)
	assert.Equal(t, DefaultHistorySize, m.History().Size())
	assert.Equal(t, "a", m.Selected())
	assert.Zero(t, m.OnlineCount())
	assert.NotNil(t, m.Init())
}

func TestModel_DrainTakesLatestOnly(t *testing.T) {
	feeds := testFeeds("core-sw1")
	m := NewModel(feeds, Options{})

	feeds[0].Updates.Publish(diag.Update{Host: "core-sw1", Report: sampleReport("core-sw1", 100), Version: 1, At: time.Now()})
	feeds[0].Updates.Publish(diag.Update{Host: "core-sw1", Report: sampleReport("core-sw1", 200), Version: 2, At: time.Now()})

	m, cmd := update(m, drainMsg(time.Now()))
	assert.NotNil(t, cmd, "drain reschedules itself")

	report, version := m.Report("core-sw1")
	require.NotNil(t, report)
	assert.Equal(t, uint64(2), version)
	assert.Equal(t, 1, m.History().Count("core-sw1"), "the overwritten update never reaches the view")

	rx, _ := m.History().Rates("core-sw1", "eth0", 10)
	assert.Equal(t, []float64{200}, rx)
	assert.Equal(t, 1, m.OnlineCount())
}

func TestModel_SameVersionIsNotPushedTwice(t *testing.T) {
	feeds := testFeeds("h")
	m := NewModel(feeds, Options{})
	r := sampleReport("h", 10)

	feeds[0].Updates.Publish(diag.Update{Host: "h", Report: r, Version: 1})
	m, _ = update(m, drainMsg(time.Now()))

	fail := errors.New(errors.ErrConnect, "dial h: refused", "")
	feeds[0].Updates.Publish(diag.Update{Host: "h", Report: r, Version: 1, Err: fail})
	m, _ = update(m, drainMsg(time.Now()))

	assert.Equal(t, 1, m.History().Count("h"))
	assert.Equal(t, fail, m.LastError("h"))
	assert.Zero(t, m.OnlineCount(), "a failing host is stale, not online")

	report, _ := m.Report("h")
	assert.Same(t, r, report, "last good report is kept")

	feeds[0].Updates.Publish(diag.Update{Host: "h", Report: sampleReport("h", 20), Version: 2})
	m, _ = update(m, drainMsg(time.Now()))
	assert.NoError(t, m.LastError("h"))
	assert.Equal(t, 2, m.History().Count("h"))
}

func TestModel_NothingPending(t *testing.T) {
	m := NewModel(testFeeds("h"), Options{})
	m, _ = update(m, drainMsg(time.Now()))

	report, version := m.Report("h")
	assert.Nil(t, report)
	assert.Zero(t, version)
	assert.False(t, m.lastDrain.IsZero())
}

func TestModel_Navigation(t *testing.T) {
	m := NewModel(testFeeds("a", "b", "c"), Options{})

	m, _ = update(m, runeKey("j"))
	assert.Equal(t, "b", m.Selected())
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "c", m.Selected())
	m, _ = update(m, runeKey("j"))
	assert.Equal(t, "c", m.Selected(), "stops at the last host")

	m, _ = update(m, runeKey("g"))
	assert.Equal(t, "a", m.Selected())
	m, _ = update(m, runeKey("k"))
	assert.Equal(t, "a", m.Selected(), "stops at the first host")
	m, _ = update(m, runeKey("G"))
	assert.Equal(t, "c", m.Selected())
}

func TestModel_RefreshKicksEveryFeed(t *testing.T) {
	feeds := testFeeds("a", "b", "c")
	calls := 0
	feeds[0].Refresh = func() { calls++ }
	feeds[1].Refresh = func() { calls++ }

	m := NewModel(feeds, Options{})
	_, cmd := update(m, runeKey("r"))

	assert.Nil(t, cmd)
	assert.Equal(t, 2, calls, "feeds without Refresh are skipped")
}

func TestModel_HelpToggle(t *testing.T) {
	m := NewModel(testFeeds("a"), Options{})

	m, _ = update(m, runeKey("?"))
	assert.True(t, m.help.ShowAll)
	m, _ = update(m, runeKey("?"))
	assert.False(t, m.help.ShowAll)
}

func TestModel_Quit(t *testing.T) {
	for _, msg := range []tea.KeyMsg{runeKey("q"), {Type: tea.KeyCtrlC}} {
		t.Run(msg.String(), func(t *testing.T) {
			m := NewModel(testFeeds("a"), Options{})
			m, cmd := update(m, msg)

			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.Empty(t, m.View())
		})
	}
}

func TestModel_WindowSize(t *testing.T) {
	m := NewModel(testFeeds("a"), Options{})
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
	assert.Equal(t, 120, m.help.Width)
}

func TestModel_View(t *testing.T) {
	feeds := testFeeds("core-sw1", "edge-fw", "lab-mac")
	m := NewModel(feeds, Options{Title: "links"})

	feeds[0].Updates.Publish(diag.Update{Host: "core-sw1", Report: sampleReport("core-sw1", 2048), Version: 1, At: time.Now()})
	feeds[1].Updates.Publish(diag.Update{Host: "edge-fw", Err: errors.New(errors.ErrConnect, "dial edge-fw: timeout\nmore detail", ""), At: time.Now()})
	m, _ = update(m, drainMsg(time.Now()))

	view := m.View()
	assert.Contains(t, view, "links")
	assert.Contains(t, view, "3 hosts")
	assert.Contains(t, view, "1 online")
	assert.Contains(t, view, "core-sw1")
	assert.Contains(t, view, "eth0")
	assert.Contains(t, view, "9000")
	assert.Contains(t, view, "edge-fw")
	assert.Contains(t, view, "dial edge-fw: timeout")
	assert.NotContains(t, view, "more detail", "only the first error line is shown")
	assert.Contains(t, view, "lab-mac")
	assert.Contains(t, view, "connecting")
}

func TestModel_ViewNoHosts(t *testing.T) {
	m := NewModel(nil, Options{})
	assert.Contains(t, m.View(), "No hosts to watch")
	assert.Equal(t, "", m.Selected())
}

func TestPlainLines(t *testing.T) {
	at := time.Date(2024, 5, 1, 13, 4, 5, 0, time.UTC)

	lines := PlainLines(diag.Update{Host: "h", Report: sampleReport("h", 2048), Version: 1, At: at})
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "13:04:05 h eth0 UP rx="), lines[0])
	assert.Contains(t, lines[0], "err=1 drop=2")
	assert.Contains(t, lines[1], "h eth1 DOWN")

	fail := errors.New(errors.ErrExec, "batch failed", "")
	lines = PlainLines(diag.Update{Host: "h", Err: fail, At: at})
	assert.Equal(t, []string{"13:04:05 h error: " + firstLine(fail.Error())}, lines)

	lines = PlainLines(diag.Update{Host: "h", Report: sampleReport("h", 1), Err: fail, At: at})
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "h stale: ")

	lines = PlainLines(diag.Update{Host: "h", At: at})
	assert.Equal(t, []string{"13:04:05 h error: no data"}, lines)
}
