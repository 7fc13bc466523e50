package monitor

import (
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/bridge"
	"github.com/ElPandos/interface-check-sub005/internal/diag"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultRefresh is how often the dashboard drains its feeds.
const DefaultRefresh = 500 * time.Millisecond

// Feed is one host's stream of updates into the dashboard.
type Feed struct {
	Host    string
	Updates *bridge.Bridge[diag.Update]
	// Refresh asks the producer to sample now. May be nil.
	Refresh func()
}

// Options configures a Model.
type Options struct {
	Refresh time.Duration
	History int
	Title   string
}

// hostView is the dashboard's copy of the latest update for one host.
type hostView struct {
	report    *diag.HostReport
	version   uint64
	err       error
	errAt     time.Time
	updatedAt time.Time
}

func (v *hostView) online() bool {
	return v.report != nil && v.err == nil
}

// Model is the Bubble Tea model for the link dashboard. Feeds are only
// drained from Update, on the model's own tick, so producers never touch
// UI state.
type Model struct {
	feeds   []Feed
	hosts   []string
	views   map[string]*hostView
	history *History

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	title     string
	refresh   time.Duration
	selected  int
	width     int
	height    int
	showHelp  bool
	quitting  bool
	lastDrain time.Time
	now       func() time.Time
}

// drainMsg fires every refresh period.
type drainMsg time.Time

// NewModel creates a dashboard over feeds, shown in the given order.
func NewModel(feeds []Feed, opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.Title == "" {
		opts.Title = "ifcheck watch"
	}

	hosts := make([]string, len(feeds))
	views := make(map[string]*hostView, len(feeds))
	for i, f := range feeds {
		hosts[i] = f.Host
		views[f.Host] = &hostView{}
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = LabelStyle

	return Model{
		feeds:   feeds,
		hosts:   hosts,
		views:   views,
		history: NewHistory(opts.History),
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		title:   opts.Title,
		refresh: opts.Refresh,
		now:     time.Now,
	}
}

// Init starts the drain tick and the connecting spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.drainCmd(), m.spinner.Tick)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.handleKey(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case drainMsg:
		m.drain(time.Time(msg))
		return m, m.drainCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

func (m Model) drainCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return drainMsg(t)
	})
}

// drain takes at most one pending update per feed. Older updates that
// were overwritten in the bridge are never seen.
func (m *Model) drain(at time.Time) {
	m.lastDrain = at
	for _, f := range m.feeds {
		u, ok := f.Updates.Drain()
		if !ok {
			continue
		}
		m.apply(f.Host, u)
	}
}

func (m *Model) apply(host string, u diag.Update) {
	v, ok := m.views[host]
	if !ok {
		return
	}

	if u.Report != nil && u.Version != v.version {
		m.history.Push(host, u.Report)
		v.report = u.Report
		v.version = u.Version
		v.updatedAt = u.At
	}

	v.err = u.Err
	if u.Err != nil {
		v.errAt = u.At
	}
}

// Hosts returns the hosts in display order.
func (m Model) Hosts() []string {
	return m.hosts
}

// Selected returns the highlighted host, or "" with no hosts.
func (m Model) Selected() string {
	if m.selected < 0 || m.selected >= len(m.hosts) {
		return ""
	}
	return m.hosts[m.selected]
}

// Report returns the last good report drained for host.
func (m Model) Report(host string) (*diag.HostReport, uint64) {
	v, ok := m.views[host]
	if !ok {
		return nil, 0
	}
	return v.report, v.version
}

// LastError returns the error from host's latest update, if any.
func (m Model) LastError(host string) error {
	if v, ok := m.views[host]; ok {
		return v.err
	}
	return nil
}

// OnlineCount returns how many hosts have a fresh, error-free report.
func (m Model) OnlineCount() int {
	n := 0
	for _, v := range m.views {
		if v.online() {
			n++
		}
	}
	return n
}

// History exposes the rate history, mainly for tests.
func (m Model) History() *History {
	return m.history
}
