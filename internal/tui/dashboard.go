package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"market-pulse/internal/domain"
)

// Dashboard message types.
type overviewMsg struct {
	assets    []domain.AnalyzedAsset
	updatedAt time.Time
}
type overviewErrMsg struct{ err error }
type statsMsg domain.StatsSnapshot
type dashTickMsg time.Time

var signalOptions = []domain.Signal{"", domain.SignalBuy, domain.SignalSell, domain.SignalHold, domain.SignalUnavailable}

// DashboardModel shows the latest overview pass with scoring stats.
type DashboardModel struct {
	services  Services
	assets    []domain.AnalyzedAsset
	updatedAt time.Time
	stats     domain.StatsSnapshot
	signalIdx int
	loading   bool
	running   bool
	err       error
	width     int
	height    int
}

// NewDashboardModel creates a new dashboard model.
func NewDashboardModel(svc Services) DashboardModel {
	return DashboardModel{
		services: svc,
		loading:  true,
	}
}

// Init fires initial data fetch commands.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchOverviewCmd(),
		m.fetchStatsCmd(),
		m.tickCmd(),
	)
}

// Update handles incoming messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case overviewMsg:
		m.loading = false
		m.running = false
		// An empty snapshot read must not wipe a table we already have.
		if msg.updatedAt.IsZero() && len(m.assets) > 0 {
			return m, nil
		}
		m.assets = msg.assets
		m.updatedAt = msg.updatedAt
		m.err = nil
		return m, m.fetchStatsCmd()

	case overviewErrMsg:
		m.err = msg.err
		m.loading = false
		m.running = false
		return m, nil

	case statsMsg:
		m.stats = domain.StatsSnapshot(msg)
		return m, nil

	case dashTickMsg:
		return m, tea.Batch(
			m.fetchOverviewCmd(),
			m.fetchStatsCmd(),
			m.tickCmd(),
		)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, DefaultKeyMap.FilterSignal):
			m.signalIdx = (m.signalIdx + 1) % len(signalOptions)
			return m, nil
		case key.Matches(msg, DefaultKeyMap.Refresh):
			if m.running {
				return m, nil
			}
			m.running = true
			return m, m.runPassCmd()
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	if m.loading && len(m.assets) == 0 {
		return SubtextStyle.Render("Loading overview...")
	}

	var lines []string
	title := HeaderStyle.Render("  Market Overview")
	if !m.updatedAt.IsZero() {
		title += SubtextStyle.Render("  updated " + m.updatedAt.Local().Format("15:04:05"))
	}
	if m.running {
		title += SubtextStyle.Render("  (running pass...)")
	}
	lines = append(lines, title)
	lines = append(lines, "  "+m.renderFilter())
	lines = append(lines, SubtextStyle.Render(fmt.Sprintf("  %-10s %12s  %7s  %6s  %s", "Symbol", "Price", "24h", "RSI", "Signal")))
	lines = append(lines, SubtextStyle.Render("  "+strings.Repeat("─", 56)))

	visible := m.Visible()
	for _, a := range visible {
		lines = append(lines, "  "+FormatAsset(a))
	}
	if len(visible) == 0 {
		lines = append(lines, SubtextStyle.Render("  No assets analysed yet (press R to run a pass)"))
	}
	if m.err != nil {
		lines = append(lines, ErrorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
	}

	table := BorderStyle.Width(max(m.width-2, 60)).Render(strings.Join(lines, "\n"))
	statsBox := BorderStyle.Width(max(m.width-2, 60)).Render("  " + RenderWinRate(m.stats, 20))
	help := SubtextStyle.Render("  [s] signal filter  [R] run pass  [tab] switch view  [q] quit")
	return strings.Join([]string{table, statsBox, help}, "\n")
}

// SetSize updates the model dimensions.
func (m *DashboardModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Assets returns the current assets (for testing).
func (m DashboardModel) Assets() []domain.AnalyzedAsset { return m.assets }

// Stats returns the current counters (for testing).
func (m DashboardModel) Stats() domain.StatsSnapshot { return m.stats }

// Visible returns the assets passing the signal filter.
func (m DashboardModel) Visible() []domain.AnalyzedAsset {
	want := signalOptions[m.signalIdx]
	if want == "" {
		return m.assets
	}
	var out []domain.AnalyzedAsset
	for _, a := range m.assets {
		if a.Signal == want {
			out = append(out, a)
		}
	}
	return out
}

func (m DashboardModel) renderFilter() string {
	var parts []string
	parts = append(parts, SubtextStyle.Render("Signal: "))
	for i, opt := range signalOptions {
		label := strings.ToUpper(string(opt))
		if opt == "" {
			label = "ALL"
		}
		if opt == domain.SignalUnavailable {
			label = "N/A"
		}
		if i == m.signalIdx {
			parts = append(parts, ActiveTabStyle.Render(label))
		} else {
			parts = append(parts, SubtextStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (m DashboardModel) fetchOverviewCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Snapshot == nil {
			return overviewErrMsg{err: fmt.Errorf("overview not available")}
		}
		assets, at := m.services.Snapshot.Latest()
		return overviewMsg{assets: assets, updatedAt: at}
	}
}

func (m DashboardModel) runPassCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Overview == nil {
			return overviewErrMsg{err: fmt.Errorf("overview service not available")}
		}
		assets, err := m.services.Overview.Run(context.Background(), nil)
		if err != nil && len(assets) == 0 {
			return overviewErrMsg{err: err}
		}
		return overviewMsg{assets: assets, updatedAt: time.Now()}
	}
}

func (m DashboardModel) fetchStatsCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Stats == nil {
			return statsMsg{}
		}
		return statsMsg(m.services.Stats.Snapshot())
	}
}

func (m DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.services.refreshEvery(), func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}
