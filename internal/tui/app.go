package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Tab int

const (
	TabOverview Tab = iota
	TabBoard
	TabDetail
	tabCount
)

func (t Tab) label() string {
	switch t {
	case TabOverview:
		return "1:Overview"
	case TabBoard:
		return "2:Board"
	case TabDetail:
		return "3:Detail"
	}
	return "?"
}

// AppModel owns the tab bar and fans data messages out to the screens
// that render them.
type AppModel struct {
	services  Services
	activeTab Tab
	dashboard DashboardModel
	board     BoardModel
	detail    DetailModel
	width     int
	height    int
	quitting  bool
}

func NewAppModel(svc Services) AppModel {
	return AppModel{
		services:  svc,
		activeTab: TabOverview,
		dashboard: NewDashboardModel(svc),
		board:     NewBoardModel(svc),
		detail:    NewDetailModel(),
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.dashboard.Init(), m.board.Init())
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.SetSize(size.Width, size.Height)
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		if cmd, handled := m.handleGlobalKey(k); handled {
			return m, cmd
		}
	}
	return m, m.route(msg)
}

// handleGlobalKey covers quitting and tab switching; everything else goes
// to the active screen.
func (m *AppModel) handleGlobalKey(k tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(k, DefaultKeyMap.Quit):
		m.quitting = true
		return tea.Quit, true
	case key.Matches(k, DefaultKeyMap.Tab):
		m.activeTab = (m.activeTab + 1) % tabCount
		return nil, true
	case key.Matches(k, DefaultKeyMap.ShiftTab):
		m.activeTab = (m.activeTab + tabCount - 1) % tabCount
		return nil, true
	}
	if s := k.String(); len(s) == 1 && s[0] >= '1' && s[0] < '1'+byte(tabCount) {
		m.activeTab = Tab(s[0] - '1')
		return nil, true
	}
	return nil, false
}

func (m *AppModel) route(msg tea.Msg) tea.Cmd {
	var dashCmd, boardCmd, detailCmd tea.Cmd
	switch msg.(type) {
	case overviewMsg:
		// the detail pager follows the same pass as the table
		m.dashboard, dashCmd = m.dashboard.Update(msg)
		m.detail, detailCmd = m.detail.Update(msg)
	case overviewErrMsg, statsMsg, dashTickMsg:
		m.dashboard, dashCmd = m.dashboard.Update(msg)
	case boardMsg, boardErrMsg, boardTickMsg:
		m.board, boardCmd = m.board.Update(msg)
	default:
		switch m.activeTab {
		case TabOverview:
			m.dashboard, dashCmd = m.dashboard.Update(msg)
		case TabBoard:
			m.board, boardCmd = m.board.Update(msg)
		case TabDetail:
			m.detail, detailCmd = m.detail.Update(msg)
		}
	}
	return tea.Batch(dashCmd, boardCmd, detailCmd)
}

func (m AppModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	var body string
	switch m.activeTab {
	case TabOverview:
		body = m.dashboard.View()
	case TabBoard:
		body = m.board.View()
	case TabDetail:
		body = m.detail.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.tabBar(), body)
}

func (m *AppModel) SetSize(w, h int) {
	m.width, m.height = w, h
	inner := h - 2
	m.dashboard.SetSize(w, inner)
	m.board.SetSize(w, inner)
	m.detail.SetSize(w, inner)
}

func (m AppModel) ActiveTab() Tab { return m.activeTab }

func (m AppModel) tabBar() string {
	var b strings.Builder
	for t := TabOverview; t < tabCount; t++ {
		style := InactiveTabStyle
		if t == m.activeTab {
			style = ActiveTabStyle
		}
		b.WriteString(style.Render(t.label()))
	}
	return b.String()
}
