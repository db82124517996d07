package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"market-pulse/internal/domain"
)

type boardMsg []domain.Ticker
type boardErrMsg struct{ err error }
type boardTickMsg time.Time

// BoardModel renders the ticker board next to a heat map.
type BoardModel struct {
	services Services
	tickers  []domain.Ticker
	loading  bool
	err      error
	width    int
	height   int
}

func NewBoardModel(svc Services) BoardModel {
	return BoardModel{services: svc, loading: true}
}

func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(m.fetchBoardCmd(), m.tickCmd())
}

func (m BoardModel) Update(msg tea.Msg) (BoardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case boardMsg:
		m.tickers = []domain.Ticker(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case boardErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case boardTickMsg:
		return m, tea.Batch(m.fetchBoardCmd(), m.tickCmd())

	case tea.KeyMsg:
		if key.Matches(msg, DefaultKeyMap.Refresh) {
			m.loading = true
			return m, m.fetchBoardCmd()
		}
	}
	return m, nil
}

func (m BoardModel) View() string {
	if m.loading && len(m.tickers) == 0 {
		return SubtextStyle.Render("Loading ticker board...")
	}
	if m.err != nil && len(m.tickers) == 0 {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	boardWidth := m.width*2/3 - 2
	if boardWidth < 50 {
		boardWidth = 50
	}
	heatWidth := m.width - boardWidth - 4
	if heatWidth < 20 {
		heatWidth = 20
	}

	lines := []string{
		HeaderStyle.Render("  Ticker Board"),
		SubtextStyle.Render(fmt.Sprintf("  %-10s %12s  %7s  %s", "Symbol", "Price", "24h", "Volume")),
		SubtextStyle.Render("  " + strings.Repeat("─", 50)),
	}
	for _, t := range m.tickers {
		lines = append(lines, "  "+FormatTicker(t))
	}
	if len(m.tickers) == 0 {
		lines = append(lines, SubtextStyle.Render("  No ticker data available"))
	}

	heat := HeaderStyle.Render("  Heat Map") + "\n" + RenderHeatMap(m.tickers, heatWidth)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		BorderStyle.Width(boardWidth).Render(strings.Join(lines, "\n")),
		BorderStyle.Width(heatWidth).Render(heat),
	)
}

func (m *BoardModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Tickers returns the current board (for testing).
func (m BoardModel) Tickers() []domain.Ticker { return m.tickers }

func (m BoardModel) fetchBoardCmd() tea.Cmd {
	limit := m.services.boardLimit()
	return func() tea.Msg {
		if m.services.Board == nil {
			return boardErrMsg{err: fmt.Errorf("ticker board not available")}
		}
		tickers, err := m.services.Board.TickerBoard(context.Background(), limit)
		if err != nil {
			return boardErrMsg{err: err}
		}
		return boardMsg(tickers)
	}
}

func (m BoardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.services.refreshEvery(), func(t time.Time) tea.Msg {
		return boardTickMsg(t)
	})
}
