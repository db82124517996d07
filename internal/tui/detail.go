package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"market-pulse/internal/domain"
)

// DetailModel walks through the assets of the latest pass one at a time.
type DetailModel struct {
	assets   []domain.AnalyzedAsset
	selected int
	width    int
	height   int
}

func NewDetailModel() DetailModel {
	return DetailModel{}
}

func (m DetailModel) Update(msg tea.Msg) (DetailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case overviewMsg:
		if msg.updatedAt.IsZero() && len(m.assets) > 0 {
			return m, nil
		}
		m.assets = msg.assets
		if m.selected >= len(m.assets) {
			m.selected = 0
		}
	case tea.KeyMsg:
		if len(m.assets) == 0 {
			return m, nil
		}
		switch {
		case key.Matches(msg, DefaultKeyMap.Next):
			m.selected = (m.selected + 1) % len(m.assets)
		case key.Matches(msg, DefaultKeyMap.Prev):
			m.selected = (m.selected - 1 + len(m.assets)) % len(m.assets)
		}
	}
	return m, nil
}

func (m DetailModel) View() string {
	if len(m.assets) == 0 {
		return SubtextStyle.Render("  No assets analysed yet")
	}
	a := m.assets[m.selected]

	lines := []string{
		HeaderStyle.Render(fmt.Sprintf("  %s", a.Symbol)) +
			SubtextStyle.Render(fmt.Sprintf("  %d/%d  (%s)", m.selected+1, len(m.assets), a.Class)),
		"  " + FormatAsset(a),
		"",
		HeaderStyle.Render("  Indicators"),
		fmt.Sprintf("  RSI %s  SMA20 %s  EMA50 %s", a.Indicators.RSI, a.Indicators.SMA20, a.Indicators.EMA50),
		fmt.Sprintf("  MACD %s / %s  BB %s - %s",
			a.Indicators.MACD, a.Indicators.MACDSignal, a.Indicators.BBLower, a.Indicators.BBUpper),
		fmt.Sprintf("  Outlier score %s", a.OutlierScore),
	}
	if a.Anomaly.Triggered {
		lines = append(lines, AnomalyStyle.Render(fmt.Sprintf("  Volume anomaly x%.1f", a.Anomaly.Ratio)))
	}
	if a.Walls.BuyWall.Valid || a.Walls.SellWall.Valid {
		lines = append(lines, fmt.Sprintf("  Walls: buy %s  sell %s", a.Walls.BuyWall, a.Walls.SellWall))
	}
	if len(a.TimeframeChanges) > 0 {
		var parts []string
		for _, tc := range a.TimeframeChanges {
			parts = append(parts, fmt.Sprintf("%s %s", tc.Timeframe, formatPct(tc.ChangePct)))
		}
		lines = append(lines, "  "+strings.Join(parts, "  "))
	}

	lines = append(lines, "", HeaderStyle.Render("  Analysis ")+signalStyle(a.Signal).Render(strings.ToUpper(string(a.Signal))))
	if a.Reasoning != "" {
		lines = append(lines, "  "+a.Reasoning)
	}
	if a.Levels != "" {
		lines = append(lines, SubtextStyle.Render("  Levels: "+a.Levels))
	}

	if len(a.News) > 0 {
		lines = append(lines, "", HeaderStyle.Render("  News"))
		for _, n := range a.News {
			lines = append(lines, fmt.Sprintf("  [%s] %s", n.Sentiment, n.Title))
		}
	}

	lines = append(lines, "", SubtextStyle.Render("  [j/k] next/prev asset"))
	return BorderStyle.Width(max(m.width-2, 60)).Render(strings.Join(lines, "\n"))
}

func (m *DetailModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Selected returns the highlighted asset symbol (for testing).
func (m DetailModel) Selected() string {
	if len(m.assets) == 0 {
		return ""
	}
	return m.assets[m.selected].Symbol
}
