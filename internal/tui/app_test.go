package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"market-pulse/internal/domain"
)

// --- stub services ---

type stubSnapshot struct {
	assets []domain.AnalyzedAsset
	at     time.Time
}

func (s *stubSnapshot) Latest() ([]domain.AnalyzedAsset, time.Time) {
	return s.assets, s.at
}

type stubRefresher struct {
	assets []domain.AnalyzedAsset
	err    error
	calls  int
}

func (s *stubRefresher) Run(ctx context.Context, symbols []string) ([]domain.AnalyzedAsset, error) {
	s.calls++
	return s.assets, s.err
}

type stubBoard struct {
	tickers []domain.Ticker
	err     error
	limit   int
}

func (s *stubBoard) TickerBoard(ctx context.Context, limit int) ([]domain.Ticker, error) {
	s.limit = limit
	return s.tickers, s.err
}

type stubStats struct {
	stats domain.StatsSnapshot
}

func (s *stubStats) Snapshot() domain.StatsSnapshot { return s.stats }

func testServices() Services {
	return Services{
		Snapshot: &stubSnapshot{},
		Overview: &stubRefresher{},
		Board:    &stubBoard{},
		Stats:    &stubStats{},
	}
}

func testAssets() []domain.AnalyzedAsset {
	return []domain.AnalyzedAsset{
		{Symbol: "BTCUSDT", Price: 98000, Change24h: domain.Some(2.3), Signal: domain.SignalBuy,
			Indicators: domain.IndicatorSnapshot{RSI: domain.Some(61.2)}, Reasoning: "Trend intact"},
		{Symbol: "ETHUSDT", Price: 3456, Change24h: domain.Some(-1.2), Signal: domain.SignalSell,
			Anomaly: domain.AnomalyFlag{Triggered: true, Ratio: 3.4}},
		{Symbol: "SOLUSDT", Price: 150, Change24h: domain.Some(0), Signal: domain.SignalUnavailable},
	}
}

func TestAppModelInitialTab(t *testing.T) {
	m := NewAppModel(testServices())
	if m.ActiveTab() != TabOverview {
		t.Fatalf("expected TabOverview, got %d", m.ActiveTab())
	}
}

func TestAppModelTabSwitchByNumber(t *testing.T) {
	m := NewAppModel(testServices())
	m.SetSize(120, 40)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	app := updated.(AppModel)
	if app.ActiveTab() != TabBoard {
		t.Fatalf("expected TabBoard after pressing 2, got %d", app.ActiveTab())
	}

	updated, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	app = updated.(AppModel)
	if app.ActiveTab() != TabDetail {
		t.Fatalf("expected TabDetail after pressing 3, got %d", app.ActiveTab())
	}

	updated, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
	app = updated.(AppModel)
	if app.ActiveTab() != TabOverview {
		t.Fatalf("expected TabOverview after pressing 1, got %d", app.ActiveTab())
	}
}

func TestAppModelTabSwitchByTab(t *testing.T) {
	m := NewAppModel(testServices())
	m.SetSize(120, 40)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	app := updated.(AppModel)
	if app.ActiveTab() != TabBoard {
		t.Fatalf("expected TabBoard after Tab, got %d", app.ActiveTab())
	}

	updated, _ = app.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	app = updated.(AppModel)
	if app.ActiveTab() != TabOverview {
		t.Fatalf("expected TabOverview after Shift+Tab, got %d", app.ActiveTab())
	}

	updated, _ = app.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	app = updated.(AppModel)
	if app.ActiveTab() != TabDetail {
		t.Fatalf("expected wrap to TabDetail, got %d", app.ActiveTab())
	}
}

func TestAppModelOverviewReachesDetail(t *testing.T) {
	m := NewAppModel(testServices())
	m.SetSize(120, 40)

	updated, _ := m.Update(overviewMsg{assets: testAssets(), updatedAt: time.Now()})
	app := updated.(AppModel)
	if len(app.dashboard.Assets()) != 3 {
		t.Fatalf("expected dashboard to receive assets, got %d", len(app.dashboard.Assets()))
	}
	if app.detail.Selected() != "BTCUSDT" {
		t.Fatalf("expected detail to select first asset, got %q", app.detail.Selected())
	}
}

func TestAppModelQuit(t *testing.T) {
	m := NewAppModel(testServices())
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if updated.(AppModel).View() != "Goodbye!\n" {
		t.Fatal("expected goodbye view")
	}
}

func TestAppModelWindowResize(t *testing.T) {
	m := NewAppModel(testServices())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
	app := updated.(AppModel)
	if app.width != 100 || app.height != 50 {
		t.Fatalf("expected 100x50, got %dx%d", app.width, app.height)
	}
}

func TestAppModelViewRendersWithoutPanic(t *testing.T) {
	m := NewAppModel(testServices())
	m.SetSize(120, 40)
	updated, _ := m.Update(overviewMsg{assets: testAssets(), updatedAt: time.Now()})
	m = updated.(AppModel)

	for _, tab := range []Tab{TabOverview, TabBoard, TabDetail} {
		m.activeTab = tab
		if m.View() == "" {
			t.Fatalf("expected non-empty view for tab %d", tab)
		}
	}
}

func TestBoardModelLoadsTickers(t *testing.T) {
	board := &stubBoard{tickers: []domain.Ticker{{Symbol: "BTCUSDT", LastPrice: 98000, ChangePct24h: domain.Some(1.5)}}}
	svc := testServices()
	svc.Board = board
	svc.BoardLimit = 12
	m := NewBoardModel(svc)
	m.SetSize(120, 40)

	msg := m.fetchBoardCmd()()
	if board.limit != 12 {
		t.Fatalf("expected configured limit, got %d", board.limit)
	}
	updated, _ := m.Update(msg)
	if len(updated.Tickers()) != 1 {
		t.Fatalf("expected 1 ticker, got %d", len(updated.Tickers()))
	}
	if updated.View() == "" {
		t.Fatal("expected board view")
	}
}

func TestBoardModelError(t *testing.T) {
	svc := testServices()
	svc.Board = &stubBoard{err: errors.New("upstream down")}
	m := NewBoardModel(svc)

	updated, _ := m.Update(m.fetchBoardCmd()())
	if updated.err == nil {
		t.Fatal("expected error recorded")
	}
}

func TestDetailModelNavigation(t *testing.T) {
	m := NewDetailModel()
	m.SetSize(120, 40)
	m, _ = m.Update(overviewMsg{assets: testAssets(), updatedAt: time.Now()})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if m.Selected() != "ETHUSDT" {
		t.Fatalf("expected ETHUSDT, got %s", m.Selected())
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if m.Selected() != "SOLUSDT" {
		t.Fatalf("expected wrap to SOLUSDT, got %s", m.Selected())
	}
	if m.View() == "" {
		t.Fatal("expected detail view")
	}
}
