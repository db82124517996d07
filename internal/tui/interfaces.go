package tui

import (
	"context"
	"time"

	"market-pulse/internal/domain"
)

// SnapshotReader exposes the most recent completed pass.
type SnapshotReader interface {
	Latest() ([]domain.AnalyzedAsset, time.Time)
}

// Refresher forces a new analysis pass.
type Refresher interface {
	Run(ctx context.Context, symbols []string) ([]domain.AnalyzedAsset, error)
}

// BoardReader provides the ticker board.
type BoardReader interface {
	TickerBoard(ctx context.Context, limit int) ([]domain.Ticker, error)
}

// StatsReader provides prediction scoring counters.
type StatsReader interface {
	Snapshot() domain.StatsSnapshot
}

// DefaultRefreshEvery is how often the screens re-read their sources.
const DefaultRefreshEvery = 10 * time.Second

// Services bundles all service dependencies injected into the TUI.
type Services struct {
	Snapshot     SnapshotReader
	Overview     Refresher
	Board        BoardReader
	Stats        StatsReader
	BoardLimit   int
	RefreshEvery time.Duration
}

func (s Services) refreshEvery() time.Duration {
	if s.RefreshEvery <= 0 {
		return DefaultRefreshEvery
	}
	return s.RefreshEvery
}

func (s Services) boardLimit() int {
	if s.BoardLimit <= 0 {
		return 20
	}
	return s.BoardLimit
}
