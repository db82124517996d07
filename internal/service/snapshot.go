package service

import (
	"context"
	"sync"
	"time"

	"market-pulse/internal/domain"
)

// Snapshot holds the most recent overview pass for readers that must not
// trigger a new one.
type Snapshot struct {
	mu     sync.RWMutex
	assets []domain.AnalyzedAsset
	at     time.Time
	now    func() time.Time
}

func NewSnapshot() *Snapshot {
	return &Snapshot{now: time.Now}
}

func (s *Snapshot) ObservePass(_ context.Context, assets []domain.AnalyzedAsset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets = append([]domain.AnalyzedAsset(nil), assets...)
	s.at = s.now().UTC()
}

// Latest returns a copy of the last pass and when it completed. The zero
// time means no pass has finished yet.
func (s *Snapshot) Latest() ([]domain.AnalyzedAsset, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AnalyzedAsset(nil), s.assets...), s.at
}

// Find returns the latest analysis of symbol, if any.
func (s *Snapshot) Find(symbol string) (domain.AnalyzedAsset, bool) {
	symbol = normalizeSymbol(symbol)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return domain.AnalyzedAsset{}, false
}
