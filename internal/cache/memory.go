package cache

import (
	"context"
	"sync"
	"time"

	"market-pulse/internal/domain"
)

// MemoryMoversCache keeps the top-movers list in process for ttl.
type MemoryMoversCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	tickers []domain.Ticker
	stored  time.Time
	valid   bool
}

func NewMemoryMoversCache(ttl time.Duration, now func() time.Time) *MemoryMoversCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryMoversCache{ttl: ttl, now: now}
}

func (c *MemoryMoversCache) Get(context.Context) ([]domain.Ticker, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid || c.now().Sub(c.stored) >= c.ttl {
		return nil, false
	}
	out := make([]domain.Ticker, len(c.tickers))
	copy(out, c.tickers)
	return out, true
}

func (c *MemoryMoversCache) Set(_ context.Context, tickers []domain.Ticker) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tickers = append([]domain.Ticker(nil), tickers...)
	c.stored = c.now()
	c.valid = true
}

func (c *MemoryMoversCache) Clear(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tickers = nil
	c.valid = false
}
