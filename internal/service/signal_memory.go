package service

import (
	"sync"

	"market-pulse/internal/domain"
)

// SignalMemory remembers the last actionable signal alerted per symbol.
type SignalMemory struct {
	mu   sync.Mutex
	last map[string]domain.Signal
}

func NewSignalMemory() *SignalMemory {
	return &SignalMemory{last: make(map[string]domain.Signal)}
}

// Observe records signal for symbol and reports whether it should be alerted.
// Buy and sell alert only when they differ from the previous one. Hold
// forgets the symbol; unavailable leaves the memory untouched.
func (m *SignalMemory) Observe(symbol string, signal domain.Signal) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch signal {
	case domain.SignalBuy, domain.SignalSell:
		if m.last[symbol] == signal {
			return false
		}
		m.last[symbol] = signal
		return true
	case domain.SignalHold:
		delete(m.last, symbol)
	}
	return false
}

func (m *SignalMemory) Last(symbol string) (domain.Signal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.last[symbol]
	return s, ok
}

func (m *SignalMemory) Reset() {
	m.mu.Lock()
	m.last = make(map[string]domain.Signal)
	m.mu.Unlock()
}
