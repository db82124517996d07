package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/domain"
)

// HitThresholdPct is the move, in percent, that separates a directional
// outcome from a flat one when scoring predictions.
const HitThresholdPct = 0.05

type StatsStore interface {
	Load(ctx context.Context) (domain.StatsSnapshot, error)
	Save(ctx context.Context, stats domain.StatsSnapshot) error
}

type prediction struct {
	price  float64
	signal domain.Signal
}

// StatsService scores each symbol's previous signal against the price seen
// on the next pass and accumulates token spend.
type StatsService struct {
	tracer trace.Tracer
	store  StatsStore

	mu          sync.Mutex
	stats       domain.StatsSnapshot
	predictions map[string]prediction
}

func NewStatsService(tracer trace.Tracer, store StatsStore) *StatsService {
	return &StatsService{
		tracer:      tracer,
		store:       store,
		predictions: make(map[string]prediction),
	}
}

// Load restores persisted counters. A missing store starts from zero.
func (s *StatsService) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "stats-service.load")
	defer span.End()

	stats, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	return nil
}

func (s *StatsService) Snapshot() domain.StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *StatsService) ObservePass(ctx context.Context, assets []domain.AnalyzedAsset) {
	ctx, span := s.tracer.Start(ctx, "stats-service.observe-pass")
	defer span.End()

	s.mu.Lock()
	for _, a := range assets {
		if prev, ok := s.predictions[a.Symbol]; ok && a.Price > 0 {
			if hit, scored := scorePrediction(prev, a.Price); scored {
				if hit {
					s.stats.Hits++
				} else {
					s.stats.Misses++
				}
			}
		}
		if a.Price > 0 {
			s.predictions[a.Symbol] = prediction{price: a.Price, signal: a.Signal}
		}
		s.stats.PromptTokens += a.Usage.Prompt
		s.stats.CompletionTokens += a.Usage.Completion
	}
	current := s.stats
	s.mu.Unlock()

	s.persist(ctx, current)
}

// Reset zeroes counters and forgets pending predictions.
func (s *StatsService) Reset(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "stats-service.reset")
	defer span.End()

	s.mu.Lock()
	s.stats = domain.StatsSnapshot{}
	s.predictions = make(map[string]prediction)
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, domain.StatsSnapshot{}); err != nil {
		return fmt.Errorf("reset stats: %w", err)
	}
	return nil
}

func (s *StatsService) persist(ctx context.Context, stats domain.StatsSnapshot) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, stats); err != nil {
		log.Warn().Err(err).Msg("stats save failed")
	}
}

// scorePrediction reports whether prev was right given the new price.
// Unavailable signals and a zero reference price are not scored.
func scorePrediction(prev prediction, price float64) (hit bool, scored bool) {
	if prev.price <= 0 {
		return false, false
	}
	diff := (price - prev.price) / prev.price * 100
	switch prev.signal {
	case domain.SignalBuy:
		return diff > HitThresholdPct, true
	case domain.SignalSell:
		return diff < -HitThresholdPct, true
	case domain.SignalHold:
		return math.Abs(diff) <= HitThresholdPct, true
	}
	return false, false
}
