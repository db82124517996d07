package backtest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/domain"
)

const (
	DefaultTimeframe      = "1h"
	DefaultDays           = 7
	DefaultInitialCapital = 1000.0
	DefaultStep           = 4

	// WindowSize is the number of candles handed to the analyst per step.
	WindowSize = 50

	contextMarker = "BACKTESTING MODE"

	SideBuy       = "BUY"
	SideSell      = "SELL"
	SideAutoClose = "SELL (auto-close)"
)

var ErrNoHistory = errors.New("no history available for the period")

type HistorySource interface {
	GetLongHistory(ctx context.Context, symbol, timeframe string, days int) (domain.Series, error)
}

type Analyst interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) domain.AnalysisResult
}

type Options struct {
	Timeframe      string
	Days           int
	InitialCapital float64
	// Step is how many candles to advance between analyses.
	Step int
}

func (o Options) withDefaults() Options {
	if o.Timeframe == "" {
		o.Timeframe = DefaultTimeframe
	}
	if o.Days <= 0 {
		o.Days = DefaultDays
	}
	if o.InitialCapital <= 0 {
		o.InitialCapital = DefaultInitialCapital
	}
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	return o
}

// Runner replays history through the analyst as a long-only strategy.
type Runner struct {
	tracer  trace.Tracer
	history HistorySource
	analyst Analyst
}

func NewRunner(tracer trace.Tracer, history HistorySource, analyst Analyst) *Runner {
	return &Runner{tracer: tracer, history: history, analyst: analyst}
}

func (r *Runner) Run(ctx context.Context, symbol string, opts Options) (domain.BacktestResult, error) {
	ctx, span := r.tracer.Start(ctx, "backtest.run")
	defer span.End()

	opts = opts.withDefaults()
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	span.SetAttributes(attribute.String("symbol", symbol), attribute.Int("days", opts.Days), attribute.Int("step", opts.Step))

	history, err := r.history.GetLongHistory(ctx, symbol, opts.Timeframe, opts.Days)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("backtest history fetch failed")
	}
	if len(history) == 0 {
		return domain.BacktestResult{}, fmt.Errorf("backtest %s: %w", symbol, ErrNoHistory)
	}

	sim := newSimulation(opts.InitialCapital)
	var usage domain.TokenUsage
	for i := WindowSize; i < len(history); i += opts.Step {
		if err := ctx.Err(); err != nil {
			return domain.BacktestResult{}, err
		}
		window := history[i-WindowSize : i]
		current := history[i]

		analysis := r.analyst.Analyze(ctx, domain.AnalysisRequest{
			Symbol:  symbol,
			Candles: window,
			Context: contextMarker,
		})
		usage.Prompt += analysis.Usage.Prompt
		usage.Completion += analysis.Usage.Completion
		usage.Total += analysis.Usage.Total

		sim.apply(analysis.Signal, current, analysis.Reasoning)
		sim.mark(current)
	}
	sim.closeOut(history[len(history)-1])

	result := sim.result(symbol, opts.Timeframe)
	result.Usage = usage
	log.Info().
		Str("symbol", symbol).
		Int("trades", result.TotalTrades).
		Float64("profit_pct", result.ProfitPct).
		Msg("backtest complete")
	return result, nil
}

type simulation struct {
	initial  float64
	capital  float64
	position float64
	entry    float64
	trades   []domain.BacktestTrade
	equity   []domain.EquityPoint
}

func newSimulation(capital float64) *simulation {
	return &simulation{
		initial: capital,
		capital: capital,
		trades:  []domain.BacktestTrade{},
		equity:  []domain.EquityPoint{},
	}
}

func (s *simulation) apply(signal domain.Signal, c domain.Candle, reasoning string) {
	if c.Close <= 0 {
		return
	}
	switch {
	case signal == domain.SignalBuy && s.position == 0:
		s.position = s.capital / c.Close
		s.entry = c.Close
		s.trades = append(s.trades, domain.BacktestTrade{
			Side:      SideBuy,
			Time:      c.OpenTime,
			Price:     c.Close,
			Amount:    s.position,
			Reasoning: reasoning,
		})
	case signal == domain.SignalSell && s.position > 0:
		s.sell(SideSell, c, reasoning)
	}
}

func (s *simulation) sell(side string, c domain.Candle, reasoning string) {
	s.capital = s.position * c.Close
	s.trades = append(s.trades, domain.BacktestTrade{
		Side:      side,
		Time:      c.OpenTime,
		Price:     c.Close,
		Amount:    s.position,
		ProfitPct: (c.Close - s.entry) / s.entry * 100,
		Reasoning: reasoning,
	})
	s.position = 0
	s.entry = 0
}

func (s *simulation) mark(c domain.Candle) {
	equity := s.capital
	if s.position > 0 {
		equity = s.position * c.Close
	}
	s.equity = append(s.equity, domain.EquityPoint{Time: c.OpenTime, Equity: equity})
}

func (s *simulation) closeOut(last domain.Candle) {
	if s.position > 0 && last.Close > 0 {
		s.sell(SideAutoClose, last, "End of backtest")
	}
}

func (s *simulation) result(symbol, timeframe string) domain.BacktestResult {
	var sells, winners int
	for _, t := range s.trades {
		if t.Side == SideBuy {
			continue
		}
		sells++
		if t.ProfitPct > 0 {
			winners++
		}
	}
	var winRate float64
	if sells > 0 {
		winRate = float64(winners) / float64(sells) * 100
	}
	return domain.BacktestResult{
		Symbol:         symbol,
		Timeframe:      timeframe,
		InitialCapital: s.initial,
		FinalEquity:    s.capital,
		ProfitPct:      (s.capital - s.initial) / s.initial * 100,
		WinRate:        winRate,
		TotalTrades:    len(s.trades),
		Trades:         s.trades,
		Equity:         s.equity,
	}
}
