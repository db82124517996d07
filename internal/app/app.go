package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/ai"
	"market-pulse/internal/backtest"
	"market-pulse/internal/cache"
	"market-pulse/internal/chart"
	"market-pulse/internal/config"
	"market-pulse/internal/db"
	"market-pulse/internal/domain"
	"market-pulse/internal/indicator"
	"market-pulse/internal/marketctx"
	"market-pulse/internal/news"
	"market-pulse/internal/orderbook"
	"market-pulse/internal/provider"
	"market-pulse/internal/repository"
	"market-pulse/internal/service"
)

// Source is what the pipeline needs from a market data adapter.
type Source interface {
	service.QuoteSource
	backtest.HistorySource
	Name() string
}

// Pipeline holds the assembled services shared by every entry point.
type Pipeline struct {
	Source   Source
	Overview *service.OverviewService
	Stats    *service.StatsService
	Snapshot *service.Snapshot
	Backtest *backtest.Runner
	Chart    *chart.Renderer

	closers []func() error
}

// Options carries process-specific extras. Only the server owns a notifier.
type Options struct {
	Notifier  service.Notifier
	Observers []service.PassObserver
}

// Build wires source, engine, analyst, caches and stats storage from cfg.
// db.Pool and cache.Client are used when the caller initialised them.
func Build(ctx context.Context, cfg *config.Config, tracer trace.Tracer, opts Options) (*Pipeline, error) {
	timeout := time.Duration(cfg.HTTPTimeoutSecs) * time.Second
	source := NewSource(cfg, timeout)

	var llm ai.LLMClient
	if cfg.OpenAIAPIKey != "" {
		llm = ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	analyst := ai.NewAnalyst(tracer, llm)

	p := &Pipeline{
		Source:   source,
		Snapshot: service.NewSnapshot(),
		Chart:    chart.NewRenderer(chart.PanelVolume),
		Backtest: backtest.NewRunner(tracer, source, analyst),
	}

	store, err := p.statsStore(ctx, cfg, tracer)
	if err != nil {
		return nil, err
	}
	p.Stats = service.NewStatsService(tracer, store)
	if err := p.Stats.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to load prediction stats, starting from zero")
	}

	deps := service.OverviewDeps{
		Source:    source,
		Engine:    indicator.NewEngine(indicator.Options{}),
		Walls:     orderbook.NewDetector(orderbook.DefaultWallMultiple),
		Assembler: marketctx.NewAssembler(cfg.Timeframes, cfg.PrimaryTimeframe),
		Analyst:   analyst,
		News:      news.NewCryptoPanic(cfg.CryptoPanicAPIKey, timeout),
		Notifier:  opts.Notifier,
		Movers:    moversCache(cfg),
		Observers: append([]service.PassObserver{p.Snapshot, p.Stats}, opts.Observers...),
	}
	if cfg.ChartImages {
		deps.Chart = p.Chart
	}
	p.Overview = service.NewOverviewService(tracer, deps, service.OverviewConfig{
		Timeframes:  cfg.Timeframes,
		Primary:     cfg.PrimaryTimeframe,
		MoversLimit: cfg.TopMoversLimit,
	})

	log.Info().
		Str("source", source.Name()).
		Strs("timeframes", cfg.Timeframes).
		Bool("ai", llm != nil).
		Bool("chart_images", cfg.ChartImages).
		Msg("pipeline ready")
	return p, nil
}

// NewSource picks the quote adapter named by MARKET_SOURCE.
func NewSource(cfg *config.Config, timeout time.Duration) Source {
	if cfg.MarketSource == "yahoo" {
		return provider.NewYahooSource(provider.YahooConfig{
			Hosts:     cfg.YahooHosts,
			Watchlist: cfg.YahooWatchlist,
			Timeout:   timeout,
		})
	}
	return provider.NewBinanceSource(provider.BinanceConfig{
		Hosts:      cfg.BinanceHosts,
		QuoteAsset: cfg.QuoteAsset,
		Timeout:    timeout,
	})
}

func moversCache(cfg *config.Config) service.MoversCache {
	ttl := time.Duration(cfg.MoversCacheSecs) * time.Second
	if cache.Client != nil {
		return cache.NewRedisMoversCache(cache.Client, ttl)
	}
	return cache.NewMemoryMoversCache(ttl, nil)
}

func (p *Pipeline) statsStore(ctx context.Context, cfg *config.Config, tracer trace.Tracer) (service.StatsStore, error) {
	if db.Pool != nil {
		repo := repository.NewStatsRepository(db.Pool, tracer)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("prepare stats table: %w", err)
		}
		return repo, nil
	}
	store, err := repository.NewSQLiteStatsStore(cfg.StatsSQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open stats store: %w", err)
	}
	p.closers = append(p.closers, store.Close)
	return store, nil
}

// Class reports the asset class of the configured source.
func (p *Pipeline) Class() domain.AssetClass {
	return p.Source.Class()
}

func (p *Pipeline) Close() {
	for _, c := range p.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close pipeline resource")
		}
	}
	p.closers = nil
}
