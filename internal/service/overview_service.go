package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/domain"
	"market-pulse/internal/metrics"
)

const (
	defaultMoversLimit    = 4
	defaultBoardLimit     = 20
	defaultDepthLimit     = 100
	defaultSeriesLimit    = 200
	shortTimeframeLimit   = 100
	shortTimeframe        = "15m"
	stageSeries           = "series"
	stageDepth            = "depth"
	stageTickers          = "tickers"
	stageChart            = "chart"
	notificationDelivered = "delivered"
	notificationSkipped   = "failed"
)

type QuoteSource interface {
	Class() domain.AssetClass
	GetTopMovers(ctx context.Context, limit int) ([]domain.Ticker, error)
	GetTickers(ctx context.Context, symbols []string) ([]domain.Ticker, error)
	GetTickerBoard(ctx context.Context, limit int) ([]domain.Ticker, error)
	GetSeries(ctx context.Context, symbol, timeframe string, limit int) (domain.Series, error)
	GetDepth(ctx context.Context, symbol string, limit int) (domain.Depth, error)
}

type IndicatorEngine interface {
	Compute(series domain.Series) domain.IndicatorSnapshot
	DetectVolumeAnomaly(series domain.Series) domain.AnomalyFlag
	OutlierScore(series domain.Series) domain.Reading
}

type WallDetector interface {
	Detect(depth domain.Depth) domain.OrderBookWalls
}

type ContextAssembler interface {
	Build(
		symbol string,
		set domain.TimeframeSet,
		news []domain.NewsItem,
		anomaly domain.AnomalyFlag,
		walls domain.OrderBookWalls,
		snap domain.IndicatorSnapshot,
	) domain.AssetContext
}

type Analyst interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) domain.AnalysisResult
}

type NewsFetcher interface {
	Fetch(ctx context.Context, symbol string) []domain.NewsItem
}

type Notifier interface {
	Notify(ctx context.Context, symbol string, signal domain.Signal, price float64, reasoning string) bool
}

type MoversCache interface {
	Get(ctx context.Context) ([]domain.Ticker, bool)
	Set(ctx context.Context, tickers []domain.Ticker)
	Clear(ctx context.Context)
}

type ChartRenderer interface {
	RenderSeries(series domain.Series) ([]byte, error)
}

// PassObserver receives every completed overview pass.
type PassObserver interface {
	ObservePass(ctx context.Context, assets []domain.AnalyzedAsset)
}

type OverviewConfig struct {
	Timeframes  []string
	Primary     string
	MoversLimit int
	DepthLimit  int
	// SeriesLimits overrides the candle count fetched per timeframe.
	SeriesLimits map[string]int
}

func (c OverviewConfig) withDefaults() OverviewConfig {
	if c.Primary == "" {
		c.Primary = domain.PrimaryTimeframe
	}
	if len(c.Timeframes) == 0 {
		c.Timeframes = append([]string(nil), domain.DefaultTimeframes...)
	}
	hasPrimary := false
	for _, tf := range c.Timeframes {
		if tf == c.Primary {
			hasPrimary = true
			break
		}
	}
	if !hasPrimary {
		c.Timeframes = append(append([]string(nil), c.Timeframes...), c.Primary)
	}
	if c.MoversLimit <= 0 {
		c.MoversLimit = defaultMoversLimit
	}
	if c.DepthLimit <= 0 {
		c.DepthLimit = defaultDepthLimit
	}
	return c
}

func (c OverviewConfig) seriesLimit(timeframe string) int {
	if n, ok := c.SeriesLimits[timeframe]; ok && n > 0 {
		return n
	}
	if timeframe == shortTimeframe {
		return shortTimeframeLimit
	}
	return defaultSeriesLimit
}

// OverviewDeps wires the pipeline stages. Source, Engine, Assembler and
// Analyst are required; the rest may be nil.
type OverviewDeps struct {
	Source    QuoteSource
	Engine    IndicatorEngine
	Walls     WallDetector
	Assembler ContextAssembler
	Analyst   Analyst
	News      NewsFetcher
	Notifier  Notifier
	Movers    MoversCache
	Chart     ChartRenderer
	Memory    *SignalMemory
	Observers []PassObserver
}

type OverviewService struct {
	tracer trace.Tracer
	deps   OverviewDeps
	cfg    OverviewConfig
	now    func() time.Time

	// passes run one at a time so notification memory sees a consistent order.
	mu sync.Mutex
}

func NewOverviewService(tracer trace.Tracer, deps OverviewDeps, cfg OverviewConfig) *OverviewService {
	if deps.Memory == nil {
		deps.Memory = NewSignalMemory()
	}
	return &OverviewService{
		tracer: tracer,
		deps:   deps,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

// AddObserver registers a pass observer. Call before the first Run.
func (s *OverviewService) AddObserver(o PassObserver) {
	if o == nil {
		return
	}
	s.mu.Lock()
	s.deps.Observers = append(s.deps.Observers, o)
	s.mu.Unlock()
}

func (s *OverviewService) Class() domain.AssetClass {
	return s.deps.Source.Class()
}

// Run analyzes the given symbols, or the cached top movers when none are
// given. The result is ordered by 24h volume, highest first. Per-symbol
// failures degrade to empty fields; only cancellation yields an error.
func (s *OverviewService) Run(ctx context.Context, symbols []string) ([]domain.AnalyzedAsset, error) {
	ctx, span := s.tracer.Start(ctx, "overview-service.run")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	runID := uuid.NewString()
	started := s.now()
	symbols = dedupeSymbols(symbols)
	mode := "symbols"
	if len(symbols) == 0 {
		mode = "movers"
	}
	span.SetAttributes(attribute.String("run_id", runID), attribute.String("mode", mode), attribute.Int("symbols", len(symbols)))
	logger := log.With().Str("run_id", runID).Str("mode", mode).Logger()

	tickers := s.resolveTickers(ctx, symbols)
	assets := make([]domain.AnalyzedAsset, 0, len(tickers))
	for _, t := range tickers {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Int("completed", len(assets)).Msg("overview pass cancelled")
			return sortByVolume(assets), err
		}
		asset := s.analyze(ctx, t)
		s.notify(ctx, asset)
		assets = append(assets, asset)
	}
	assets = sortByVolume(assets)

	for _, o := range s.deps.Observers {
		o.ObservePass(ctx, assets)
	}

	elapsed := s.now().Sub(started)
	metrics.PassesTotal.WithLabelValues(mode).Inc()
	metrics.PassDuration.Observe(elapsed.Seconds())
	logger.Info().Int("assets", len(assets)).Dur("elapsed", elapsed).Msg("overview pass complete")
	return assets, nil
}

// TickerBoard returns the lightweight price strip without running analysis.
func (s *OverviewService) TickerBoard(ctx context.Context, limit int) ([]domain.Ticker, error) {
	ctx, span := s.tracer.Start(ctx, "overview-service.ticker-board")
	defer span.End()

	if limit <= 0 {
		limit = defaultBoardLimit
	}
	board, err := s.deps.Source.GetTickerBoard(ctx, limit)
	if err != nil {
		log.Warn().Err(err).Msg("ticker board unavailable")
		return []domain.Ticker{}, nil
	}
	return board, nil
}

// Series exposes the adapter's candle fetch for chart and tool callers.
func (s *OverviewService) Series(ctx context.Context, symbol, timeframe string, limit int) (domain.Series, error) {
	ctx, span := s.tracer.Start(ctx, "overview-service.series")
	defer span.End()

	if limit <= 0 {
		limit = s.cfg.seriesLimit(timeframe)
	}
	return s.deps.Source.GetSeries(ctx, normalizeSymbol(symbol), timeframe, limit)
}

// Reset drops the movers cache and the notification memory.
func (s *OverviewService) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deps.Movers != nil {
		s.deps.Movers.Clear(ctx)
	}
	s.deps.Memory.Reset()
}

func (s *OverviewService) resolveTickers(ctx context.Context, symbols []string) []domain.Ticker {
	if len(symbols) == 0 {
		return s.topMovers(ctx)
	}

	fetched, err := s.deps.Source.GetTickers(ctx, symbols)
	if err != nil {
		metrics.StageFailures.WithLabelValues(stageTickers).Inc()
		log.Warn().Err(err).Strs("symbols", symbols).Msg("ticker lookup failed")
	}
	bySymbol := make(map[string]domain.Ticker, len(fetched))
	for _, t := range fetched {
		bySymbol[strings.ToUpper(t.Symbol)] = t
	}
	out := make([]domain.Ticker, 0, len(symbols))
	for _, sym := range symbols {
		t, ok := bySymbol[sym]
		if !ok {
			t = domain.Ticker{Symbol: sym}
		}
		out = append(out, t)
	}
	return out
}

func (s *OverviewService) topMovers(ctx context.Context) []domain.Ticker {
	if s.deps.Movers != nil {
		if cached, ok := s.deps.Movers.Get(ctx); ok {
			return cached
		}
	}
	movers, err := s.deps.Source.GetTopMovers(ctx, s.cfg.MoversLimit)
	if err != nil {
		metrics.StageFailures.WithLabelValues(stageTickers).Inc()
		log.Warn().Err(err).Msg("top movers unavailable")
		return nil
	}
	if len(movers) > 0 && s.deps.Movers != nil {
		s.deps.Movers.Set(ctx, movers)
	}
	return movers
}

func (s *OverviewService) analyze(ctx context.Context, t domain.Ticker) domain.AnalyzedAsset {
	ctx, span := s.tracer.Start(ctx, "overview-service.analyze")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", t.Symbol))

	set := make(domain.TimeframeSet, len(s.cfg.Timeframes))
	for _, tf := range s.cfg.Timeframes {
		series, err := s.deps.Source.GetSeries(ctx, t.Symbol, tf, s.cfg.seriesLimit(tf))
		if err != nil {
			metrics.StageFailures.WithLabelValues(stageSeries).Inc()
			log.Warn().Err(err).Str("symbol", t.Symbol).Str("timeframe", tf).Msg("series fetch failed")
			series = domain.Series{}
		}
		set[tf] = series
	}
	primary := set[s.cfg.Primary]

	snap := s.deps.Engine.Compute(primary)
	anomaly := s.deps.Engine.DetectVolumeAnomaly(primary)
	outlier := s.deps.Engine.OutlierScore(primary)
	walls := s.walls(ctx, t.Symbol)

	var news []domain.NewsItem
	if s.deps.News != nil {
		news = s.deps.News.Fetch(ctx, t.Symbol)
	}
	if news == nil {
		news = []domain.NewsItem{}
	}

	actx := s.deps.Assembler.Build(t.Symbol, set, news, anomaly, walls, snap)

	var image []byte
	if s.deps.Chart != nil && len(primary) > 1 {
		img, err := s.deps.Chart.RenderSeries(primary)
		if err != nil {
			metrics.StageFailures.WithLabelValues(stageChart).Inc()
			log.Debug().Err(err).Str("symbol", t.Symbol).Msg("chart render skipped")
		} else {
			image = img
		}
	}

	result := s.deps.Analyst.Analyze(ctx, domain.AnalysisRequest{
		Symbol:  t.Symbol,
		Candles: primary,
		Context: actx.Text,
		Image:   image,
	})
	metrics.Signals.WithLabelValues(string(result.Signal)).Inc()
	metrics.Tokens.WithLabelValues("prompt").Add(float64(result.Usage.Prompt))
	metrics.Tokens.WithLabelValues("completion").Add(float64(result.Usage.Completion))

	price := t.LastPrice
	if price == 0 {
		if last, ok := primary.Last(); ok {
			price = last.Close
		}
	}

	changes := actx.TimeframeChanges
	if changes == nil {
		changes = []domain.TimeframeChange{}
	}

	return domain.AnalyzedAsset{
		Symbol:           t.Symbol,
		Class:            s.deps.Source.Class(),
		Price:            price,
		Change24h:        t.ChangePct24h,
		Volume24h:        t.QuoteVolume24h,
		Indicators:       snap,
		Anomaly:          anomaly,
		Walls:            walls,
		TimeframeChanges: changes,
		News:             news,
		OutlierScore:     outlier,
		Context:          actx.Text,
		Signal:           result.Signal,
		Reasoning:        result.Reasoning,
		Levels:           result.Levels,
		Usage:            result.Usage,
		History:          primary,
		AnalyzedAt:       s.now().UTC(),
	}
}

func (s *OverviewService) walls(ctx context.Context, symbol string) domain.OrderBookWalls {
	if s.deps.Walls == nil || s.deps.Source.Class() != domain.AssetClassCrypto {
		return domain.OrderBookWalls{}
	}
	depth, err := s.deps.Source.GetDepth(ctx, symbol, s.cfg.DepthLimit)
	if err != nil {
		metrics.StageFailures.WithLabelValues(stageDepth).Inc()
		log.Warn().Err(err).Str("symbol", symbol).Msg("depth fetch failed")
		return domain.OrderBookWalls{}
	}
	return s.deps.Walls.Detect(depth)
}

func (s *OverviewService) notify(ctx context.Context, asset domain.AnalyzedAsset) {
	if !s.deps.Memory.Observe(asset.Symbol, asset.Signal) {
		return
	}
	if s.deps.Notifier == nil {
		return
	}
	if s.deps.Notifier.Notify(ctx, asset.Symbol, asset.Signal, asset.Price, asset.Reasoning) {
		metrics.Notifications.WithLabelValues(notificationDelivered).Inc()
		return
	}
	metrics.Notifications.WithLabelValues(notificationSkipped).Inc()
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// dedupeSymbols normalizes case and drops repeats, keeping first occurrence.
func dedupeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		sym := normalizeSymbol(raw)
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

func sortByVolume(assets []domain.AnalyzedAsset) []domain.AnalyzedAsset {
	sort.SliceStable(assets, func(i, j int) bool {
		return domain.DescendingPresentFirst(assets[i].Volume24h, assets[j].Volume24h)
	})
	return assets
}
