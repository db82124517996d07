package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/backtest"
	"market-pulse/internal/chart"
	"market-pulse/internal/domain"
)

type OverviewService interface {
	Run(ctx context.Context, symbols []string) ([]domain.AnalyzedAsset, error)
	TickerBoard(ctx context.Context, limit int) ([]domain.Ticker, error)
	Series(ctx context.Context, symbol, timeframe string, limit int) (domain.Series, error)
}

type SnapshotReader interface {
	Latest() ([]domain.AnalyzedAsset, time.Time)
}

type StatsService interface {
	Snapshot() domain.StatsSnapshot
	Reset(ctx context.Context) error
}

type BacktestRunner interface {
	Run(ctx context.Context, symbol string, opts backtest.Options) (domain.BacktestResult, error)
}

type ChartRenderer interface {
	Render(series domain.Series, panel chart.Panel) ([]byte, error)
}

type StreamServer interface {
	ServeWS(c *gin.Context)
}

// Deps groups the services behind the HTTP API. Nil members make their
// routes answer 503.
type Deps struct {
	Overview OverviewService
	Snapshot SnapshotReader
	Stats    StatsService
	Backtest BacktestRunner
	Chart    ChartRenderer
	Stream   StreamServer
	Primary  string
}

type Handler struct {
	tracer trace.Tracer
	deps   Deps
}

func New(tracer trace.Tracer, deps Deps) *Handler {
	if deps.Primary == "" {
		deps.Primary = domain.PrimaryTimeframe
	}
	return &Handler{tracer: tracer, deps: deps}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/overview", h.GetOverview)
	r.GET("/api/tickers", h.GetTickers)
	r.GET("/api/assets/:symbol/chart", h.GetChart)
	r.GET("/api/stats", h.GetStats)
	r.POST("/api/stats/reset", h.ResetStats)
	r.GET("/api/backtest/:symbol", h.RunBacktest)
	if h.deps.Stream != nil {
		r.GET("/ws", h.deps.Stream.ServeWS)
	}
}

// Health godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
