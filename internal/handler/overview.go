package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"market-pulse/internal/chart"
	"market-pulse/internal/domain"
)

const (
	defaultTickerLimit = 20
	maxTickerLimit     = 100
	chartCandles       = 200
)

type overviewResponse struct {
	Assets    []domain.AnalyzedAsset `json:"assets"`
	UpdatedAt time.Time              `json:"updated_at"`
	Live      bool                   `json:"live"`
	Error     string                 `json:"error,omitempty"`
}

// GetOverview godoc
// @Summary      Analyzed market overview
// @Description  Returns the latest scheduled pass, or runs a fresh pass for the requested symbols
// @Tags         overview
// @Produce      json
// @Param        symbols  query  string  false  "Comma separated symbols (e.g. BTCUSDT,ETHUSDT)"
// @Success      200  {object}  overviewResponse
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/overview [get]
func (h *Handler) GetOverview(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-overview")
	defer span.End()

	symbols := splitSymbols(c.Query("symbols"))
	if len(symbols) == 0 && h.deps.Snapshot != nil {
		if assets, at := h.deps.Snapshot.Latest(); !at.IsZero() {
			c.JSON(http.StatusOK, overviewResponse{Assets: assets, UpdatedAt: at})
			return
		}
	}
	if h.deps.Overview == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "overview service unavailable"})
		return
	}

	span.SetAttributes(attribute.StringSlice("symbols", symbols))
	assets, err := h.deps.Overview.Run(ctx, symbols)
	if err != nil && len(assets) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := overviewResponse{Assets: assets, UpdatedAt: time.Now().UTC(), Live: true}
	if err != nil {
		resp.Error = err.Error()
	}
	if resp.Assets == nil {
		resp.Assets = []domain.AnalyzedAsset{}
	}
	c.JSON(http.StatusOK, resp)
}

// GetTickers godoc
// @Summary      Ticker board
// @Description  Top tickers by 24h quote volume
// @Tags         overview
// @Produce      json
// @Param        limit  query  int  false  "Number of tickers (default 20, max 100)"  default(20)
// @Success      200  {array}   domain.Ticker
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/tickers [get]
func (h *Handler) GetTickers(c *gin.Context) {
	if h.deps.Overview == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "overview service unavailable"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-tickers")
	defer span.End()

	limit := defaultTickerLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxTickerLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	tickers, err := h.deps.Overview.TickerBoard(ctx, limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if tickers == nil {
		tickers = []domain.Ticker{}
	}
	c.JSON(http.StatusOK, tickers)
}

// GetChart godoc
// @Summary      Candlestick chart
// @Description  PNG chart with Bollinger bands and an auxiliary panel
// @Tags         overview
// @Produce      png
// @Param        symbol     path   string  true   "Asset symbol"
// @Param        timeframe  query  string  false  "Candle timeframe (15m, 1h, 4h, 1d)"
// @Param        panel      query  string  false  "Auxiliary panel (volume, rsi, macd)"
// @Success      200
// @Failure      400  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/assets/{symbol}/chart [get]
func (h *Handler) GetChart(c *gin.Context) {
	if h.deps.Overview == nil || h.deps.Chart == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chart service unavailable"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-chart")
	defer span.End()

	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	timeframe := strings.ToLower(strings.TrimSpace(c.DefaultQuery("timeframe", h.deps.Primary)))
	if !supportedTimeframe(timeframe) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                "unsupported timeframe: " + timeframe,
			"supported_timeframes": domain.SupportedIntervals,
		})
		return
	}
	panel, err := chart.ParsePanel(c.Query("panel"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("timeframe", timeframe))

	series, err := h.deps.Overview.Series(ctx, symbol, timeframe, chartCandles)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	png, err := h.deps.Chart.Render(series, panel)
	if errors.Is(err, chart.ErrTooFewCandles) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func splitSymbols(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.ToUpper(strings.TrimSpace(part)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func supportedTimeframe(tf string) bool {
	for _, s := range domain.SupportedIntervals {
		if s == tf {
			return true
		}
	}
	return false
}
