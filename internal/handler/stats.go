package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"market-pulse/internal/backtest"
)

type statsResponse struct {
	Hits             int64   `json:"hits"`
	Misses           int64   `json:"misses"`
	WinRate          float64 `json:"win_rate"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
}

// GetStats godoc
// @Summary      Prediction accuracy and token usage
// @Tags         stats
// @Produce      json
// @Success      200  {object}  statsResponse
// @Failure      503  {object}  map[string]string
// @Router       /api/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	if h.deps.Stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	s := h.deps.Stats.Snapshot()
	c.JSON(http.StatusOK, statsResponse{
		Hits:             s.Hits,
		Misses:           s.Misses,
		WinRate:          s.WinRate(),
		PromptTokens:     s.PromptTokens,
		CompletionTokens: s.CompletionTokens,
		TotalTokens:      s.PromptTokens + s.CompletionTokens,
	})
}

// ResetStats godoc
// @Summary      Reset prediction stats
// @Tags         stats
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/stats/reset [post]
func (h *Handler) ResetStats(c *gin.Context) {
	if h.deps.Stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.reset-stats")
	defer span.End()

	if err := h.deps.Stats.Reset(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// RunBacktest godoc
// @Summary      Backtest the AI strategy
// @Description  Replays history through the analyst, long-only, and reports equity and trades
// @Tags         backtest
// @Produce      json
// @Param        symbol  path   string  true   "Asset symbol"
// @Param        days    query  int     false  "History window in days (1-90)"  default(7)
// @Param        step    query  int     false  "Candles between decisions (1-48)"  default(4)
// @Success      200  {object}  domain.BacktestResult
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/backtest/{symbol} [get]
func (h *Handler) RunBacktest(c *gin.Context) {
	if h.deps.Backtest == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backtester unavailable"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.run-backtest")
	defer span.End()

	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	opts := backtest.Options{}
	var err error
	if opts.Days, err = boundedInt(c.Query("days"), backtest.DefaultDays, 1, 90); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
		return
	}
	if opts.Step, err = boundedInt(c.Query("step"), backtest.DefaultStep, 1, 48); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "step must be between 1 and 48"})
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol), attribute.Int("days", opts.Days))

	result, err := h.deps.Backtest.Run(ctx, symbol, opts)
	if errors.Is(err, backtest.ErrNoHistory) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func boundedInt(raw string, fallback, lo, hi int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, strconv.ErrRange
	}
	return n, nil
}
