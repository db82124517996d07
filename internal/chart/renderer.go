package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"

	"market-pulse/internal/domain"
	"market-pulse/internal/indicator"
)

const (
	defaultChartWidth  = 960
	defaultChartHeight = 640
	maxChartCandles    = 120
)

var (
	colBackground = color.RGBA{R: 250, G: 252, B: 255, A: 255}
	colGrid       = color.RGBA{R: 225, G: 232, B: 240, A: 255}
	colBull       = color.RGBA{R: 18, G: 140, B: 126, A: 255}
	colBear       = color.RGBA{R: 210, G: 61, B: 87, A: 255}
	colWick       = color.RGBA{R: 58, G: 64, B: 90, A: 255}
	colLineA      = color.RGBA{R: 62, G: 106, B: 214, A: 255}
	colLineB      = color.RGBA{R: 255, G: 149, B: 0, A: 255}
	colBand       = color.RGBA{R: 104, G: 122, B: 146, A: 255}
	colVolume     = color.RGBA{R: 120, G: 139, B: 164, A: 255}
	colWhale      = color.RGBA{R: 230, G: 126, B: 34, A: 255}
)

var ErrTooFewCandles = errors.New("need at least 2 candles to render chart")

// Panel selects what the lower pane shows beneath the price candles.
type Panel string

const (
	PanelVolume Panel = "volume"
	PanelRSI    Panel = "rsi"
	PanelMACD   Panel = "macd"
)

func ParsePanel(raw string) (Panel, error) {
	switch p := Panel(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PanelVolume, nil
	case PanelVolume, PanelRSI, PanelMACD:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported chart panel: %s", raw)
	}
}

type Renderer struct {
	panel Panel
}

// NewRenderer renders price candles with Bollinger bands and the given
// lower panel. An empty panel means volume.
func NewRenderer(panel Panel) *Renderer {
	if panel == "" {
		panel = PanelVolume
	}
	return &Renderer{panel: panel}
}

// RenderSeries draws the default panel as PNG bytes.
func (r *Renderer) RenderSeries(series domain.Series) ([]byte, error) {
	return r.Render(series, r.panel)
}

func (r *Renderer) Render(series domain.Series, panel Panel) ([]byte, error) {
	if panel == "" {
		panel = PanelVolume
	}
	if panel != PanelVolume && panel != PanelRSI && panel != PanelMACD {
		return nil, fmt.Errorf("unsupported chart panel: %s", panel)
	}
	candles := usableCandles(series)
	if len(candles) < 2 {
		return nil, ErrTooFewCandles
	}

	// Indicators are computed over the full series so the visible window
	// starts with warmed-up values.
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	mid, upper, lower := indicator.BollingerSeries(closes)

	from := max(0, len(candles)-maxChartCandles)
	visible := candles[from:]
	n := len(visible)

	cv := newCanvas(defaultChartWidth, defaultChartHeight, colBackground)
	priceRect := image.Rect(60, 20, defaultChartWidth-20, defaultChartHeight*72/100)
	lowerRect := image.Rect(60, priceRect.Max.Y+16, defaultChartWidth-20, defaultChartHeight-30)

	lo, hi := priceRange(visible, upper[from:], lower[from:])
	price := newPane(priceRect, n, lo, hi)
	price.grid(cv, 8, 6, colGrid)
	drawCandles(cv, price, visible)
	price.polyline(cv, upper[from:], colBand)
	price.polyline(cv, mid[from:], colLineB)
	price.polyline(cv, lower[from:], colBand)

	switch panel {
	case PanelRSI:
		p := newPane(lowerRect, n, 0, 100)
		p.grid(cv, 8, 3, colGrid)
		p.level(cv, 30, colBand)
		p.level(cv, 70, colBand)
		p.polyline(cv, indicator.RSISeries(closes)[from:], colLineA)
	case PanelMACD:
		macd, signal := indicator.MACDSeries(closes)
		macd, signal = macd[from:], signal[from:]
		lo, hi := span(macd, signal)
		p := newPane(lowerRect, n, lo, hi)
		p.grid(cv, 8, 3, colGrid)
		p.level(cv, 0, colBand)
		p.polyline(cv, macd, colLineA)
		p.polyline(cv, signal, colLineB)
	default:
		drawVolume(cv, lowerRect, candles, from)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cv.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func usableCandles(in domain.Series) []domain.Candle {
	out := make([]domain.Candle, 0, len(in))
	for _, c := range in {
		if c.Close > 0 && c.High >= c.Low {
			out = append(out, c)
		}
	}
	return out
}

func priceRange(candles []domain.Candle, upper, lower []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range candles {
		lo = math.Min(lo, c.Low)
		hi = math.Max(hi, c.High)
	}
	for _, v := range lower {
		if !math.IsNaN(v) {
			lo = math.Min(lo, v)
		}
	}
	for _, v := range upper {
		if !math.IsNaN(v) {
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

func drawCandles(cv *canvas, p pane, candles []domain.Candle) {
	half := max(3, p.slot()) / 2
	for i, c := range candles {
		x := p.x(i)
		cv.line(image.Pt(x, p.y(c.High)), image.Pt(x, p.y(c.Low)), colWick)

		top, bottom := p.y(math.Max(c.Open, c.Close)), p.y(math.Min(c.Open, c.Close))
		if bottom-top < 2 {
			bottom = top + 2
		}
		body := colBull
		if c.Close < c.Open {
			body = colBear
		}
		cv.fill(image.Rect(x-half, top, x+half+1, bottom+1), body)
	}
}

// drawVolume plots the visible volume bars, highlighting the ones that
// exceed the whale multiple of their trailing mean.
func drawVolume(cv *canvas, rect image.Rectangle, candles []domain.Candle, from int) {
	visible := candles[from:]
	var top float64
	for _, c := range visible {
		top = math.Max(top, c.Volume)
	}
	p := newPane(rect, len(visible), 0, top)
	p.grid(cv, 8, 3, colGrid)

	half := p.slot() / 2
	base := p.y(0)
	for i, c := range visible {
		col := colVolume
		if isWhale(candles, from+i) {
			col = colWhale
		}
		x := p.x(i)
		cv.fill(image.Rect(x-half, p.y(c.Volume), x+half+1, base+1), col)
	}
}

func isWhale(candles []domain.Candle, idx int) bool {
	start := max(0, idx-indicator.DefaultAnomalyWindow+1)
	var sum float64
	for _, c := range candles[start : idx+1] {
		sum += c.Volume
	}
	mean := sum / float64(idx+1-start)
	return mean > 0 && candles[idx].Volume > mean*indicator.DefaultAnomalyMultiple
}
