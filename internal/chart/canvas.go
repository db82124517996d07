package chart

import (
	"image"
	"image/color"
	"math"
)

type canvas struct {
	img *image.RGBA
}

func newCanvas(w, h int, bg color.RGBA) *canvas {
	c := &canvas{img: image.NewRGBA(image.Rect(0, 0, w, h))}
	c.fill(c.img.Bounds(), bg)
	return c
}

func (c *canvas) fill(r image.Rectangle, col color.RGBA) {
	r = r.Intersect(c.img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c.img.SetRGBA(x, y, col)
		}
	}
}

// line draws with Bresenham; points outside the image are clipped.
func (c *canvas) line(from, to image.Point, col color.RGBA) {
	dx, dy := iabs(to.X-from.X), -iabs(to.Y-from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}
	p := from
	e := dx + dy
	bounds := c.img.Bounds()
	for {
		if p.In(bounds) {
			c.img.SetRGBA(p.X, p.Y, col)
		}
		if p == to {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
}

// pane maps candle indexes and values into a rectangle of the canvas.
type pane struct {
	rect   image.Rectangle
	n      int
	lo, hi float64
}

func newPane(rect image.Rectangle, n int, lo, hi float64) pane {
	if hi <= lo {
		hi = lo + 1
	}
	return pane{rect: rect, n: n, lo: lo, hi: hi}
}

func (p pane) x(i int) int {
	if p.n <= 1 {
		return p.rect.Min.X
	}
	return p.rect.Min.X + i*(p.rect.Dx()-1)/(p.n-1)
}

func (p pane) y(v float64) int {
	t := math.Max(0, math.Min(1, (v-p.lo)/(p.hi-p.lo)))
	return p.rect.Max.Y - int(t*float64(p.rect.Dy()-1))
}

func (p pane) slot() int {
	if p.n == 0 {
		return 1
	}
	return max(1, (p.rect.Dx()-10)/p.n-1)
}

func (p pane) grid(c *canvas, cols, rows int, col color.RGBA) {
	r := p.rect
	for i := 0; i <= cols; i++ {
		x := r.Min.X + r.Dx()*i/max(1, cols)
		c.line(image.Pt(x, r.Min.Y), image.Pt(x, r.Max.Y), col)
	}
	for i := 0; i <= rows; i++ {
		y := r.Min.Y + r.Dy()*i/max(1, rows)
		c.line(image.Pt(r.Min.X, y), image.Pt(r.Max.X, y), col)
	}
}

func (p pane) level(c *canvas, v float64, col color.RGBA) {
	y := p.y(v)
	c.line(image.Pt(p.rect.Min.X, y), image.Pt(p.rect.Max.X, y), col)
}

// polyline skips NaN/Inf values, breaking the line at each gap.
func (p pane) polyline(c *canvas, values []float64, col color.RGBA) {
	var prev image.Point
	have := false
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			have = false
			continue
		}
		pt := image.Pt(p.x(i), p.y(v))
		if have {
			c.line(prev, pt, col)
		}
		prev, have = pt, true
	}
}

func iabs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// span returns the finite min and max of values, or (0, 1) when none.
func span(values ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if lo == hi {
		hi = lo + 1
	}
	return lo, hi
}
