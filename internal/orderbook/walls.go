package orderbook

import (
	"sort"

	"market-pulse/internal/domain"
)

const DefaultWallMultiple = 5.0

type Detector struct {
	multiple float64
}

func NewDetector(multiple float64) *Detector {
	if multiple <= 0 {
		multiple = DefaultWallMultiple
	}
	return &Detector{multiple: multiple}
}

func (d *Detector) Detect(depth domain.Depth) domain.OrderBookWalls {
	return Detect(depth, d.multiple)
}

// Detect reports, per side, the level nearest the best price whose quantity
// exceeds multiple times the mean quantity of the remaining levels on that
// side. The input is not modified.
func Detect(depth domain.Depth, multiple float64) domain.OrderBookWalls {
	bids := sortedLevels(depth.Bids, func(a, b float64) bool { return a > b })
	asks := sortedLevels(depth.Asks, func(a, b float64) bool { return a < b })
	return domain.OrderBookWalls{
		BuyWall:  nearestWall(bids, multiple),
		SellWall: nearestWall(asks, multiple),
	}
}

func sortedLevels(in []domain.PriceLevel, better func(a, b float64) bool) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(in))
	for _, lvl := range in {
		if lvl.Price <= 0 || lvl.Quantity < 0 {
			continue
		}
		out = append(out, lvl)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return better(out[i].Price, out[j].Price)
	})
	return out
}

func nearestWall(levels []domain.PriceLevel, multiple float64) domain.Reading {
	if len(levels) < 2 {
		return domain.Reading{}
	}
	var total float64
	for _, lvl := range levels {
		total += lvl.Quantity
	}
	others := float64(len(levels) - 1)
	for _, lvl := range levels {
		rest := (total - lvl.Quantity) / others
		if rest <= 0 {
			continue
		}
		if lvl.Quantity > multiple*rest {
			return domain.Some(lvl.Price)
		}
	}
	return domain.Reading{}
}
