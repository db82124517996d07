package orderbook

import (
	"testing"

	"market-pulse/internal/domain"
)

func TestDetectBuyWallScenario(t *testing.T) {
	depth := domain.Depth{
		Bids: []domain.PriceLevel{{Price: 100, Quantity: 1}, {Price: 99, Quantity: 1}, {Price: 98, Quantity: 50}},
		Asks: []domain.PriceLevel{{Price: 101, Quantity: 1}, {Price: 102, Quantity: 1}},
	}
	walls := NewDetector(0).Detect(depth)
	if !walls.BuyWall.Valid || walls.BuyWall.Value != 98 {
		t.Fatalf("expected buy wall at 98, got %+v", walls.BuyWall)
	}
	if walls.SellWall.Valid {
		t.Fatalf("expected no sell wall, got %+v", walls.SellWall)
	}
}

func TestDetectPicksNearestQualifyingLevel(t *testing.T) {
	depth := domain.Depth{
		Asks: []domain.PriceLevel{
			{Price: 105, Quantity: 80},
			{Price: 101, Quantity: 1},
			{Price: 103, Quantity: 90},
			{Price: 102, Quantity: 1},
			{Price: 104, Quantity: 1},
			{Price: 106, Quantity: 1},
			{Price: 107, Quantity: 1},
			{Price: 108, Quantity: 1},
			{Price: 109, Quantity: 1},
			{Price: 110, Quantity: 1},
		},
	}
	walls := Detect(depth, DefaultWallMultiple)
	if !walls.SellWall.Valid || walls.SellWall.Value != 103 {
		t.Fatalf("expected sell wall at 103, got %+v", walls.SellWall)
	}
	if depth.Asks[0].Price != 105 {
		t.Fatal("input depth must not be reordered")
	}
}

func TestDetectIsIdempotent(t *testing.T) {
	depth := domain.Depth{
		Bids: []domain.PriceLevel{{Price: 10, Quantity: 2}, {Price: 9, Quantity: 40}, {Price: 8, Quantity: 1}},
		Asks: []domain.PriceLevel{{Price: 11, Quantity: 1}, {Price: 12, Quantity: 30}, {Price: 13, Quantity: 1}},
	}
	first := Detect(depth, DefaultWallMultiple)
	second := Detect(depth, DefaultWallMultiple)
	if first != second {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestDetectEmptyAndUniformDepth(t *testing.T) {
	if walls := Detect(domain.Depth{}, DefaultWallMultiple); walls.BuyWall.Valid || walls.SellWall.Valid {
		t.Fatalf("expected no walls on empty depth, got %+v", walls)
	}
	uniform := domain.Depth{
		Bids: []domain.PriceLevel{{Price: 3, Quantity: 5}, {Price: 2, Quantity: 5}, {Price: 1, Quantity: 5}},
	}
	if walls := Detect(uniform, DefaultWallMultiple); walls.BuyWall.Valid {
		t.Fatalf("expected no wall on uniform depth, got %+v", walls)
	}
}

func TestDetectWallWithinDepthRange(t *testing.T) {
	depth := domain.Depth{
		Bids: []domain.PriceLevel{{Price: 50, Quantity: 1}, {Price: 49, Quantity: 100}, {Price: 48, Quantity: 1}},
	}
	walls := Detect(depth, DefaultWallMultiple)
	if !walls.BuyWall.Valid || walls.BuyWall.Value < 48 || walls.BuyWall.Value > 50 {
		t.Fatalf("wall outside depth range: %+v", walls.BuyWall)
	}
}
