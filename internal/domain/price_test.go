package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPriceStateUpdate(t *testing.T) {
	var ps PriceState
	steps := []struct {
		price   string
		changed bool
		dir     Direction
	}{
		{"100", true, DirectionSame},
		{"101.5", true, DirectionUp},
		{"101.50", false, DirectionSame},
		{"99", true, DirectionDown},
	}
	for i, s := range steps {
		got := ps.Update(decimal.RequireFromString(s.price))
		if got != s.changed {
			t.Fatalf("step %d: changed=%v want %v", i, got, s.changed)
		}
		if ps.Direction != s.dir {
			t.Fatalf("step %d: direction=%d want %d", i, ps.Direction, s.dir)
		}
	}
}
