package service

import (
	"errors"
	"testing"

	"cointrack/internal/domain/model"
)

func TestResolve(t *testing.T) {
	markets := model.NewMarketSet(
		model.NewPair("AGLD", "BTC"),
		model.NewPair("AGLD", "USDC"),
		model.NewPair("ETH", "USDT"),
		model.NewPair("ETH", "BTC"),
		model.NewPair("SOL", "BUSD"),
	)
	mappings := []model.SymbolMapping{{Asset: "AGLD", PreferredQuote: "USDC", ActualQuote: "BTC"}}
	r := NewSymbolResolver(nil)

	tests := []struct {
		name      string
		asset     string
		preferred string
		mappings  []model.SymbolMapping
		want      model.Pair
	}{
		{"mapping wins over listed preferred", "AGLD", "USDC", mappings, model.NewPair("AGLD", "BTC")},
		{"preferred quote", "eth", "btc", nil, model.NewPair("ETH", "BTC")},
		{"fallback order", "ETH", "EUR", nil, model.NewPair("ETH", "USDT")},
		{"fallback skips missing", "SOL", "", nil, model.NewPair("SOL", "BUSD")},
		{"mapping for other quote ignored", "AGLD", "USDT", mappings, model.NewPair("AGLD", "USDC")},
		{"mapping not in markets", "XYZ", "USDT", []model.SymbolMapping{{Asset: "XYZ", ActualQuote: "ETH"}}, model.NewPair("XYZ", "ETH")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.asset, tt.preferred, markets, tt.mappings)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveExactMappingBeatsWildcard(t *testing.T) {
	mappings := []model.SymbolMapping{
		{Asset: "AGLD", ActualQuote: "ETH"},
		{Asset: "AGLD", PreferredQuote: "USDT", ActualQuote: "BTC"},
	}
	got, err := NewSymbolResolver(nil).Resolve("AGLD", "USDT", model.NewMarketSet(), mappings)
	if err != nil || got != model.NewPair("AGLD", "BTC") {
		t.Fatalf("got %s, %v", got, err)
	}
}

func TestResolveSkipsSelfQuote(t *testing.T) {
	markets := model.NewMarketSet(model.NewPair("BTC", "USDT"))
	got, err := NewSymbolResolver([]string{"btc", "usdt"}).Resolve("BTC", "", markets, nil)
	if err != nil || got != model.NewPair("BTC", "USDT") {
		t.Fatalf("got %s, %v", got, err)
	}
}

func TestResolveNoMarket(t *testing.T) {
	_, err := NewSymbolResolver(nil).Resolve("NOPE", "USDT", model.NewMarketSet(), nil)
	var nm *model.NoMarketFoundError
	if !errors.As(err, &nm) || nm.Asset != "NOPE" {
		t.Fatalf("expected NoMarketFoundError, got %v", err)
	}
}
