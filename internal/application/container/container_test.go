package container

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
	"cointrack/internal/infrastructure/pricefeed"
	"cointrack/internal/infrastructure/storage"
)

func TestContainerServiceWorkflow(t *testing.T) {
	store := storage.NewMemoryStore()
	prices := pricefeed.NewAdapter(nil, nil, pricefeed.Config{})
	var watched []string

	c := New(Deps{Store: store, Prices: prices}, Options{
		Assets:            []string{"btc"},
		ReportingCurrency: "USDT",
		BuyFeeRate:        decimal.RequireFromString("0.001"),
		Watch:             func(s []string) { watched = s },
	})
	defer c.Close()

	tr := c.Tracker()
	if tr != c.Tracker() {
		t.Fatal("Tracker should be built once")
	}
	ctx := context.Background()
	if err := tr.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := tr.AddManualOrder(ctx, model.ManualOrderInput{
		Asset: "BTC", Quote: "USDT", Side: "BUY", Quantity: "1", Price: "100",
	}); err != nil {
		t.Fatalf("AddManualOrder: %v", err)
	}
	if err := tr.SetManualPrice(ctx, "BTC", "USDT", decimal.NewFromInt(120)); err != nil {
		t.Fatalf("SetManualPrice: %v", err)
	}

	orders, _ := store.LoadManualOrders(ctx)
	if len(orders) != 1 {
		t.Fatalf("stored manual orders = %d", len(orders))
	}

	v, err := tr.Valuate("BTC")
	if err != nil {
		t.Fatalf("Valuate: %v", err)
	}
	if !v.Position.UnrealizedPnL.Decimal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unrealized = %s, want 20", v.Position.UnrealizedPnL.Decimal)
	}
	if !v.Position.BreakEvenPrice.Decimal.GreaterThan(decimal.NewFromInt(100)) {
		t.Fatalf("break-even %s ignores the buy fee", v.Position.BreakEvenPrice.Decimal)
	}
	if v.Price.Origin != model.OriginManual {
		t.Fatalf("origin = %s", v.Price.Origin)
	}
	if watched == nil {
		t.Fatal("watch callback never called")
	}

	if c.Monitor(prices.Updates()) == nil {
		t.Fatal("Monitor returned nil")
	}
}
