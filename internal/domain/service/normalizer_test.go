package service

import (
	"errors"
	"testing"
	"time"

	"cointrack/internal/domain/model"
)

func raw(id int64, side, status, qty, cqq, px string) model.RawOrder {
	return model.RawOrder{
		Symbol:              "BTCUSDT",
		OrderID:             id,
		Side:                side,
		Status:              status,
		Price:               px,
		ExecutedQty:         qty,
		CummulativeQuoteQty: cqq,
		Time:                1700000000000 + id,
		BaseAsset:           "BTC",
		QuoteAsset:          "USDT",
	}
}

func TestNormalizeExchangeOrder(t *testing.T) {
	orders, errs := Normalize([]model.RawOrder{raw(1, "BUY", "FILLED", "2", "300", "0")}, nil, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	o := orders[0]
	if o.ID != "BTCUSDT:1" || o.Side != model.SideBuy || o.Source != model.SourceExchange || !o.Included {
		t.Fatalf("unexpected order: %+v", o)
	}
	wantDec(t, "price", o.Price, "150")
	wantDec(t, "qty", o.Quantity, "2")
	if !o.Timestamp.Equal(time.UnixMilli(1700000000001)) {
		t.Fatalf("timestamp = %v", o.Timestamp)
	}
}

func TestNormalizeSameOrderTwice(t *testing.T) {
	r := raw(7, "SELL", "FILLED", "1", "", "99")
	orders, errs := Normalize([]model.RawOrder{r, r}, nil, nil)
	if len(errs) != 0 || len(orders) != 1 {
		t.Fatalf("got %d orders, %d errors", len(orders), len(errs))
	}
	wantDec(t, "price", orders[0].Price, "99")
}

func TestNormalizeSkipsUnexecuted(t *testing.T) {
	in := []model.RawOrder{
		raw(1, "BUY", "NEW", "0", "0", "10"),
		raw(2, "BUY", "CANCELED", "0", "0", "10"),
		raw(3, "BUY", "CANCELED", "0.5", "5", "10"),
		raw(4, "BUY", "PARTIALLY_FILLED", "0.1", "1", "10"),
	}
	orders, errs := Normalize(in, nil, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(orders) != 2 || orders[0].ID != "BTCUSDT:3" || orders[1].ID != "BTCUSDT:4" {
		t.Fatalf("unexpected orders: %+v", orders)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	in := []model.RawOrder{
		raw(1, "BUY", "FILLED", "abc", "", "10"),
		raw(2, "HOLD", "FILLED", "1", "", "10"),
		raw(3, "BUY", "FILLED", "1", "", ""),
		raw(4, "BUY", "FILLED", "1", "", "10"),
	}
	manual := []model.ManualOrderInput{{ID: "m1", Asset: "BTC", Quote: "USDT", Side: "BUY", Quantity: "-1", Price: "5"}}

	orders, errs := Normalize(in, manual, nil)
	if len(orders) != 1 || orders[0].ID != "BTCUSDT:4" {
		t.Fatalf("unexpected orders: %+v", orders)
	}
	if len(errs) != 4 {
		t.Fatalf("errors = %d, want 4: %v", len(errs), errs)
	}
	for _, err := range errs {
		var me *model.MalformedOrderError
		if !errors.As(err, &me) {
			t.Fatalf("error %v is not MalformedOrderError", err)
		}
	}
}

func TestNormalizeManualAndToggles(t *testing.T) {
	manual := []model.ManualOrderInput{
		{Asset: "agld", Quote: "btc", Side: "buy", Quantity: "10", Price: "0.00001", Timestamp: t0},
		{ID: "keep", Asset: "AGLD", Quote: "BTC", Side: "SELL", Quantity: "1", Price: "0.00002", Timestamp: t0.Add(time.Hour)},
	}
	toggles := map[string]bool{"keep": false, "BTCUSDT:1": false}
	orders, errs := Normalize([]model.RawOrder{raw(1, "BUY", "FILLED", "1", "", "1")}, manual, toggles)
	if len(errs) != 0 || len(orders) != 3 {
		t.Fatalf("got %d orders, %v", len(orders), errs)
	}
	for _, o := range orders {
		switch o.ID {
		case "keep", "BTCUSDT:1":
			if o.Included {
				t.Fatalf("%s should be excluded", o.ID)
			}
		default:
			if o.ID == "" || o.Asset != "AGLD" || o.QuoteCurrency != "BTC" || !o.Included {
				t.Fatalf("unexpected manual order: %+v", o)
			}
		}
	}
}

func TestMergeOrdersKeepsToggle(t *testing.T) {
	existing := []model.Order{ord("BTCUSDT:1", model.SideBuy, "1", "100", 1)}
	existing[0].Source = model.SourceExchange
	existing[0].Included = false

	incoming := []model.Order{
		ord("BTCUSDT:1", model.SideBuy, "1", "100", 1),
		ord("BTCUSDT:2", model.SideBuy, "1", "110", 2),
	}
	incoming[0].Source = model.SourceExchange
	incoming[1].Source = model.SourceExchange

	merged, added := MergeOrders(existing, incoming)
	if added != 1 || len(merged) != 2 {
		t.Fatalf("added=%d merged=%d", added, len(merged))
	}
	if merged[0].Included {
		t.Fatal("toggle lost on merge")
	}
}

func TestSortOrdersTieBreak(t *testing.T) {
	orders := []model.Order{
		ord("c", model.SideBuy, "1", "1", 1),
		ord("a", model.SideBuy, "1", "1", 1),
		ord("b", model.SideBuy, "1", "1", 0),
	}
	SortOrders(orders)
	if orders[0].ID != "b" || orders[1].ID != "a" || orders[2].ID != "c" {
		t.Fatalf("unexpected order: %s %s %s", orders[0].ID, orders[1].ID, orders[2].ID)
	}
}
