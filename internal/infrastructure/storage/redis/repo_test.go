package redis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
	"cointrack/internal/infrastructure/exchange"
)

func TestNewDefaults(t *testing.T) {
	r := New(nil, nil, "", 0, "", "")
	if r.keyLatest != "cointrack:latest" || r.alertStream != "cointrack:alerts" || r.alertChan != "cointrack:alerts:pub" {
		t.Fatalf("unexpected keys: %s %s %s", r.keyLatest, r.alertStream, r.alertChan)
	}
}

func TestLatestPriceSplitsSymbol(t *testing.T) {
	r := New(nil, exchange.NewCommonSymbolConverter("USDT", "BTC"), "ct", 0, "", "")
	lp := r.latestPrice("AGLDBTC", decimal.RequireFromString("0.00001"), time.UnixMilli(5))
	if lp.Base != "AGLD" || lp.Quote != "BTC" || lp.Ts != 5 {
		t.Fatalf("unexpected latest price: %+v", lp)
	}
}

func TestAlertValues(t *testing.T) {
	v := alertValues(model.TriggeredAlert{
		AlertID:   "a1",
		Asset:     "BTC",
		Direction: model.DirectionAbove,
		Threshold: decimal.RequireFromString("50000"),
		Price:     decimal.RequireFromString("50010.5"),
		Timestamp: time.UnixMilli(1700000000000),
	})
	if v["price"] != "50010.5" || v["direction"] != "ABOVE" || v["ts_ms"] != int64(1700000000000) {
		t.Fatalf("unexpected values: %v", v)
	}
}
