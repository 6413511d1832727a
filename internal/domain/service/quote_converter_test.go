package service

import (
	"testing"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

func staticRates(m map[string]string) RateFunc {
	return func(base, quote string) (decimal.Decimal, bool) {
		s, ok := m[base+quote]
		if !ok {
			return decimal.Zero, false
		}
		return d(s), true
	}
}

func TestConversionRate(t *testing.T) {
	rates := staticRates(map[string]string{"BTCUSDT": "50000", "USDCUSDT": "1"})

	if r, ok := ConversionRate("usdt", "USDT", rates); !ok || !r.Equal(d("1")) {
		t.Fatalf("identity: %s %v", r, ok)
	}
	if r, ok := ConversionRate("BTC", "USDT", rates); !ok || !r.Equal(d("50000")) {
		t.Fatalf("direct: %s %v", r, ok)
	}
	if r, ok := ConversionRate("USDT", "BTC", rates); !ok || !r.Equal(d("0.00002")) {
		t.Fatalf("inverse: %s %v", r, ok)
	}
	if _, ok := ConversionRate("ETH", "USDT", rates); ok {
		t.Fatal("expected no rate for ETH")
	}
}

func TestConvertOrders(t *testing.T) {
	usdc := ord("a", model.SideBuy, "10", "2", 1)
	usdc.Asset, usdc.QuoteCurrency = "AGLD", "USDC"
	btc := ord("b", model.SideBuy, "10", "0.00004", 2)
	btc.Asset, btc.QuoteCurrency = "AGLD", "BTC"
	eur := ord("c", model.SideBuy, "1", "1", 3)
	eur.Asset, eur.QuoteCurrency = "AGLD", "EUR"

	rates := staticRates(map[string]string{"BTCUSDC": "50000"})
	converted, unconverted := ConvertOrders([]model.Order{usdc, btc, eur}, "BTC", rates)

	if len(converted) != 2 || len(unconverted) != 1 || unconverted[0].ID != "c" {
		t.Fatalf("converted=%d unconverted=%v", len(converted), unconverted)
	}
	if converted[0].QuoteCurrency != "BTC" || !converted[0].Price.Equal(d("0.00004")) {
		t.Fatalf("unexpected conversion: %+v", converted[0])
	}
	if usdc.QuoteCurrency != "USDC" {
		t.Fatal("input order mutated")
	}
}

func TestConversionPairs(t *testing.T) {
	markets := model.NewMarketSet(model.NewPair("BTC", "USDT"), model.NewPair("USDT", "TRY"))
	got := ConversionPairs([]string{"BTC", "TRY", "USDT", "BTC", "XYZ"}, "USDT", markets)
	if len(got) != 2 || got[0] != model.NewPair("BTC", "USDT") || got[1] != model.NewPair("USDT", "TRY") {
		t.Fatalf("unexpected pairs: %v", got)
	}
}
