package service

import (
	"testing"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

func TestSummarize(t *testing.T) {
	v := &Valuator{}
	btc := v.ComputePosition("BTC", []model.Order{ord("a", model.SideBuy, "1", "100", 1)}, price("150"))

	eth := ord("b", model.SideBuy, "2", "0.5", 1)
	eth.Asset, eth.QuoteCurrency = "ETH", "BTC"
	ethPos := v.ComputePosition("ETH", []model.Order{eth}, price("0.6"))

	xyz := ord("c", model.SideBuy, "5", "1", 1)
	xyz.Asset = "XYZ"
	xyzPos := v.ComputePosition("XYZ", []model.Order{xyz}, model.Null())

	s := Summarize("usdt", []PortfolioItem{
		{Position: btc, Rate: price("1")},
		{Position: ethPos, Rate: price("100")},
		{Position: xyzPos, Rate: price("1")},
	})

	if s.Currency != "USDT" || s.Priced != 2 {
		t.Fatalf("unexpected header: %+v", s)
	}
	wantDec(t, "cost", s.TotalCost, "200")
	wantDec(t, "value", s.TotalValue, "270")
	wantDec(t, "unrealized", s.Unrealized, "70")
	wantNull(t, "pnl%", s.PnLPercent, "35")
	if len(s.Unpriced) != 1 || s.Unpriced[0] != "XYZ" {
		t.Fatalf("unpriced = %v", s.Unpriced)
	}
}

func TestPnLColor(t *testing.T) {
	th := decimal.NewFromInt(1)
	if PnLColor(price("2"), th) != 1 || PnLColor(price("-1"), th) != -1 || PnLColor(price("0.5"), th) != 0 {
		t.Fatal("unexpected color decision")
	}
	if PnLColor(model.Null(), th) != 0 {
		t.Fatal("null pct should be neutral")
	}
}
