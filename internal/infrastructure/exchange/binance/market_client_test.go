package binance

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

func TestFetchMarkets(t *testing.T) {
	clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/exchangeInfo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"symbols":[
			{"symbol":"AGLDBTC","status":"TRADING","baseAsset":"AGLD","quoteAsset":"BTC"},
			{"symbol":"AGLDUSDT","status":"BREAK","baseAsset":"AGLD","quoteAsset":"USDT"},
			{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"}]}`))
	}, "")

	pairs, err := clients.Account.FetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("FetchMarkets: %v", err)
	}
	ms := model.NewMarketSet(pairs...)
	if ms.Len() != 2 || !ms.Has("AGLD", "BTC") || ms.Has("AGLD", "USDT") {
		t.Fatalf("unexpected markets: %v", ms.Pairs())
	}
}

func TestPollPrice(t *testing.T) {
	clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			t.Errorf("symbol = %s", r.URL.Query().Get("symbol"))
		}
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"43210.12000000"}`))
	}, "")

	px, err := clients.Market.PollPrice(context.Background(), "btcusdt")
	if err != nil {
		t.Fatalf("PollPrice: %v", err)
	}
	if !px.Equal(decimal.RequireFromString("43210.12")) {
		t.Fatalf("price = %s", px)
	}
}
