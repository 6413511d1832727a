package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

func TestBuildCombinedURL(t *testing.T) {
	got, err := buildCombinedURL("wss://stream.binance.com:9443", []string{"BTCUSDT", " agldbtc ", "btcusdt", ""})
	if err != nil {
		t.Fatalf("buildCombinedURL: %v", err)
	}
	want := "wss://stream.binance.com:9443/stream?streams=btcusdt@miniTicker/agldbtc@miniTicker"
	if got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}

	if _, err := buildCombinedURL("wss://x", nil); err == nil {
		t.Fatal("expected error for empty symbols")
	}
}

func TestDecode(t *testing.T) {
	f := NewTickerFeed("")
	tick, ok := f.decode([]byte(`{"stream":"btcusdt@miniTicker","data":{"E":1700000000000,"s":"BTCUSDT","c":"42000.10"}}`))
	if !ok || tick.Symbol != "BTCUSDT" || tick.Ts != 1700000000000 || !tick.Price.Equal(decimal.RequireFromString("42000.1")) {
		t.Fatalf("unexpected tick: %+v %v", tick, ok)
	}
	if _, ok := f.decode([]byte(`{"data":{"s":"BTCUSDT","c":"abc"}}`)); ok {
		t.Fatal("bad price accepted")
	}
	if _, ok := f.decode([]byte(`not json`)); ok {
		t.Fatal("bad json accepted")
	}
}

func TestTickerFeedStreams(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "btcusdt@miniTicker") {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"data":{"E":1,"s":"BTCUSDT","c":"100.5"}}`))
		// keep the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := NewTickerFeed("ws" + strings.TrimPrefix(srv.URL, "http"))
	connected := make(chan bool, 4)
	f.OnConnState(func(c bool) { connected <- c })

	ch, err := f.Subscribe(ctx, []string{"BTCUSDT"})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case tick := <-ch:
		if tick.Symbol != "BTCUSDT" || tick.Exchange != ExchangeName {
			t.Fatalf("unexpected tick %+v", tick)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no tick received")
	}
	if c := <-connected; !c {
		t.Fatal("expected connected callback")
	}

	cancel()
	for range ch {
	}
}
