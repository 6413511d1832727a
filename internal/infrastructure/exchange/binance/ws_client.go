package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"cointrack/internal/application/port"
)

const (
	readTimeout    = 60 * time.Second
	pingInterval   = 25 * time.Second
	dialTimeout    = 10 * time.Second
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second
)

// TickerFeed 订阅现货 miniTicker 的最新价
type TickerFeed struct {
	wsURL string // e.g. wss://stream.binance.com:9443

	mu     sync.Mutex
	onConn func(connected bool)
}

var _ port.PriceFeed = (*TickerFeed)(nil)

func NewTickerFeed(wsURL string) *TickerFeed {
	wsURL = strings.TrimSpace(wsURL)
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	return &TickerFeed{wsURL: wsURL}
}

func (f *TickerFeed) Name() string { return ExchangeName }

func (f *TickerFeed) OnConnState(fn func(connected bool)) {
	f.mu.Lock()
	f.onConn = fn
	f.mu.Unlock()
}

func (f *TickerFeed) notify(connected bool) {
	f.mu.Lock()
	fn := f.onConn
	f.mu.Unlock()
	if fn != nil {
		fn(connected)
	}
}

type binanceCombined struct {
	Stream string         `json:"stream"`
	Data   binanceMiniMsg `json:"data"`
}
type binanceMiniMsg struct {
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

// Subscribe 订阅 symbol（如 BTCUSDT），ctx 结束时关闭返回的 channel
func (f *TickerFeed) Subscribe(ctx context.Context, symbols []string) (<-chan port.Tick, error) {
	wsURL, err := buildCombinedURL(f.wsURL, symbols)
	if err != nil {
		return nil, err
	}

	out := make(chan port.Tick, 1024)
	go f.run(ctx, wsURL, out)
	return out, nil
}

func buildCombinedURL(base string, symbols []string) (string, error) {
	if base == "" {
		return "", errors.New("binance ws_base empty")
	}
	if len(symbols) == 0 {
		return "", errors.New("symbols empty")
	}

	seen := make(map[string]struct{}, len(symbols))
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		streams = append(streams, fmt.Sprintf("%s@miniTicker", s))
	}
	if len(streams) == 0 {
		return "", errors.New("no valid symbols")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

func (f *TickerFeed) run(ctx context.Context, wsURL string, out chan<- port.Tick) {
	defer close(out)

	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		log.Info().Str("feed", f.Name()).Str("url", wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, dialTimeout)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = initialBackoff
		log.Info().Str("feed", f.Name()).Msg("ws connected")
		f.notify(true)

		err = readLoop(ctx, conn, func(b []byte) {
			t, ok := f.decode(b)
			if !ok {
				return
			}
			select {
			case out <- t:
			case <-ctx.Done():
			}
		})

		_ = conn.Close()
		f.notify(false)

		if ctx.Err() != nil {
			return
		}

		log.Warn().Str("feed", f.Name()).Err(err).Msg("ws disconnected, reconnecting")
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = minDur(backoff*2, maxBackoff)
	}
}

func (f *TickerFeed) decode(b []byte) (port.Tick, bool) {
	var msg binanceCombined
	if e := json.Unmarshal(b, &msg); e != nil {
		log.Error().Str("feed", f.Name()).Err(e).Msg("json unmarshal failed")
		return port.Tick{}, false
	}
	sym := strings.ToUpper(strings.TrimSpace(msg.Data.Symbol))
	pxs := strings.TrimSpace(msg.Data.Close)
	if sym == "" || pxs == "" {
		return port.Tick{}, false
	}
	px, err := decimal.NewFromString(pxs)
	if err != nil || !px.IsPositive() {
		log.Warn().Str("feed", f.Name()).Str("symbol", sym).Str("price", pxs).Msg("bad price")
		return port.Tick{}, false
	}
	ts := msg.Data.EventTime
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	return port.Tick{Exchange: f.Name(), Symbol: sym, Price: px, Ts: ts}, true
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
