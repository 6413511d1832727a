package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"cointrack/internal/application/port"
	"cointrack/internal/domain/model"
	"cointrack/internal/infrastructure/exchange"
)

// Repo 发布最新价格、告警和最新快照，client 由调用方管理
type Repo struct {
	rdb         *redis.Client
	conv        exchange.SymbolConverter
	prefix      string
	ttl         time.Duration
	keyLatest   string // prefix + ":latest"
	keySnapshot string // prefix + ":snapshot"
	alertStream string
	alertChan   string
}

type LatestPrice struct {
	Symbol string          `json:"symbol"`
	Base   string          `json:"base,omitempty"`
	Quote  string          `json:"quote,omitempty"`
	Price  decimal.Decimal `json:"price"`
	Ts     int64           `json:"ts"`
}

var (
	_ port.PriceCache         = (*Repo)(nil)
	_ port.AlertSink          = (*Repo)(nil)
	_ port.SnapshotRepository = (*Repo)(nil)
)

func New(rdb *redis.Client, conv exchange.SymbolConverter, prefix string, ttl time.Duration, alertStream, alertChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "cointrack"
	}
	if strings.TrimSpace(alertStream) == "" {
		alertStream = prefix + ":alerts"
	}
	if strings.TrimSpace(alertChan) == "" {
		alertChan = prefix + ":alerts:pub"
	}
	return &Repo{
		rdb:         rdb,
		conv:        conv,
		prefix:      prefix,
		ttl:         ttl,
		keyLatest:   prefix + ":latest",
		keySnapshot: prefix + ":snapshot",
		alertStream: alertStream,
		alertChan:   alertChan,
	}
}

func (r *Repo) latestPrice(symbol string, price decimal.Decimal, ts time.Time) LatestPrice {
	lp := LatestPrice{Symbol: symbol, Price: price, Ts: ts.UnixMilli()}
	if r.conv != nil {
		if p, ok := r.conv.Symbol2Pair(symbol); ok {
			lp.Base, lp.Quote = p.Base, p.Quote
		}
	}
	return lp
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error {
	if !price.IsPositive() {
		return nil
	}
	b, err := json.Marshal(r.latestPrice(symbol, price, ts))
	if err != nil {
		return err
	}

	// Hash: field = "BTCUSDT" -> json
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, symbol, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts time.Time, payload string) error {
	return r.rdb.Set(ctx, r.keySnapshot, payload, r.ttl).Err()
}

func alertValues(a model.TriggeredAlert) map[string]any {
	return map[string]any{
		"ts_ms":     a.Timestamp.UnixMilli(),
		"alert_id":  a.AlertID,
		"asset":     a.Asset,
		"direction": string(a.Direction),
		"threshold": a.Threshold.String(),
		"price":     a.Price.String(),
	}
}

func (r *Repo) PublishAlert(ctx context.Context, a model.TriggeredAlert) error {
	// 1) Stream: XADD <stream> * ts asset direction threshold price
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.alertStream,
		Values: alertValues(a),
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	msg, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.alertChan, string(msg)).Err()
}

func (r *Repo) Close() error { return nil }
