package composite

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cointrack/internal/application/port"
	"cointrack/internal/domain/model"
)

// Repo 将快照写入所有已配置的后端
type Repo struct {
	repos []port.SnapshotRepository
}

var _ port.SnapshotRepository = (*Repo)(nil)

func New(repos ...port.SnapshotRepository) *Repo {
	// 允许传入 nil，在构造时过滤
	out := make([]port.SnapshotRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) Len() int { return len(r.repos) }

// InsertSnapshot 写入所有后端，返回第一个错误
func (r *Repo) InsertSnapshot(ctx context.Context, ts time.Time, payload string) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.InsertSnapshot(ctx, ts, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close 空操作，后端由创建方关闭
func (r *Repo) Close() error { return nil }

// AlertSinks 告警广播到所有 sink
type AlertSinks []port.AlertSink

var _ port.AlertSink = AlertSinks(nil)

func (s AlertSinks) PublishAlert(ctx context.Context, a model.TriggeredAlert) error {
	var firstErr error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.PublishAlert(ctx, a); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PriceCaches 最新价格写入所有缓存
type PriceCaches []port.PriceCache

var _ port.PriceCache = PriceCaches(nil)

func (c PriceCaches) UpsertLatestPrice(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error {
	var firstErr error
	for _, cache := range c {
		if cache == nil {
			continue
		}
		if err := cache.UpsertLatestPrice(ctx, symbol, price, ts); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
