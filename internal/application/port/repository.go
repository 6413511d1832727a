package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

// Store persists user state across sessions. Implementations wrap their
// failures so callers can match *model.PersistenceUnavailableError.
type Store interface {
	LoadMappings(ctx context.Context) ([]model.SymbolMapping, error)
	SaveMappings(ctx context.Context, mappings []model.SymbolMapping) error

	LoadAlerts(ctx context.Context) ([]model.PriceAlert, error)
	SaveAlerts(ctx context.Context, alerts []model.PriceAlert) error

	LoadManualOrders(ctx context.Context) ([]model.Order, error)
	SaveManualOrders(ctx context.Context, orders []model.Order) error

	LoadInclusion(ctx context.Context) (map[string]bool, error)
	SaveInclusion(ctx context.Context, toggles map[string]bool) error

	// 手动价格以 symbol (BASE+QUOTE) 为 key
	LoadManualPrices(ctx context.Context) (map[string]decimal.Decimal, error)
	SaveManualPrices(ctx context.Context, prices map[string]decimal.Decimal) error

	Close() error
}

// SnapshotRepository 定期保存组合快照
type SnapshotRepository interface {
	InsertSnapshot(ctx context.Context, ts time.Time, payload string) error
	Close() error
}

// PriceCache publishes the latest price per symbol for other processes.
type PriceCache interface {
	UpsertLatestPrice(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error
}

// AlertSink 接收所有触发的告警
type AlertSink interface {
	PublishAlert(ctx context.Context, alert model.TriggeredAlert) error
}
