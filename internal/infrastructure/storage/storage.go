package storage

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cointrack/internal/application/port"
	"cointrack/internal/domain/model"
)

// MemoryStore 内存存储，未配置数据库时使用，重启后丢失
type MemoryStore struct {
	mu           sync.Mutex
	mappings     []model.SymbolMapping
	alerts       []model.PriceAlert
	manualOrders []model.Order
	inclusion    map[string]bool
	manualPrices map[string]decimal.Decimal
	snapshots    []Snapshot
}

// Snapshot is one stored portfolio snapshot.
type Snapshot struct {
	Timestamp time.Time
	Payload   string
}

var (
	_ port.Store              = (*MemoryStore)(nil)
	_ port.SnapshotRepository = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		inclusion:    make(map[string]bool),
		manualPrices: make(map[string]decimal.Decimal),
	}
}

func (s *MemoryStore) LoadMappings(ctx context.Context) ([]model.SymbolMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SymbolMapping(nil), s.mappings...), nil
}

func (s *MemoryStore) SaveMappings(ctx context.Context, mappings []model.SymbolMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = append([]model.SymbolMapping(nil), mappings...)
	return nil
}

func (s *MemoryStore) LoadAlerts(ctx context.Context) ([]model.PriceAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.PriceAlert(nil), s.alerts...), nil
}

func (s *MemoryStore) SaveAlerts(ctx context.Context, alerts []model.PriceAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append([]model.PriceAlert(nil), alerts...)
	return nil
}

func (s *MemoryStore) LoadManualOrders(ctx context.Context) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Order(nil), s.manualOrders...), nil
}

func (s *MemoryStore) SaveManualOrders(ctx context.Context, orders []model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manualOrders = append([]model.Order(nil), orders...)
	return nil
}

func (s *MemoryStore) LoadInclusion(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.inclusion))
	for k, v := range s.inclusion {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) SaveInclusion(ctx context.Context, toggles map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inclusion = make(map[string]bool, len(toggles))
	for k, v := range toggles {
		s.inclusion[k] = v
	}
	return nil
}

func (s *MemoryStore) LoadManualPrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(s.manualPrices))
	for k, v := range s.manualPrices {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) SaveManualPrices(ctx context.Context, prices map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manualPrices = make(map[string]decimal.Decimal, len(prices))
	for k, v := range prices {
		s.manualPrices[k] = v
	}
	return nil
}

func (s *MemoryStore) InsertSnapshot(ctx context.Context, ts time.Time, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, Snapshot{Timestamp: ts, Payload: payload})
	return nil
}

// Snapshots 按写入顺序返回快照
func (s *MemoryStore) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.snapshots...)
}

func (s *MemoryStore) Close() error { return nil }

// NoopPriceCache 丢弃所有价格，存储都未启用时使用
type NoopPriceCache struct{}

func (NoopPriceCache) UpsertLatestPrice(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error {
	return nil
}

var _ port.PriceCache = NoopPriceCache{}
