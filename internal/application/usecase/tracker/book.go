package tracker

import (
	"sync"

	"cointrack/internal/domain/model"
	"cointrack/internal/domain/service"
)

// orderBook 单个币种的订单历史，读取时返回副本
type orderBook struct {
	mu     sync.Mutex
	orders []model.Order
}

func (b *orderBook) snapshot() []model.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Order(nil), b.orders...)
}

func (b *orderBook) merge(incoming []model.Order) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	merged, added := service.MergeOrders(b.orders, incoming)
	b.orders = merged
	return added
}

func (b *orderBook) find(id string) (model.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.orders {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

func (b *orderBook) remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, o := range b.orders {
		if o.ID == id {
			b.orders = append(b.orders[:i:i], b.orders[i+1:]...)
			return true
		}
	}
	return false
}

func (b *orderBook) setIncluded(id string, included bool) (model.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.orders {
		if b.orders[i].ID == id {
			b.orders[i].Included = included
			return b.orders[i], true
		}
	}
	return model.Order{}, false
}

func (b *orderBook) manual() []model.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Order
	for _, o := range b.orders {
		if o.Source == model.SourceManual {
			out = append(out, o)
		}
	}
	return out
}

func (b *orderBook) quotes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, o := range b.orders {
		if _, ok := seen[o.QuoteCurrency]; ok {
			continue
		}
		seen[o.QuoteCurrency] = struct{}{}
		out = append(out, o.QuoteCurrency)
	}
	return out
}
