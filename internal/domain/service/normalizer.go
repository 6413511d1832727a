package service

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

// ExchangeOrderID builds the stable identity of an exchange order. Binance
// order ids are only unique per symbol, so the symbol is part of the key.
func ExchangeOrderID(symbol string, orderID int64) string {
	return model.NormalizeAsset(symbol) + ":" + strconv.FormatInt(orderID, 10)
}

// NewManualOrderID 生成手动订单 ID
func NewManualOrderID() string {
	return uuid.NewString()
}

// Normalize converts raw exchange orders and manual inputs into Orders.
// Malformed entries are dropped and reported; they never abort the batch.
// toggles holds persisted Included flags keyed by order id.
// The result is sorted by (timestamp, id) and holds at most one order per id.
func Normalize(raw []model.RawOrder, manual []model.ManualOrderInput, toggles map[string]bool) ([]model.Order, []error) {
	var (
		errs []error
		byID = make(map[string]model.Order, len(raw)+len(manual))
	)

	for _, r := range raw {
		o, ok, err := normalizeExchange(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		applyToggle(&o, toggles)
		byID[o.ID] = o
	}

	for _, m := range manual {
		o, err := NormalizeManual(m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		applyToggle(&o, toggles)
		byID[o.ID] = o
	}

	out := make([]model.Order, 0, len(byID))
	for _, o := range byID {
		out = append(out, o)
	}
	SortOrders(out)
	return out, errs
}

// normalizeExchange 未成交的订单返回 ok=false
func normalizeExchange(r model.RawOrder) (model.Order, bool, error) {
	id := ExchangeOrderID(r.Symbol, r.OrderID)

	status := strings.ToUpper(strings.TrimSpace(r.Status))
	side, ok := model.ParseSide(r.Side)
	if !ok {
		return model.Order{}, false, &model.MalformedOrderError{OrderID: id, Field: "side", Value: r.Side}
	}

	qty, err := parseNonNegative(id, "executedQty", r.ExecutedQty)
	if err != nil {
		return model.Order{}, false, err
	}
	if !executed(status, qty) {
		return model.Order{}, false, nil
	}

	price, err := executionPrice(id, r, qty)
	if err != nil {
		return model.Order{}, false, err
	}

	asset, quote := r.BaseAsset, r.QuoteAsset
	if asset == "" || quote == "" {
		return model.Order{}, false, &model.MalformedOrderError{
			OrderID: id, Field: "symbol", Value: r.Symbol, Reason: "unknown market",
		}
	}

	return model.Order{
		ID:            id,
		Asset:         model.NormalizeAsset(asset),
		QuoteCurrency: model.NormalizeAsset(quote),
		Side:          side,
		Quantity:      qty,
		Price:         price,
		Timestamp:     time.UnixMilli(r.Time).UTC(),
		Source:        model.SourceExchange,
		Included:      true,
	}, true, nil
}

func executed(status string, qty decimal.Decimal) bool {
	switch status {
	case model.StatusFilled:
		return true
	case model.StatusPartiallyFilled, model.StatusCanceled, model.StatusExpired:
		return qty.IsPositive()
	default:
		return false
	}
}

// executionPrice 优先使用成交均价 (成交额 / 数量)，其次是限价（市价单为 0）
func executionPrice(id string, r model.RawOrder, qty decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(r.CummulativeQuoteQty) != "" && qty.IsPositive() {
		quoteQty, err := parseNonNegative(id, "cummulativeQuoteQty", r.CummulativeQuoteQty)
		if err != nil {
			return decimal.Zero, err
		}
		if quoteQty.IsPositive() {
			return quoteQty.Div(qty), nil
		}
	}
	return parseNonNegative(id, "price", r.Price)
}

// NormalizeManual 校验手动订单，缺少 ID 时生成
func NormalizeManual(m model.ManualOrderInput) (model.Order, error) {
	id := strings.TrimSpace(m.ID)
	if id == "" {
		id = NewManualOrderID()
	}

	side, ok := model.ParseSide(m.Side)
	if !ok {
		return model.Order{}, &model.MalformedOrderError{OrderID: id, Field: "side", Value: m.Side}
	}
	qty, err := parseNonNegative(id, "quantity", m.Quantity)
	if err != nil {
		return model.Order{}, err
	}
	price, err := parseNonNegative(id, "price", m.Price)
	if err != nil {
		return model.Order{}, err
	}

	asset, quote := model.NormalizeAsset(m.Asset), model.NormalizeAsset(m.Quote)
	if asset == "" {
		return model.Order{}, &model.MalformedOrderError{OrderID: id, Field: "asset", Value: m.Asset}
	}
	if quote == "" {
		return model.Order{}, &model.MalformedOrderError{OrderID: id, Field: "quote", Value: m.Quote}
	}

	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return model.Order{
		ID:            id,
		Asset:         asset,
		QuoteCurrency: quote,
		Side:          side,
		Quantity:      qty,
		Price:         price,
		Timestamp:     ts.UTC(),
		Source:        model.SourceManual,
		Included:      true,
	}, nil
}

func parseNonNegative(id, field, value string) (decimal.Decimal, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return decimal.Zero, &model.MalformedOrderError{OrderID: id, Field: field, Value: value, Reason: "missing"}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &model.MalformedOrderError{OrderID: id, Field: field, Value: value, Reason: "not a number"}
	}
	if d.IsNegative() {
		return decimal.Zero, &model.MalformedOrderError{OrderID: id, Field: field, Value: value, Reason: "negative"}
	}
	return d, nil
}

func applyToggle(o *model.Order, toggles map[string]bool) {
	if included, ok := toggles[o.ID]; ok {
		o.Included = included
	}
}

// MergeOrders folds incoming orders into existing ones by id. Exchange orders
// are append-only: an id already present keeps its stored Included flag.
// Manual orders replace the stored copy.
func MergeOrders(existing, incoming []model.Order) (merged []model.Order, added int) {
	byID := make(map[string]model.Order, len(existing)+len(incoming))
	for _, o := range existing {
		byID[o.ID] = o
	}
	for _, o := range incoming {
		prev, ok := byID[o.ID]
		switch {
		case !ok:
			added++
			byID[o.ID] = o
		case o.Source == model.SourceManual:
			byID[o.ID] = o
		default:
			// 已存在的交易所订单
			o.Included = prev.Included
			byID[o.ID] = o
		}
	}

	merged = make([]model.Order, 0, len(byID))
	for _, o := range byID {
		merged = append(merged, o)
	}
	SortOrders(merged)
	return merged, added
}

// SortOrders 按时间升序排序，时间相同按 ID
func SortOrders(orders []model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
}
