package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide 解析订单方向，忽略大小写和空格
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	default:
		return "", false
	}
}

// Source 订单来源
type Source string

const (
	SourceExchange Source = "EXCHANGE"
	SourceManual   Source = "MANUAL"
)

// Order is the normalized representation of a single executed order.
// Exchange orders are immutable apart from Included; manual orders may be
// replaced or deleted by the user.
type Order struct {
	ID            string
	Asset         string
	QuoteCurrency string
	Side          Side
	Quantity      decimal.Decimal
	Price         decimal.Decimal // 单价（计价币）
	Timestamp     time.Time
	Source        Source
	Included      bool
}

// Symbol 交易所格式的交易对，例: AGLDBTC
func (o Order) Symbol() string {
	return Pair{Base: o.Asset, Quote: o.QuoteCurrency}.Symbol()
}

// Notional quantity * price
func (o Order) Notional() decimal.Decimal {
	return o.Quantity.Mul(o.Price)
}

// RawOrder 交易所原始订单（字段保持交易所返回的字符串）
type RawOrder struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	Side                string `json:"side"`
	Status              string `json:"status"`
	Price               string `json:"price"`
	OrigQty             string `json:"origQty"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Time                int64  `json:"time"`
	UpdateTime          int64  `json:"updateTime"`

	// 由交易所客户端根据市场列表解析，不在原始返回中
	BaseAsset  string `json:"-"`
	QuoteAsset string `json:"-"`
}

// ManualOrderInput 用户输入的手动订单，ID 可为空
type ManualOrderInput struct {
	ID        string
	Asset     string
	Quote     string
	Side      string
	Quantity  string
	Price     string
	Timestamp time.Time
}

// 交易所订单状态
const (
	StatusNew             = "NEW"
	StatusPartiallyFilled = "PARTIALLY_FILLED"
	StatusFilled          = "FILLED"
	StatusCanceled        = "CANCELED"
	StatusExpired         = "EXPIRED"
	StatusRejected        = "REJECTED"
)
