package port

import (
	"context"

	"cointrack/internal/domain/model"
)

// ExchangeClient 交易所账户与行情接口
type ExchangeClient interface {
	Name() string
	FetchBalances(ctx context.Context) ([]model.Balance, error)
	// FetchOrders 返回单个交易对的全部订单，最新的在最后
	FetchOrders(ctx context.Context, pair model.Pair) ([]model.RawOrder, error)
	FetchMarkets(ctx context.Context) ([]model.Pair, error)
	// FetchFeeRates 账户现货手续费率
	FetchFeeRates(ctx context.Context) (model.FeeModel, error)
}
