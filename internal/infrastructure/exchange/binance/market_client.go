package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

// MarketClient Binance 现货公共行情 REST 客户端
type MarketClient struct {
	*APIClient
}

func NewMarketClient(client *APIClient) *MarketClient {
	return &MarketClient{APIClient: client}
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// FetchMarkets 获取所有处于交易状态的现货交易对
func (c *MarketClient) FetchMarkets(ctx context.Context) ([]model.Pair, error) {
	body, err := c.publicRequest(ctx, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}

	var resp exchangeInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode exchangeInfo failed: %w", err)
	}

	pairs := make([]model.Pair, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		pairs = append(pairs, model.NewPair(s.BaseAsset, s.QuoteAsset))
	}
	return pairs, nil
}

// PollPrice 获取现货 ticker 价格
func (c *MarketClient) PollPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	body, err := c.publicRequest(ctx, "/api/v3/ticker/price", url.Values{"symbol": {symbol}})
	if err != nil {
		return decimal.Zero, fmt.Errorf("get ticker %s failed: %w", symbol, err)
	}

	var data tickerPriceResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return decimal.Zero, fmt.Errorf("decode ticker failed: %w", err)
	}

	price, err := decimal.NewFromString(data.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse ticker price failed: %w", err)
	}
	return price, nil
}
