package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"cointrack/internal/application/port"
	"cointrack/internal/domain/model"
)

// allOrders page size (Binance maximum)
const ordersPageLimit = 1000

// AccountClient Binance 现货账户查询客户端
type AccountClient struct {
	*APIClient
	market *MarketClient
}

var _ port.ExchangeClient = (*AccountClient)(nil)

// NewAccountClient 创建现货账户客户端
func NewAccountClient(client *APIClient, market *MarketClient) *AccountClient {
	if market == nil {
		market = NewMarketClient(client)
	}
	return &AccountClient{APIClient: client, market: market}
}

func (c *AccountClient) Name() string { return ExchangeName }

// spotAccountResponse 现货账户响应结构
type spotAccountResponse struct {
	CanTrade        bool  `json:"canTrade"`
	UpdateTime      int64 `json:"updateTime"`
	CommissionRates struct {
		Maker  string `json:"maker"`
		Taker  string `json:"taker"`
		Buyer  string `json:"buyer"`
		Seller string `json:"seller"`
	} `json:"commissionRates"`
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

// FetchBalances 获取非零余额
func (c *AccountClient) FetchBalances(ctx context.Context) ([]model.Balance, error) {
	resp, err := c.fetchAccount(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Balance, 0, len(resp.Balances))
	for _, b := range resp.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return nil, fmt.Errorf("parse free balance for %s: %w", b.Asset, err)
		}
		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			return nil, fmt.Errorf("parse locked balance for %s: %w", b.Asset, err)
		}
		bal := model.Balance{Asset: model.NormalizeAsset(b.Asset), Free: free, Locked: locked}
		if !bal.Total().IsPositive() {
			continue
		}
		out = append(out, bal)
	}
	return out, nil
}

// FetchFeeRates 使用账户 taker 费率作为买卖两侧费率
func (c *AccountClient) FetchFeeRates(ctx context.Context) (model.FeeModel, error) {
	resp, err := c.fetchAccount(ctx)
	if err != nil {
		return model.FeeModel{}, err
	}
	taker, err := decimal.NewFromString(resp.CommissionRates.Taker)
	if err != nil {
		return model.FeeModel{}, fmt.Errorf("parse taker commission: %w", err)
	}
	return model.FeeModel{BuyRate: taker, SellRate: taker}, nil
}

// FetchOrders pages through GET /api/v3/allOrders for one market.
func (c *AccountClient) FetchOrders(ctx context.Context, pair model.Pair) ([]model.RawOrder, error) {
	var (
		out    []model.RawOrder
		fromID int64
	)
	for {
		params := url.Values{}
		params.Set("symbol", pair.Symbol())
		params.Set("limit", strconv.Itoa(ordersPageLimit))
		if fromID > 0 {
			params.Set("orderId", strconv.FormatInt(fromID, 10))
		}

		body, err := c.signedRequest(ctx, http.MethodGet, "/api/v3/allOrders", params)
		if err != nil {
			return nil, fmt.Errorf("fetch orders %s: %w", pair.Symbol(), err)
		}

		var page []model.RawOrder
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode orders %s failed: %w", pair.Symbol(), err)
		}
		for i := range page {
			page[i].BaseAsset = pair.Base
			page[i].QuoteAsset = pair.Quote
		}
		out = append(out, page...)

		if len(page) < ordersPageLimit {
			return out, nil
		}
		fromID = page[len(page)-1].OrderID + 1
	}
}

// FetchMarkets 委托给行情客户端
func (c *AccountClient) FetchMarkets(ctx context.Context) ([]model.Pair, error) {
	return c.market.FetchMarkets(ctx)
}

// fetchAccount 调用 Binance 现货账户接口
func (c *AccountClient) fetchAccount(ctx context.Context) (*spotAccountResponse, error) {
	body, err := c.signedRequest(ctx, http.MethodGet, "/api/v3/account", url.Values{"omitZeroBalances": {"true"}})
	if err != nil {
		return nil, err
	}

	var resp spotAccountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode account response failed: %w", err)
	}
	return &resp, nil
}
