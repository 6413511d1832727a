package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ExchangeName is the registry key and Tick.Exchange value of this package.
const ExchangeName = "BINANCE"

const (
	DefaultRestURL = "https://api.binance.com"
	DefaultWSURL   = "wss://stream.binance.com:9443"
)

// ErrNoCredentials signed endpoints need an API key and secret.
var ErrNoCredentials = errors.New("binance api key/secret not configured")

// ===== Credentials 凭证 =====

// Credentials 包含 API 凭证和签名方法
type Credentials struct {
	apiKey    string
	apiSecret string
}

// NewCredentials 创建凭证对象
func NewCredentials(apiKey, apiSecret string) *Credentials {
	return &Credentials{
		apiKey:    strings.TrimSpace(apiKey),
		apiSecret: strings.TrimSpace(apiSecret),
	}
}

// Sign 生成 HMAC-SHA256 签名
func (c *Credentials) Sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// APIKey 返回 API Key
func (c *Credentials) APIKey() string {
	return c.apiKey
}

func (c *Credentials) empty() bool {
	return c == nil || c.apiKey == "" || c.apiSecret == ""
}

// ClientConfig 构造 REST 客户端所需参数
type ClientConfig struct {
	APIKey            string
	APISecret         string
	RestURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
}

type APIClient struct {
	credentials *Credentials
	httpClient  *http.Client
	baseURL     string
	limiter     *rate.Limiter
}

// NewAPIClient 共享 HTTP 连接、凭证与限速器
func NewAPIClient(cfg ClientConfig) *APIClient {
	if cfg.RestURL == "" {
		cfg.RestURL = DefaultRestURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	return &APIClient{
		credentials: NewCredentials(cfg.APIKey, cfg.APISecret),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.RestURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 5),
	}
}

// Clients Binance 现货统一管理器
type Clients struct {
	Account *AccountClient
	Market  *MarketClient
}

// NewClients 通过一组凭证同时创建账户与行情客户端
func NewClients(cfg ClientConfig) *Clients {
	api := NewAPIClient(cfg)
	market := NewMarketClient(api)
	return &Clients{
		Account: NewAccountClient(api, market),
		Market:  market,
	}
}
