package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

type Config struct {
	App struct {
		Assets            []string `toml:"assets"`
		ReportingCurrency string   `toml:"reporting_currency"`
		LogLevel          string   `toml:"log_level"`
		SnapshotEveryMin  int      `toml:"snapshot_every_min"`
		SyncConcurrency   int      `toml:"sync_concurrency"`
		ResyncEveryMin    int      `toml:"resync_every_min"`
		PnLThresholdPct   float64  `toml:"pnl_threshold_pct"` // |pnl%| 超过该值时着色
	} `toml:"app"`

	Valuation struct {
		FallbackQuotes  []string `toml:"fallback_quotes"`
		BuyFeeRate      string   `toml:"buy_fee_rate"`
		SellFeeRate     string   `toml:"sell_fee_rate"`
		UseExchangeFees bool     `toml:"use_exchange_fees"`
	} `toml:"valuation"`

	PriceFeed struct {
		StaleAfterSec     int `toml:"stale_after_sec"`
		PollIntervalSec   int `toml:"poll_interval_sec"`
		RequestTimeoutSec int `toml:"request_timeout_sec"`
	} `toml:"pricefeed"`

	Exchange struct {
		Binance struct {
			Enabled           bool    `toml:"enabled"`
			RestURL           string  `toml:"rest_url"`
			WsURL             string  `toml:"ws_url"`
			APIKeyEnv         string  `toml:"api_key_env"`
			APISecretEnv      string  `toml:"api_secret_env"`
			RequestsPerSecond float64 `toml:"requests_per_second"`
		} `toml:"binance"`
	} `toml:"exchange"`

	Storage struct {
		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Redis struct {
			Enabled      bool   `toml:"enabled"`
			Addr         string `toml:"addr"`
			Password     string `toml:"password"`
			DB           int    `toml:"db"`
			Prefix       string `toml:"prefix"`
			TTLSeconds   int    `toml:"ttl_seconds"`
			AlertStream  string `toml:"alert_stream"`
			AlertChannel string `toml:"alert_channel"`
		} `toml:"redis"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.SnapshotEveryMin <= 0 {
		cfg.App.SnapshotEveryMin = 5
	}
	if cfg.App.SyncConcurrency <= 0 {
		cfg.App.SyncConcurrency = 4
	}
	if cfg.App.ResyncEveryMin <= 0 {
		cfg.App.ResyncEveryMin = 15
	}
	if cfg.App.PnLThresholdPct <= 0 {
		cfg.App.PnLThresholdPct = 1
	}
	if strings.TrimSpace(cfg.App.ReportingCurrency) == "" {
		cfg.App.ReportingCurrency = "USDT"
	}
	if strings.TrimSpace(cfg.App.LogLevel) == "" {
		cfg.App.LogLevel = "info"
	}
	if len(cfg.Valuation.FallbackQuotes) == 0 {
		cfg.Valuation.FallbackQuotes = []string{"USDT", "USDC", "BUSD", "BTC"}
	}
	if cfg.PriceFeed.StaleAfterSec <= 0 {
		cfg.PriceFeed.StaleAfterSec = 30
	}
	if cfg.PriceFeed.PollIntervalSec <= 0 {
		cfg.PriceFeed.PollIntervalSec = 5
	}
	if cfg.PriceFeed.RequestTimeoutSec <= 0 {
		cfg.PriceFeed.RequestTimeoutSec = 10
	}

	b := &cfg.Exchange.Binance
	if b.RestURL == "" {
		b.RestURL = "https://api.binance.com"
	}
	if b.WsURL == "" {
		b.WsURL = "wss://stream.binance.com:9443"
	}
	if b.APIKeyEnv == "" {
		b.APIKeyEnv = "BINANCE_API_KEY"
	}
	if b.APISecretEnv == "" {
		b.APISecretEnv = "BINANCE_API_SECRET"
	}
	if b.RequestsPerSecond <= 0 {
		b.RequestsPerSecond = 10
	}

	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/cointrack.db"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "cointrack"
	}
}

func validate(cfg *Config) error {
	cfg.App.Assets = normalizeSymbols(cfg.App.Assets)
	cfg.Valuation.FallbackQuotes = normalizeSymbols(cfg.Valuation.FallbackQuotes)
	cfg.App.ReportingCurrency = strings.ToUpper(strings.TrimSpace(cfg.App.ReportingCurrency))

	if len(cfg.Valuation.FallbackQuotes) == 0 {
		return errors.New("valuation.fallback_quotes is empty")
	}
	for _, f := range []struct{ name, v string }{
		{"valuation.buy_fee_rate", cfg.Valuation.BuyFeeRate},
		{"valuation.sell_fee_rate", cfg.Valuation.SellFeeRate},
	} {
		if _, err := parseFeeRate(f.v); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}

	if cfg.Exchange.Binance.Enabled {
		if err := checkURL(cfg.Exchange.Binance.RestURL); err != nil {
			return fmt.Errorf("exchange.binance.rest_url: %w", err)
		}
		if err := checkURL(cfg.Exchange.Binance.WsURL); err != nil {
			return fmt.Errorf("exchange.binance.ws_url: %w", err)
		}
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr empty but enabled")
	}
	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	return nil
}

// FeeRates 返回配置的买卖费率
func (c *Config) FeeRates() (buy, sell decimal.Decimal) {
	buy, _ = parseFeeRate(c.Valuation.BuyFeeRate)
	sell, _ = parseFeeRate(c.Valuation.SellFeeRate)
	return buy, sell
}

// Credentials 从配置的环境变量读取 Binance API key/secret，为空时只能访问公开接口
func (c *Config) Credentials() (apiKey, apiSecret string) {
	return os.Getenv(c.Exchange.Binance.APIKeyEnv), os.Getenv(c.Exchange.Binance.APISecretEnv)
}

func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.PriceFeed.StaleAfterSec) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PriceFeed.PollIntervalSec) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.PriceFeed.RequestTimeoutSec) * time.Second
}

// parseFeeRate accepts "" as zero. Rates must lie in [0, 1).
func parseFeeRate(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("fee rate %s out of range [0, 1)", s)
	}
	return d, nil
}

func checkURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("empty but enabled")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute url", raw)
	}
	return nil
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
