package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[app]
assets = ["btc", " eth ", "BTC", ""]
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.App.Assets) != 2 || cfg.App.Assets[0] != "BTC" || cfg.App.Assets[1] != "ETH" {
		t.Errorf("assets = %v", cfg.App.Assets)
	}
	if cfg.App.ReportingCurrency != "USDT" || cfg.App.SnapshotEveryMin != 5 || cfg.App.ResyncEveryMin != 15 || cfg.App.PnLThresholdPct != 1 {
		t.Errorf("unexpected app defaults: %+v", cfg.App)
	}
	if len(cfg.Valuation.FallbackQuotes) != 4 || cfg.Valuation.FallbackQuotes[3] != "BTC" {
		t.Errorf("fallback quotes = %v", cfg.Valuation.FallbackQuotes)
	}
	if cfg.StaleAfter().Seconds() != 30 || cfg.PollInterval().Seconds() != 5 {
		t.Errorf("unexpected feed timings: %v %v", cfg.StaleAfter(), cfg.PollInterval())
	}
	buy, sell := cfg.FeeRates()
	if !buy.IsZero() || !sell.IsZero() {
		t.Errorf("fees should default to zero: %s %s", buy, sell)
	}
}

func TestLoadFees(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[valuation]
fallback_quotes = ["usdt", "btc"]
buy_fee_rate = "0.001"
sell_fee_rate = "0.00075"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	buy, sell := cfg.FeeRates()
	if !buy.Equal(decimal.RequireFromString("0.001")) || !sell.Equal(decimal.RequireFromString("0.00075")) {
		t.Errorf("fees = %s %s", buy, sell)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"fee out of range": `
[valuation]
buy_fee_rate = "1.5"
`,
		"bad ws url": `
[exchange.binance]
enabled = true
ws_url = "not a url"
`,
		"redis without addr": `
[storage.redis]
enabled = true
`,
		"postgres without dsn": `
[storage.postgres]
enabled = true
`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("CT_KEY", "k")
	t.Setenv("CT_SECRET", "s")
	cfg, err := Load(writeConfig(t, `
[exchange.binance]
api_key_env = "CT_KEY"
api_secret_env = "CT_SECRET"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k, s := cfg.Credentials(); k != "k" || s != "s" {
		t.Errorf("credentials = %q %q", k, s)
	}
}
