package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"cointrack/internal/application/container"
	"cointrack/internal/application/port"
	"cointrack/internal/application/usecase/tracker"
	"cointrack/internal/domain/model"
	"cointrack/internal/infrastructure/config"
	infracontainer "cointrack/internal/infrastructure/container"
	"cointrack/internal/infrastructure/exchange/binance"
	"cointrack/internal/infrastructure/logger"
	"cointrack/internal/infrastructure/pricefeed"
	"cointrack/internal/interfaces/console"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Setup("info")
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := infracontainer.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage failed")
	}
	defer infra.Close()

	// exchange + price sources (infrastructure -> application ports)
	var (
		exch   port.ExchangeClient
		feed   port.PriceFeed
		poller port.PricePoller
	)
	if cfg.Exchange.Binance.Enabled {
		key, secret := cfg.Credentials()
		if key == "" || secret == "" {
			log.Warn().
				Str("key_env", cfg.Exchange.Binance.APIKeyEnv).
				Str("secret_env", cfg.Exchange.Binance.APISecretEnv).
				Msg("binance credentials missing, account sync disabled")
		}
		clients := binance.NewClients(binance.ClientConfig{
			APIKey:            key,
			APISecret:         secret,
			RestURL:           cfg.Exchange.Binance.RestURL,
			RequestsPerSecond: cfg.Exchange.Binance.RequestsPerSecond,
			Timeout:           cfg.RequestTimeout(),
		})
		exch = clients.Account
		poller = clients.Market
		if factory, ok := pricefeed.Get(binance.ExchangeName); ok {
			feed = factory(cfg.Exchange.Binance.WsURL)
		} else {
			log.Warn().Strs("registered", pricefeed.Names()).Msg("no binance price feed registered, polling only")
		}
	} else {
		log.Warn().Msg("binance disabled by config, only manual prices available")
	}

	prices := pricefeed.NewAdapter(feed, poller, pricefeed.Config{
		StaleAfter:     cfg.StaleAfter(),
		PollInterval:   cfg.PollInterval(),
		RequestTimeout: cfg.RequestTimeout(),
	})
	prices.OnStateChange(func(s model.FeedState) {
		log.Info().Str("state", s.String()).Msg("price feed state changed")
	})

	buy, sell := cfg.FeeRates()
	app := container.New(container.Deps{
		Exchange:   exch,
		Store:      infra.Store(),
		Prices:     prices,
		Snapshots:  infra.Snapshots(),
		PriceCache: infra.PriceCache(),
		AlertSinks: infra.AlertSinks(),
		Sink:       console.NewSink(),
	}, container.Options{
		Assets:            cfg.App.Assets,
		ReportingCurrency: cfg.App.ReportingCurrency,
		FallbackQuotes:    cfg.Valuation.FallbackQuotes,
		BuyFeeRate:        buy,
		SellFeeRate:       sell,
		SyncConcurrency:   cfg.App.SyncConcurrency,
		SnapshotEveryMin:  cfg.App.SnapshotEveryMin,
		PnLThresholdPct:   cfg.App.PnLThresholdPct,
		Watch:             prices.Watch,
	})

	tr := app.Tracker()
	if err := tr.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("some persisted state could not be loaded")
	}
	if exch != nil {
		if err := tr.SyncAll(ctx); err != nil {
			log.Warn().Err(err).Msg("initial sync incomplete")
		}
		if cfg.Valuation.UseExchangeFees {
			if err := tr.SyncFees(ctx); err != nil {
				log.Warn().Err(err).Msg("exchange fee rates unavailable, using configured rates")
			}
		}
	}
	prices.Watch(tr.WatchSymbols())

	log.Info().
		Str("config", *configPath).
		Strs("assets", tr.Assets()).
		Str("reporting", tr.ReportingCurrency()).
		Int("snapshot_every_min", cfg.App.SnapshotEveryMin).
		Msg("cointrack started")

	g, gctx := errgroup.WithContext(ctx)
	if feed != nil || poller != nil {
		g.Go(func() error { return prices.Run(gctx) })
	}
	g.Go(func() error { return app.Monitor(prices.Updates()).Run(gctx) })
	if exch != nil {
		g.Go(func() error {
			resync(gctx, tr, time.Duration(cfg.App.ResyncEveryMin)*time.Minute)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("cointrack exited")
	}
}

// resync 定期从交易所刷新订单历史
func resync(ctx context.Context, tr *tracker.Service, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := tr.SyncAll(ctx); err != nil {
				log.Warn().Err(err).Msg("periodic sync incomplete")
			}
		}
	}
}
