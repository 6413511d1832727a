package binance

import (
	"cointrack/internal/application/port"
	"cointrack/internal/infrastructure/pricefeed"
)

// init() registers the Binance spot ticker feed so the container can pick
// feeds by exchange name from config.
func init() {
	pricefeed.Register(ExchangeName, func(wsURL string) port.PriceFeed {
		return NewTickerFeed(wsURL)
	})
}
