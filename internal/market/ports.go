// Package market defines the candle and quote feed ports consumed by the
// decision pipeline, plus a short-TTL quote cache.
package market

import (
	"context"

	"trading-autopilot/internal/indicators"
)

// CandleFeed supplies historical OHLCV bars for a symbol.
type CandleFeed interface {
	GetCandles(ctx context.Context, symbol string, window int) ([]indicators.Candle, error)
}

// QuoteFeed supplies current prices. A nil price with nil error means the
// feed has no quote for the symbol right now.
type QuoteFeed interface {
	GetPrice(ctx context.Context, symbol string) (*float64, error)
	GetOptionMid(ctx context.Context, symbol, expiration string, strike float64, optionType string) (*float64, error)
}
