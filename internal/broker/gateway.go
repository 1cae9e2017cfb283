// Package broker defines the order-placement port. The autopilot and
// lifecycle manager only ever see this interface; the real brokerage
// adapter lives outside this process.
package broker

import "context"

// OrderSide is the direction of a submitted order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderResult reports the outcome of one order submission.
type OrderResult struct {
	OK      bool   `json:"ok"`
	OrderID string `json:"orderId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Gateway places orders. Callers guarantee at most one call per
// entry or exit decision; the gateway itself does not deduplicate.
type Gateway interface {
	PlaceEquityOrder(ctx context.Context, symbol string, quantity float64, side OrderSide) OrderResult
	PlaceOptionOrder(ctx context.Context, optionSymbol string, contracts int, side OrderSide) OrderResult
}
