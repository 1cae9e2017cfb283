package broker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PlacedOrder records one order accepted by the paper gateway.
type PlacedOrder struct {
	OrderID  string
	Symbol   string
	Quantity float64
	Side     OrderSide
	Option   bool
}

// PaperGateway accepts every order and assigns a synthetic order id.
// It stands in for the live brokerage in paper mode and in tests.
type PaperGateway struct {
	mu     sync.Mutex
	orders []PlacedOrder
	logger zerolog.Logger
}

// NewPaperGateway creates a paper gateway
func NewPaperGateway(logger zerolog.Logger) *PaperGateway {
	return &PaperGateway{
		logger: logger.With().Str("component", "paper_broker").Logger(),
	}
}

// PlaceEquityOrder simulates an immediate equity fill
func (g *PaperGateway) PlaceEquityOrder(ctx context.Context, symbol string, quantity float64, side OrderSide) OrderResult {
	return g.accept(PlacedOrder{Symbol: symbol, Quantity: quantity, Side: side})
}

// PlaceOptionOrder simulates an immediate option fill
func (g *PaperGateway) PlaceOptionOrder(ctx context.Context, optionSymbol string, contracts int, side OrderSide) OrderResult {
	return g.accept(PlacedOrder{Symbol: optionSymbol, Quantity: float64(contracts), Side: side, Option: true})
}

// Orders returns a copy of every order placed so far
func (g *PaperGateway) Orders() []PlacedOrder {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]PlacedOrder, len(g.orders))
	copy(out, g.orders)
	return out
}

func (g *PaperGateway) accept(order PlacedOrder) OrderResult {
	order.OrderID = uuid.New().String()

	g.mu.Lock()
	g.orders = append(g.orders, order)
	g.mu.Unlock()

	g.logger.Info().
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Float64("quantity", order.Quantity).
		Str("order_id", order.OrderID).
		Msg("Paper order accepted")

	return OrderResult{OK: true, OrderID: order.OrderID}
}
