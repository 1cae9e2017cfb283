// Package risk enforces position and notional ceilings for the
// autopilot. A Tracker is built once per tick from store counts and
// updated optimistically as executions happen, so later candidates in
// the same cycle see earlier fills.
package risk

import "fmt"

// Caps are the configured ceilings checked before each execution.
type Caps struct {
	MaxOpenPositions    int
	MaxOpenPerSymbol    int
	MaxTradesPerDay     int
	MaxNotionalPerTrade float64
}

// Tracker holds live counters for one tick.
type Tracker struct {
	caps        Caps
	openTotal   int
	openSymbol  map[string]int
	tradesToday int
}

// NewTracker seeds a tracker with current store counts
func NewTracker(caps Caps, openTotal int, openBySymbol map[string]int, tradesToday int) *Tracker {
	bySymbol := make(map[string]int, len(openBySymbol))
	for k, v := range openBySymbol {
		bySymbol[k] = v
	}
	return &Tracker{
		caps:        caps,
		openTotal:   openTotal,
		openSymbol:  bySymbol,
		tradesToday: tradesToday,
	}
}

// GlobalCapsReached reports whether the whole cycle should stop before
// any per-symbol work: total open positions or daily trades at cap.
func (t *Tracker) GlobalCapsReached() (bool, string) {
	if t.caps.MaxOpenPositions > 0 && t.openTotal >= t.caps.MaxOpenPositions {
		return true, fmt.Sprintf("open positions at cap (%d/%d)", t.openTotal, t.caps.MaxOpenPositions)
	}
	if t.caps.MaxTradesPerDay > 0 && t.tradesToday >= t.caps.MaxTradesPerDay {
		return true, fmt.Sprintf("daily trades at cap (%d/%d)", t.tradesToday, t.caps.MaxTradesPerDay)
	}
	return false, ""
}

// SymbolCapReached reports whether the per-symbol open cap blocks a
// new position for symbol.
func (t *Tracker) SymbolCapReached(symbol string) (bool, string) {
	if t.caps.MaxOpenPerSymbol > 0 && t.openSymbol[symbol] >= t.caps.MaxOpenPerSymbol {
		return true, fmt.Sprintf("open positions for %s at cap (%d/%d)", symbol, t.openSymbol[symbol], t.caps.MaxOpenPerSymbol)
	}
	return false, ""
}

// CheckExecution re-validates every cap plus the per-trade notional
// ceiling immediately before placing an order. Counters may have moved
// since the start of the cycle.
func (t *Tracker) CheckExecution(symbol string, notional float64) (bool, string) {
	if reached, reason := t.GlobalCapsReached(); reached {
		return false, reason
	}
	if reached, reason := t.SymbolCapReached(symbol); reached {
		return false, reason
	}
	if t.caps.MaxNotionalPerTrade > 0 && notional > t.caps.MaxNotionalPerTrade {
		return false, fmt.Sprintf("notional %.2f exceeds per-trade cap %.2f", notional, t.caps.MaxNotionalPerTrade)
	}
	return true, ""
}

// RecordExecution bumps the counters after a successful execution
func (t *Tracker) RecordExecution(symbol string) {
	t.openTotal++
	t.openSymbol[symbol]++
	t.tradesToday++
}
