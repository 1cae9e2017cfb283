package positions

import (
	"time"
)

// Status describes where a tracked position is in its lifecycle.
type Status string

const (
	StatusActive        Status = "ACTIVE"
	StatusExitSubmitted Status = "EXIT_SUBMITTED"
	StatusHitTarget     Status = "HIT_TARGET"
	StatusStoppedOut    Status = "STOPPED_OUT"
	StatusClosed        Status = "CLOSED"
	StatusExpired       Status = "EXPIRED"
)

// IsTerminal reports whether a status is final. Terminal positions are
// never mutated again by the lifecycle sweep.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusHitTarget, StatusStoppedOut, StatusClosed, StatusExpired:
		return true
	}
	return false
}

// CanTransition enforces the lifecycle state machine. Exits flow
// ACTIVE -> EXIT_SUBMITTED -> terminal for live positions, or straight
// ACTIVE -> terminal for paper positions. Terminal states accept no
// further transitions.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	switch from {
	case StatusActive:
		return to == StatusExitSubmitted || to.IsTerminal()
	case StatusExitSubmitted:
		return to.IsTerminal()
	}
	return false
}

// Side is the directional exposure of a position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Instrument distinguishes equity positions from option positions.
type Instrument string

const (
	InstrumentEquity Instrument = "EQUITY"
	InstrumentOption Instrument = "OPTION"
)

// OptionContract identifies a single option leg.
type OptionContract struct {
	Symbol     string  `json:"symbol"`
	Expiration string  `json:"expiration"`
	Strike     float64 `json:"strike"`
	OptionType string  `json:"optionType"` // CALL or PUT
}

// BrokerInfo carries broker order references for a live position.
type BrokerInfo struct {
	EntryOrderID string `json:"entryOrderId,omitempty"`
	ExitOrderID  string `json:"exitOrderId,omitempty"`
}

// Position is a tracked trade. Paper positions simulate fills locally;
// live positions mirror broker orders. Version backs optimistic
// concurrency on updates.
type Position struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	StrategyID string     `json:"strategyId"`
	Signal     string     `json:"signal"` // BUY or SELL at entry
	Side       Side       `json:"side"`
	Instrument Instrument `json:"instrument"`
	Live       bool       `json:"live"`
	Status     Status     `json:"status"`
	Version    int        `json:"version"`

	Quantity   float64         `json:"quantity"`
	EntryPrice float64         `json:"entryPrice"`
	StopPrice  float64         `json:"stopPrice"`
	Target     float64         `json:"target"`
	Contract   *OptionContract `json:"contract,omitempty"`
	Broker     BrokerInfo      `json:"broker"`

	Confidence  float64 `json:"confidence"`
	Regime      string  `json:"regime"`
	ClosedPrice float64 `json:"closedPrice,omitempty"`
	CloseReason string  `json:"closeReason,omitempty"`

	OpenedAt  time.Time  `json:"openedAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// InferredSide resolves direction with fallbacks for records written
// before the side column existed. Signal wins, then instrument type,
// then stop placement relative to entry.
func (p *Position) InferredSide() Side {
	if p.Side == SideLong || p.Side == SideShort {
		return p.Side
	}
	switch p.Signal {
	case "BUY":
		return SideLong
	case "SELL":
		return SideShort
	}
	if p.Contract != nil {
		if p.Contract.OptionType == "PUT" {
			return SideShort
		}
		return SideLong
	}
	if p.StopPrice > p.EntryPrice {
		return SideShort
	}
	return SideLong
}

// RiskPerUnit is the distance between entry and stop, always positive.
func (p *Position) RiskPerUnit() float64 {
	r := p.EntryPrice - p.StopPrice
	if p.InferredSide() == SideShort {
		r = p.StopPrice - p.EntryPrice
	}
	if r < 0 {
		return -r
	}
	return r
}

// RMultiple expresses an exit price as a multiple of the initial risk.
// Returns 0 when the position has no measurable risk.
func (p *Position) RMultiple(price float64) float64 {
	risk := p.RiskPerUnit()
	if risk <= 0 {
		return 0
	}
	if p.InferredSide() == SideShort {
		return (p.EntryPrice - price) / risk
	}
	return (price - p.EntryPrice) / risk
}
