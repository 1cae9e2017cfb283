// Package lifecycle sweeps open positions: it ratchets trailing stops,
// closes positions on stop, target, or time stop, and submits live exit
// orders at most once per position.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trading-autopilot/internal/autopilot"
	"trading-autopilot/internal/broker"
	"trading-autopilot/internal/circuit"
	"trading-autopilot/internal/events"
	"trading-autopilot/internal/market"
	"trading-autopilot/internal/positions"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the persistence surface the sweep needs. *database.DB
// satisfies it.
type Store interface {
	ListPositionsByStatus(ctx context.Context, statuses ...positions.Status) ([]*positions.Position, error)
	UpdatePosition(ctx context.Context, p *positions.Position) error
	AppendRunLog(ctx context.Context, entry *autopilot.RunLogEntry) error
}

// Params controls one sweep.
type Params struct {
	DryRun           bool    `json:"dryRun"`
	AutopilotOnly    bool    `json:"autopilotOnly"`
	TimeStopDays     int     `json:"timeStopDays"`
	TrailAfterR      float64 `json:"trailAfterR"`
	TrailLockInR     float64 `json:"trailLockInR"`
	ExecuteLiveExits bool    `json:"executeLiveExits"`
}

// SweepResult is the outcome of one full position-management cycle.
type SweepResult struct {
	OK      bool               `json:"ok"`
	Error   string             `json:"error,omitempty"`
	Actions []autopilot.Action `json:"actions"`
	Swept   int                `json:"swept"`
}

// Manager runs sweeps. It holds no cycle state.
type Manager struct {
	store   Store
	quotes  market.QuoteFeed
	gateway broker.Gateway
	bus     *events.EventBus
	breaker *circuit.Breaker
	logger  zerolog.Logger
	now     func() time.Time
}

// NewManager wires a lifecycle manager. now may be nil for the wall
// clock.
func NewManager(store Store, quotes market.QuoteFeed, gateway broker.Gateway, bus *events.EventBus, logger zerolog.Logger, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store:   store,
		quotes:  quotes,
		gateway: gateway,
		bus:     bus,
		logger:  logger.With().Str("component", "lifecycle").Logger(),
		now:     now,
	}
}

// SetCircuitBreaker attaches the breaker that closed positions report
// their R multiples to.
func (m *Manager) SetCircuitBreaker(b *circuit.Breaker) {
	m.breaker = b
}

// Sweep walks every ACTIVE position once. Problems with one position
// only skip that position; the run-log entry is written no matter how
// the sweep ends.
func (m *Manager) Sweep(ctx context.Context, params Params) SweepResult {
	start := m.now()
	result := SweepResult{OK: true}

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.OK = false
				result.Error = fmt.Sprintf("sweep panic: %v", r)
				m.logger.Error().Str("panic", result.Error).Msg("Sweep aborted")
			}
		}()
		m.sweep(ctx, params, &result)
	}()

	finished := m.now()
	entry := &autopilot.RunLogEntry{
		ID:         uuid.New().String(),
		Kind:       "sweep",
		DryRun:     params.DryRun,
		StartedAt:  start,
		FinishedAt: finished,
		OK:         result.OK,
		Error:      result.Error,
		Actions:    result.Actions,
	}
	for _, a := range result.Actions {
		if a.Type == autopilot.ActionSkip {
			entry.Skips++
		}
	}
	if err := m.store.AppendRunLog(ctx, entry); err != nil {
		m.logger.Error().Err(err).Msg("Failed to write sweep run log entry")
	}

	if m.bus != nil {
		m.bus.Publish(events.Event{
			Type: events.EventSweepCompleted,
			Data: map[string]interface{}{"ok": result.OK, "swept": result.Swept},
		})
	}

	return result
}

func (m *Manager) sweep(ctx context.Context, params Params, result *SweepResult) {
	open, err := m.store.ListPositionsByStatus(ctx, positions.StatusActive)
	if err != nil {
		result.OK = false
		result.Error = fmt.Sprintf("list positions: %v", err)
		return
	}

	for _, pos := range open {
		if params.AutopilotOnly && pos.StrategyID == "" {
			continue
		}
		result.Swept++
		m.sweepOne(ctx, params, pos, result)
	}
}

func (m *Manager) sweepOne(ctx context.Context, params Params, pos *positions.Position, result *SweepResult) {
	if pos.EntryPrice <= 0 || pos.StopPrice <= 0 || pos.Target <= 0 {
		m.skip(result, pos, "entry, stop, or target missing")
		return
	}

	price, err := m.currentPrice(ctx, pos)
	if err != nil {
		m.skip(result, pos, fmt.Sprintf("quote fetch failed: %v", err))
		return
	}
	if price == nil {
		m.skip(result, pos, "no price available")
		return
	}

	side := pos.InferredSide()
	if pos.RiskPerUnit() <= 0 {
		m.skip(result, pos, "non-positive risk, record looks corrupt")
		return
	}

	// Exits are evaluated against the stop as it stood entering this
	// sweep; a fresh ratchet never triggers in the same pass.
	if reason, status := m.exitCheck(params, pos, side, *price); status != "" {
		m.applyExit(ctx, params, pos, side, *price, reason, status, result)
		return
	}

	m.ratchet(ctx, params, pos, side, *price, result)
}

// exitCheck returns the close reason and terminal status when an exit
// condition holds. Target beats stop beats time stop.
func (m *Manager) exitCheck(params Params, pos *positions.Position, side positions.Side, price float64) (string, positions.Status) {
	targetHit := price >= pos.Target
	stopHit := price <= pos.StopPrice
	if side == positions.SideShort {
		targetHit = price <= pos.Target
		stopHit = price >= pos.StopPrice
	}

	if targetHit {
		return "target reached", positions.StatusHitTarget
	}
	if stopHit {
		return "stop hit", positions.StatusStoppedOut
	}
	if params.TimeStopDays > 0 && m.now().Sub(pos.OpenedAt) >= time.Duration(params.TimeStopDays)*24*time.Hour {
		return fmt.Sprintf("time stop after %d days", params.TimeStopDays), positions.StatusExpired
	}
	return "", ""
}

// applyExit closes a paper position directly, or submits one live exit
// order and parks the position in EXIT_SUBMITTED until the fill is
// confirmed externally. A position with an exit order id already on
// record is never submitted again.
func (m *Manager) applyExit(ctx context.Context, params Params, pos *positions.Position, side positions.Side, price float64, reason string, status positions.Status, result *SweepResult) {
	if pos.Live {
		if pos.Broker.ExitOrderID != "" {
			m.skip(result, pos, "exit order already submitted")
			return
		}
		if !params.ExecuteLiveExits {
			m.skip(result, pos, fmt.Sprintf("live exit wanted (%s) but live exits are disabled", reason))
			return
		}
		if params.DryRun {
			m.action(result, pos, autopilot.ActionExitSubmitted, reason, price)
			return
		}

		orderSide := broker.SideSell
		if side == positions.SideShort && pos.Instrument == positions.InstrumentEquity {
			orderSide = broker.SideBuy
		}
		var res broker.OrderResult
		if pos.Instrument == positions.InstrumentOption && pos.Contract != nil {
			res = m.gateway.PlaceOptionOrder(ctx, pos.Contract.Symbol, int(pos.Quantity), broker.SideSell)
		} else {
			res = m.gateway.PlaceEquityOrder(ctx, pos.Symbol, pos.Quantity, orderSide)
		}
		if !res.OK {
			m.skip(result, pos, fmt.Sprintf("exit order rejected: %s", res.Error))
			return
		}

		pos.Broker.ExitOrderID = res.OrderID
		pos.Status = positions.StatusExitSubmitted
		pos.CloseReason = reason
		if err := m.store.UpdatePosition(ctx, pos); err != nil {
			m.conflictOrSkip(result, pos, err)
			return
		}
		m.action(result, pos, autopilot.ActionExitSubmitted, reason, price)
		if m.bus != nil {
			m.bus.Publish(events.Event{
				Type: events.EventExitSubmitted,
				Data: map[string]interface{}{"symbol": pos.Symbol, "reason": reason, "order_id": res.OrderID},
			})
		}
		return
	}

	if params.DryRun {
		m.action(result, pos, autopilot.ActionClosed, reason, price)
		return
	}

	if !positions.CanTransition(pos.Status, status) {
		m.skip(result, pos, fmt.Sprintf("illegal transition %s -> %s", pos.Status, status))
		return
	}

	now := m.now()
	pos.Status = status
	pos.ClosedPrice = price
	pos.CloseReason = reason
	pos.ClosedAt = &now
	if err := m.store.UpdatePosition(ctx, pos); err != nil {
		m.conflictOrSkip(result, pos, err)
		return
	}
	m.action(result, pos, autopilot.ActionClosed, reason, price)
	if m.breaker != nil {
		m.breaker.RecordClose(pos.RMultiple(price))
	}
	if m.bus != nil {
		m.bus.PublishPositionClosed(pos.Symbol, reason, pos.EntryPrice, price)
	}
}

// ratchet moves the stop toward the lock-in level once the position has
// run TrailAfterR multiples in its favor. The stop only ever tightens.
func (m *Manager) ratchet(ctx context.Context, params Params, pos *positions.Position, side positions.Side, price float64, result *SweepResult) {
	if params.TrailAfterR <= 0 {
		return
	}
	if pos.RMultiple(price) < params.TrailAfterR {
		return
	}

	risk := pos.RiskPerUnit()
	newStop := pos.EntryPrice + params.TrailLockInR*risk
	improved := newStop > pos.StopPrice
	if side == positions.SideShort {
		newStop = pos.EntryPrice - params.TrailLockInR*risk
		improved = newStop < pos.StopPrice
	}
	if !improved {
		return
	}

	oldStop := pos.StopPrice
	if params.DryRun {
		m.action(result, pos, autopilot.ActionStopUpdated,
			fmt.Sprintf("stop %.2f -> %.2f", oldStop, newStop), price)
		return
	}

	pos.StopPrice = newStop
	if err := m.store.UpdatePosition(ctx, pos); err != nil {
		pos.StopPrice = oldStop
		m.conflictOrSkip(result, pos, err)
		return
	}
	m.action(result, pos, autopilot.ActionStopUpdated,
		fmt.Sprintf("stop %.2f -> %.2f", oldStop, newStop), price)
	if m.bus != nil {
		m.bus.PublishStopUpdated(pos.Symbol, oldStop, newStop)
	}
}

func (m *Manager) currentPrice(ctx context.Context, pos *positions.Position) (*float64, error) {
	if pos.Instrument == positions.InstrumentOption && pos.Contract != nil {
		c := pos.Contract
		return m.quotes.GetOptionMid(ctx, c.Symbol, c.Expiration, c.Strike, c.OptionType)
	}
	return m.quotes.GetPrice(ctx, pos.Symbol)
}

func (m *Manager) conflictOrSkip(result *SweepResult, pos *positions.Position, err error) {
	if errors.Is(err, positions.ErrVersionConflict) {
		m.skip(result, pos, "lost update race to a concurrent sweep, will retry next cycle")
		return
	}
	m.skip(result, pos, fmt.Sprintf("store write failed: %v", err))
}

func (m *Manager) skip(result *SweepResult, pos *positions.Position, reason string) {
	result.Actions = append(result.Actions, autopilot.Action{
		Type:       autopilot.ActionSkip,
		Symbol:     pos.Symbol,
		StrategyID: pos.StrategyID,
		PositionID: pos.ID,
		Reason:     reason,
		At:         m.now(),
	})
}

func (m *Manager) action(result *SweepResult, pos *positions.Position, t autopilot.ActionType, reason string, price float64) {
	result.Actions = append(result.Actions, autopilot.Action{
		Type:       t,
		Symbol:     pos.Symbol,
		StrategyID: pos.StrategyID,
		PositionID: pos.ID,
		Reason:     reason,
		Price:      price,
		At:         m.now(),
	})
	m.logger.Info().
		Str("symbol", pos.Symbol).
		Str("position_id", pos.ID).
		Str("action", string(t)).
		Str("reason", reason).
		Float64("price", price).
		Msg("Lifecycle action")
}
