// Package autopilot runs the automated trade decision cycle: gates,
// signal evaluation, ranking, and capacity-limited execution.
package autopilot

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"trading-autopilot/internal/broker"
	"trading-autopilot/internal/circuit"
	"trading-autopilot/internal/dedup"
	"trading-autopilot/internal/events"
	"trading-autopilot/internal/market"
	"trading-autopilot/internal/positions"
	"trading-autopilot/internal/regime"
	"trading-autopilot/internal/risk"
	"trading-autopilot/internal/setups"
	"trading-autopilot/internal/signal"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// candleWindow is how many bars are fetched per symbol per tick. It
// covers the longest moving average plus the regime detector's minimum
// history.
const candleWindow = 250

// Store is the persistence surface the engine needs. *database.DB
// satisfies it.
type Store interface {
	LoadAutomationConfig(ctx context.Context) (*AutomationConfig, error)
	CreatePosition(ctx context.Context, p *positions.Position) error
	CountOpenPositions(ctx context.Context) (int, map[string]int, error)
	CountPositionsOpenedSince(ctx context.Context, since time.Time) (int, error)
	LastPositionTime(ctx context.Context, symbol, strategyID string) (*time.Time, error)
	HasActivePosition(ctx context.Context, symbol, strategyID string) (bool, error)
	AppendRunLog(ctx context.Context, entry *RunLogEntry) error
}

// ContractSelector chooses an option contract for a signal. Selection
// heuristics live outside the engine; without a selector, OPTION mode
// skips execution.
type ContractSelector interface {
	Select(ctx context.Context, symbol string, action signal.Action, sel OptionSelection) (*positions.OptionContract, string, error)
}

// TickResult is the outcome of one full decision cycle.
type TickResult struct {
	OK      bool     `json:"ok"`
	Error   string   `json:"error,omitempty"`
	Actions []Action `json:"actions"`
	Meta    TickMeta `json:"meta"`
}

// TickMeta carries cycle bookkeeping for callers and the run log.
type TickMeta struct {
	Mode       Mode      `json:"mode"`
	DryRun     bool      `json:"dryRun"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Candidates int       `json:"candidates"`
	Executed   int       `json:"executed"`
	Skips      int       `json:"skips"`
}

// Engine orchestrates one tick at a time. It holds no cycle state;
// every RunTick call is a fresh evaluation against the store.
type Engine struct {
	store    Store
	candles  market.CandleFeed
	quotes   market.QuoteFeed
	gateway  broker.Gateway
	dedup    *dedup.Tracker
	selector ContractSelector
	bus      *events.EventBus
	breaker  *circuit.Breaker
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEngine wires an engine. selector may be nil when options are not
// traded; now may be nil for the wall clock.
func NewEngine(store Store, candles market.CandleFeed, quotes market.QuoteFeed, gateway broker.Gateway, dedupTracker *dedup.Tracker, selector ContractSelector, bus *events.EventBus, logger zerolog.Logger, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:    store,
		candles:  candles,
		quotes:   quotes,
		gateway:  gateway,
		dedup:    dedupTracker,
		selector: selector,
		bus:      bus,
		logger:   logger.With().Str("component", "autopilot").Logger(),
		now:      now,
	}
}

// SetCircuitBreaker attaches a loss-streak breaker checked on every
// tick. A nil breaker leaves the gate off.
func (e *Engine) SetCircuitBreaker(b *circuit.Breaker) {
	e.breaker = b
}

// RunTick executes one full decision cycle. The run-log entry is
// written no matter how the cycle ends, including on panic; that entry
// is the only audit trail of what almost happened.
func (e *Engine) RunTick(ctx context.Context, dryRun bool) TickResult {
	start := e.now()
	result := TickResult{OK: true}

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.OK = false
				result.Error = fmt.Sprintf("tick panic: %v", r)
				e.logger.Error().Str("panic", result.Error).Msg("Tick aborted")
			}
		}()
		e.tick(ctx, dryRun, &result)
	}()

	result.Meta.DryRun = dryRun
	result.Meta.StartedAt = start
	result.Meta.FinishedAt = e.now()
	result.Meta.Skips = countActions(result.Actions, ActionSkip)

	entry := &RunLogEntry{
		ID:         uuid.New().String(),
		Kind:       "tick",
		Mode:       result.Meta.Mode,
		DryRun:     dryRun,
		StartedAt:  start,
		FinishedAt: result.Meta.FinishedAt,
		OK:         result.OK,
		Error:      result.Error,
		Actions:    result.Actions,
		Skips:      result.Meta.Skips,
		Executed:   result.Meta.Executed,
		Candidates: result.Meta.Candidates,
	}
	if err := e.store.AppendRunLog(ctx, entry); err != nil {
		e.logger.Error().Err(err).Msg("Failed to write run log entry")
	}

	if e.bus != nil {
		e.bus.Publish(events.Event{
			Type: events.EventTickCompleted,
			Data: map[string]interface{}{
				"ok":       result.OK,
				"executed": result.Meta.Executed,
				"skips":    result.Meta.Skips,
			},
		})
	}

	return result
}

type candidate struct {
	sig    signal.Signal
	regime regime.Regime
}

func (e *Engine) tick(ctx context.Context, dryRun bool, result *TickResult) {
	now := e.now()

	cfg, err := e.store.LoadAutomationConfig(ctx)
	if err != nil {
		result.OK = false
		result.Error = fmt.Sprintf("load config: %v", err)
		return
	}
	result.Meta.Mode = cfg.Mode

	if !cfg.Enabled || cfg.Mode == ModeOff {
		e.skip(result, "", "", "autopilot disabled")
		return
	}
	if cfg.Kill.Halted {
		reason := "kill switch engaged"
		if cfg.Kill.Reason != "" {
			reason = "kill switch engaged: " + cfg.Kill.Reason
		}
		e.skip(result, "", "", reason)
		return
	}
	if e.breaker != nil {
		if ok, reason := e.breaker.Allow(); !ok {
			e.skip(result, "", "", reason)
			return
		}
	}

	if cfg.RequireMarketHours && !WithinMarketHours(now) {
		e.skip(result, "", "", "outside market hours")
		return
	}
	if w := InNoTradeWindow(now, cfg.NoTradeWindows); w != nil {
		reason := fmt.Sprintf("inside no-trade window %02d:%02d-%02d:%02d",
			w.StartMinute/60, w.StartMinute%60, w.EndMinute/60, w.EndMinute%60)
		if w.Label != "" {
			reason += " (" + w.Label + ")"
		}
		e.skip(result, "", "", reason)
		return
	}

	// LIVE must fail closed: environment allow-flag plus an unexpired
	// arm window, checked regardless of dryRun.
	liveEffective := false
	if cfg.Mode == ModeLive {
		if !cfg.LiveEffective(now) {
			result.OK = false
			e.skip(result, "", "", "live mode blocked: allow-flag unset or arm window expired")
			return
		}
		liveEffective = true
	}

	openTotal, openBySymbol, err := e.store.CountOpenPositions(ctx)
	if err != nil {
		result.OK = false
		result.Error = fmt.Sprintf("count open positions: %v", err)
		return
	}
	tradesToday, err := e.store.CountPositionsOpenedSince(ctx, TradingDayStart(now))
	if err != nil {
		result.OK = false
		result.Error = fmt.Sprintf("count daily trades: %v", err)
		return
	}

	tracker := risk.NewTracker(risk.Caps{
		MaxOpenPositions:    cfg.Risk.MaxOpenPositions,
		MaxOpenPerSymbol:    cfg.Risk.MaxOpenPerSymbol,
		MaxTradesPerDay:     cfg.Risk.MaxTradesPerDay,
		MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade,
	}, openTotal, openBySymbol, tradesToday)

	if reached, reason := tracker.GlobalCapsReached(); reached {
		e.skip(result, "", "", reason)
		return
	}

	candidates := e.collectCandidates(ctx, dryRun, cfg, now, tracker, result)
	result.Meta.Candidates = len(candidates)

	e.rankAndExecute(ctx, dryRun, cfg, liveEffective, candidates, tracker, result)
}

// rankAndExecute orders candidates by confidence and executes at most
// maxNewPositionsPerTick of them. Candidates beyond capacity are
// dropped without further evaluation.
func (e *Engine) rankAndExecute(ctx context.Context, dryRun bool, cfg *AutomationConfig, liveEffective bool, candidates []candidate, tracker *risk.Tracker, result *TickResult) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sig.Confidence > candidates[j].sig.Confidence
	})
	if cfg.MaxNewPositionsPerTick > 0 && len(candidates) > cfg.MaxNewPositionsPerTick {
		candidates = candidates[:cfg.MaxNewPositionsPerTick]
	}

	for _, cand := range candidates {
		e.execute(ctx, dryRun, cfg, liveEffective, cand, tracker, result)
	}
}

// collectCandidates walks the symbol/strategy grid sequentially,
// applying every gate. Upstream failures for one symbol or strategy are
// isolated; they never abort the cycle.
func (e *Engine) collectCandidates(ctx context.Context, dryRun bool, cfg *AutomationConfig, now time.Time, tracker *risk.Tracker, result *TickResult) []candidate {
	var candidates []candidate

	for _, symbol := range cfg.Symbols {
		candles, err := e.candles.GetCandles(ctx, symbol, candleWindow)
		if err != nil {
			e.skip(result, symbol, "", fmt.Sprintf("candle fetch failed: %v", err))
			continue
		}

		// One detection per symbol, reused across strategies.
		reg := regime.Detect(candles)

		ictx, err := setups.BuildContext(symbol, candles)
		if err != nil {
			e.skip(result, symbol, "", fmt.Sprintf("indicator context: %v", err))
			continue
		}
		ictx.Regime = string(reg.Regime)

		for _, strategyID := range cfg.Strategies {
			strategy, ok := signal.Strategies[strategyID]
			if !ok {
				e.skip(result, symbol, strategyID, "unknown strategy")
				continue
			}

			active, err := e.store.HasActivePosition(ctx, symbol, strategyID)
			if err != nil {
				e.skip(result, symbol, strategyID, fmt.Sprintf("active-position check failed: %v", err))
				continue
			}
			if active {
				e.skip(result, symbol, strategyID, "position already active")
				continue
			}

			if cfg.CooldownMinutes > 0 {
				last, err := e.store.LastPositionTime(ctx, symbol, strategyID)
				if err != nil {
					e.skip(result, symbol, strategyID, fmt.Sprintf("cooldown check failed: %v", err))
					continue
				}
				if last != nil && now.Sub(*last) < time.Duration(cfg.CooldownMinutes)*time.Minute {
					e.skip(result, symbol, strategyID, fmt.Sprintf("within %dm cooldown", cfg.CooldownMinutes))
					continue
				}
			}

			if cfg.Mode == ModeLive && cfg.LiveRequireAllowlist && !containsFold(cfg.LiveAllowlist, symbol) {
				e.skip(result, symbol, strategyID, "symbol not on live allowlist")
				continue
			}

			if reached, reason := tracker.SymbolCapReached(symbol); reached {
				e.skip(result, symbol, strategyID, reason)
				continue
			}

			sig := signal.Evaluate(symbol, strategyID, cfg.PresetID, ictx)
			if sig.Action == signal.NoTrade {
				continue // silent: nothing fired
			}
			if sig.Confidence < cfg.EffectiveMinConfidence(strategyID) {
				continue // silent: below the confidence floor
			}

			if cfg.RegimeGateEnabled && !signal.RegimeAllowed(strategy, reg.Regime) {
				e.skip(result, symbol, strategyID, fmt.Sprintf("strategy incompatible with %s regime", reg.Regime))
				continue
			}

			key := dedup.MakeKey(strategyID, symbol, string(sig.Action))
			verdict, err := e.dedup.ShouldSuppress(ctx, key, now.UnixMilli(), cfg.DedupWindowMinutes, cfg.DedupMinConfDelta, sig.Confidence)
			if err != nil {
				e.skip(result, symbol, strategyID, fmt.Sprintf("dedup check failed: %v", err))
				continue
			}
			if verdict.Suppress {
				e.skip(result, symbol, strategyID, verdict.Reason)
				continue
			}

			if !dryRun {
				if err := e.dedup.RecordFire(ctx, key, now.UnixMilli(), sig.Confidence, cfg.DedupWindowMinutes); err != nil {
					e.logger.Warn().Err(err).Str("key", key).Msg("Failed to record dedup fire")
				}
			}

			candidates = append(candidates, candidate{sig: sig, regime: reg.Regime})
		}
	}

	return candidates
}

// execute re-validates caps and places one candidate. A failed live
// order never creates a position record.
func (e *Engine) execute(ctx context.Context, dryRun bool, cfg *AutomationConfig, liveEffective bool, cand candidate, tracker *risk.Tracker, result *TickResult) {
	sig := cand.sig

	if !sig.Plan.Valid() {
		e.skip(result, sig.Symbol, sig.StrategyID, "trade plan missing usable levels")
		return
	}

	quantity := cfg.OrderQuantity
	notional := sig.Plan.Entry * quantity

	var contract *positions.OptionContract
	var optionSymbol string
	if cfg.Instrument == "OPTION" {
		if e.selector == nil {
			e.skip(result, sig.Symbol, sig.StrategyID, "option instrument configured but no contract selector available")
			return
		}
		c, sym, err := e.selector.Select(ctx, sig.Symbol, sig.Action, cfg.Options)
		if err != nil {
			e.skip(result, sig.Symbol, sig.StrategyID, fmt.Sprintf("contract selection failed: %v", err))
			return
		}
		contract = c
		optionSymbol = sym
		quantity = float64(cfg.Options.Contracts)

		mid, err := e.quotes.GetOptionMid(ctx, c.Symbol, c.Expiration, c.Strike, c.OptionType)
		if err != nil || mid == nil {
			e.skip(result, sig.Symbol, sig.StrategyID, "no option quote available")
			return
		}
		// Option premium trades 100 shares per contract.
		notional = *mid * 100 * quantity

		// Re-express the plan in premium terms so the lifecycle sweep
		// can compare option mids against these levels directly. A
		// bought option is long premium whichever way the underlying
		// signal points, so stop sits below the entry mid and target
		// above it, offset by the plan's relative distances.
		riskFrac := math.Abs(sig.Plan.Entry-sig.Plan.Stop) / sig.Plan.Entry
		rewardFrac := math.Abs(sig.Plan.Target-sig.Plan.Entry) / sig.Plan.Entry
		sig.Plan = signal.TradePlan{
			Entry:  *mid,
			Stop:   *mid * (1 - riskFrac),
			Target: *mid * (1 + rewardFrac),
		}
		cand.sig = sig
	}

	// Caps are re-checked immediately before each execution; earlier
	// executions in this cycle may have consumed capacity.
	if ok, reason := tracker.CheckExecution(sig.Symbol, notional); !ok {
		e.skip(result, sig.Symbol, sig.StrategyID, reason)
		return
	}

	actionType := ActionTrackPaper
	var brokerInfo positions.BrokerInfo

	if liveEffective {
		actionType = ActionPlaceLiveOrder
		if !dryRun {
			side := broker.SideBuy
			if sig.Action == signal.Sell {
				side = broker.SideSell
			}
			var res broker.OrderResult
			if contract != nil {
				res = e.gateway.PlaceOptionOrder(ctx, optionSymbol, int(quantity), side)
			} else {
				res = e.gateway.PlaceEquityOrder(ctx, sig.Symbol, quantity, side)
			}
			if !res.OK {
				e.skip(result, sig.Symbol, sig.StrategyID, fmt.Sprintf("broker rejected order: %s", res.Error))
				return
			}
			brokerInfo.EntryOrderID = res.OrderID
		}
	}

	if !dryRun {
		pos := e.buildPosition(cfg, cand, quantity, liveEffective, contract, brokerInfo)
		if err := e.store.CreatePosition(ctx, pos); err != nil {
			e.skip(result, sig.Symbol, sig.StrategyID, fmt.Sprintf("store write failed: %v", err))
			return
		}
		if e.bus != nil {
			e.bus.PublishPositionOpened(sig.Symbol, sig.StrategyID, liveEffective, sig.Plan.Entry, quantity)
		}
	}

	result.Actions = append(result.Actions, Action{
		Type:       actionType,
		Symbol:     sig.Symbol,
		StrategyID: sig.StrategyID,
		Confidence: sig.Confidence,
		Price:      sig.Plan.Entry,
		At:         e.now(),
	})
	result.Meta.Executed++
	tracker.RecordExecution(sig.Symbol)

	e.logger.Info().
		Str("symbol", sig.Symbol).
		Str("strategy", sig.StrategyID).
		Float64("confidence", sig.Confidence).
		Bool("live", liveEffective).
		Bool("dry_run", dryRun).
		Msg("Signal executed")
}

func (e *Engine) buildPosition(cfg *AutomationConfig, cand candidate, quantity float64, live bool, contract *positions.OptionContract, brokerInfo positions.BrokerInfo) *positions.Position {
	sig := cand.sig
	now := e.now()

	side := positions.SideLong
	if sig.Action == signal.Sell {
		side = positions.SideShort
	}
	instrument := positions.InstrumentEquity
	if contract != nil {
		// Bought options are long premium even on SELL signals; the
		// bearish view is expressed by the put itself.
		instrument = positions.InstrumentOption
		side = positions.SideLong
	}

	pos := &positions.Position{
		ID:         uuid.New().String(),
		Symbol:     sig.Symbol,
		StrategyID: sig.StrategyID,
		Signal:     string(sig.Action),
		Side:       side,
		Instrument: instrument,
		Live:       live,
		Status:     positions.StatusActive,
		Quantity:   quantity,
		EntryPrice: sig.Plan.Entry,
		StopPrice:  sig.Plan.Stop,
		Target:     sig.Plan.Target,
		Contract:   contract,
		Broker:     brokerInfo,
		Confidence: sig.Confidence,
		Regime:     string(cand.regime),
		OpenedAt:   now,
		UpdatedAt:  now,
	}
	if cfg.Lifecycle.TimeStopDays > 0 {
		expires := now.AddDate(0, 0, cfg.Lifecycle.TimeStopDays)
		pos.ExpiresAt = &expires
	}
	return pos
}

func (e *Engine) skip(result *TickResult, symbol, strategyID, reason string) {
	result.Actions = append(result.Actions, Action{
		Type:       ActionSkip,
		Symbol:     symbol,
		StrategyID: strategyID,
		Reason:     reason,
		At:         e.now(),
	})
}

func countActions(actions []Action, t ActionType) int {
	n := 0
	for _, a := range actions {
		if a.Type == t {
			n++
		}
	}
	return n
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
