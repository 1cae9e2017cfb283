// Package signal converts setup-registry verdicts into typed trade signals
// using per-strategy preset parameters.
package signal

import (
	"fmt"
	"math"

	"trading-autopilot/internal/regime"
	"trading-autopilot/internal/setups"
)

// Action is the directional instruction carried by a signal.
type Action string

const (
	Buy     Action = "BUY"
	Sell    Action = "SELL"
	NoTrade Action = "NO_TRADE"
)

// TradePlan holds the price levels a signal proposes.
type TradePlan struct {
	Entry  float64 `json:"entry"`
	Stop   float64 `json:"stop"`
	Target float64 `json:"target"`
}

// Valid reports whether the plan carries usable numbers for its direction.
func (p TradePlan) Valid() bool {
	if p.Entry <= 0 || p.Stop <= 0 || p.Target <= 0 {
		return false
	}
	return p.Stop != p.Entry
}

// Signal is the evaluator output consumed by the tick orchestrator. It is
// never persisted on its own; executed signals are embedded in the position
// record for audit.
type Signal struct {
	Symbol       string    `json:"symbol"`
	StrategyID   string    `json:"strategy_id"`
	StrategyName string    `json:"strategy_name"`
	PresetID     string    `json:"preset_id"`
	Action       Action    `json:"action"`
	Confidence   float64   `json:"confidence"` // 0-100
	Plan         TradePlan `json:"plan"`
	Rationale    []string  `json:"rationale"`
}

// Preset scales a raw setup into executable levels.
type Preset struct {
	ID                string  `json:"id"`
	ATRStopMultiple   float64 `json:"atr_stop_multiple"`
	ATRTargetMultiple float64 `json:"atr_target_multiple"`
	StopFallbackPct   float64 `json:"stop_fallback_pct"`   // used when ATR is zero
	TargetFallbackPct float64 `json:"target_fallback_pct"` // used when ATR is zero
	ConfidenceScale   float64 `json:"confidence_scale"`    // multiplier on score-derived confidence
}

// Strategy binds a set of registry setups to the regimes it may trade in.
type Strategy struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	SetupIDs       []string        `json:"setup_ids"`
	AllowedRegimes []regime.Regime `json:"allowed_regimes"`
}

// Builtin strategies. Each trades a slice of the setup registry and declares
// the regimes it is compatible with.
var Strategies = map[string]Strategy{
	"trend-follow": {
		ID:   "trend-follow",
		Name: "Trend Following",
		SetupIDs: []string{
			"trend-continuation-bull", "trend-continuation-bear",
			"trend-pullback-bull", "trend-pullback-bear",
		},
		AllowedRegimes: []regime.Regime{regime.Trend, regime.Momentum},
	},
	"mean-revert": {
		ID:   "mean-revert",
		Name: "Range Mean Reversion",
		SetupIDs: []string{
			"range-reversion-bull", "range-reversion-bear",
			"failed-breakout", "failed-breakdown",
		},
		AllowedRegimes: []regime.Regime{regime.Range},
	},
	"breakout": {
		ID:   "breakout",
		Name: "Breakout",
		SetupIDs: []string{
			"break-retest-bull", "break-retest-bear",
			"squeeze-breakout", "squeeze-breakdown",
		},
		AllowedRegimes: []regime.Regime{regime.Trend, regime.Momentum, regime.Event},
	},
	"pattern": {
		ID:             "pattern",
		Name:           "Confirmed Pattern",
		SetupIDs:       []string{"confirmed-pattern"},
		AllowedRegimes: nil, // compatible with every regime
	},
}

// Presets available to strategies. "standard" is the fallback.
var Presets = map[string]Preset{
	"standard": {
		ID:                "standard",
		ATRStopMultiple:   1.5,
		ATRTargetMultiple: 3.0,
		StopFallbackPct:   0.01,
		TargetFallbackPct: 0.02,
		ConfidenceScale:   1.0,
	},
	"conservative": {
		ID:                "conservative",
		ATRStopMultiple:   1.0,
		ATRTargetMultiple: 2.0,
		StopFallbackPct:   0.008,
		TargetFallbackPct: 0.016,
		ConfidenceScale:   0.9,
	},
	"aggressive": {
		ID:                "aggressive",
		ATRStopMultiple:   2.0,
		ATRTargetMultiple: 5.0,
		StopFallbackPct:   0.015,
		TargetFallbackPct: 0.035,
		ConfidenceScale:   1.1,
	},
}

// RegimeAllowed is the single compatibility predicate: MIXED is implicitly
// compatible with every strategy, and a strategy with no declared regimes
// accepts all of them.
func RegimeAllowed(strategy Strategy, r regime.Regime) bool {
	if r == regime.Mixed || len(strategy.AllowedRegimes) == 0 {
		return true
	}
	for _, allowed := range strategy.AllowedRegimes {
		if allowed == r {
			return true
		}
	}
	return false
}

// Evaluate wraps one setup-registry pass for (symbol, strategy, preset).
// Unknown strategies, registry conflicts, setups outside the strategy's
// universe, and neutral verdicts all yield NO_TRADE.
func Evaluate(symbol, strategyID, presetID string, ctx setups.IndicatorContext) Signal {
	strategy, ok := Strategies[strategyID]
	if !ok {
		return noTrade(symbol, strategyID, strategyID, presetID, "unknown strategy")
	}

	preset, ok := Presets[presetID]
	if !ok {
		preset = Presets["standard"]
	}

	eval := setups.Evaluate(ctx)
	if eval.Conflicts {
		return noTrade(symbol, strategy.ID, strategy.Name, preset.ID, eval.ConflictReason)
	}
	if eval.Best == nil {
		return noTrade(symbol, strategy.ID, strategy.Name, preset.ID, "no setup passed")
	}
	if !strategyTrades(strategy, eval.Best.ID) {
		return noTrade(symbol, strategy.ID, strategy.Name, preset.ID,
			fmt.Sprintf("dominant setup %s outside strategy universe", eval.Best.ID))
	}

	var action Action
	switch eval.Best.Direction {
	case setups.Bullish:
		action = Buy
	case setups.Bearish:
		action = Sell
	default:
		return noTrade(symbol, strategy.ID, strategy.Name, preset.ID, "neutral setup direction")
	}

	plan := buildPlan(ctx, preset, action)
	if !plan.Valid() {
		return noTrade(symbol, strategy.ID, strategy.Name, preset.ID, "unusable trade plan")
	}

	confidence := math.Min(eval.Best.Score*10*preset.ConfidenceScale, 100)

	rationale := make([]string, 0, len(eval.Best.Reasons)+1)
	rationale = append(rationale, fmt.Sprintf("%s scored %.1f/10", eval.Best.Name, eval.Best.Score))
	rationale = append(rationale, eval.Best.Reasons...)

	return Signal{
		Symbol:       symbol,
		StrategyID:   strategy.ID,
		StrategyName: strategy.Name,
		PresetID:     preset.ID,
		Action:       action,
		Confidence:   confidence,
		Plan:         plan,
		Rationale:    rationale,
	}
}

func strategyTrades(strategy Strategy, setupID string) bool {
	for _, id := range strategy.SetupIDs {
		if id == setupID {
			return true
		}
	}
	return false
}

func buildPlan(ctx setups.IndicatorContext, preset Preset, action Action) TradePlan {
	entry := ctx.Price

	stopDistance := ctx.ATR * preset.ATRStopMultiple
	if stopDistance <= 0 {
		stopDistance = entry * preset.StopFallbackPct
	}
	targetDistance := ctx.ATR * preset.ATRTargetMultiple
	if targetDistance <= 0 {
		targetDistance = entry * preset.TargetFallbackPct
	}

	if action == Buy {
		return TradePlan{Entry: entry, Stop: entry - stopDistance, Target: entry + targetDistance}
	}
	return TradePlan{Entry: entry, Stop: entry + stopDistance, Target: entry - targetDistance}
}

func noTrade(symbol, strategyID, strategyName, presetID, reason string) Signal {
	return Signal{
		Symbol:       symbol,
		StrategyID:   strategyID,
		StrategyName: strategyName,
		PresetID:     presetID,
		Action:       NoTrade,
		Rationale:    []string{reason},
	}
}
