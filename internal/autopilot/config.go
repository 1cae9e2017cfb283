package autopilot

import (
	"os"
	"time"
)

// Mode controls how the autopilot acts on qualifying signals.
type Mode string

const (
	ModeOff         Mode = "OFF"
	ModePaper       Mode = "PAPER"
	ModeLive        Mode = "LIVE"
	ModeLiveConfirm Mode = "LIVE_CONFIRM"
)

// LiveTradingEnvVar must be set to "true" in the environment before
// LIVE mode can place real orders. The config flag alone is never
// enough.
const LiveTradingEnvVar = "AUTOPILOT_ALLOW_LIVE"

// RiskCaps bounds how much exposure the autopilot may take on.
type RiskCaps struct {
	MaxOpenPositions    int     `json:"maxOpenPositions"`
	MaxOpenPerSymbol    int     `json:"maxOpenPerSymbol"`
	MaxTradesPerDay     int     `json:"maxTradesPerDay"`
	MaxNotionalPerTrade float64 `json:"maxNotionalPerTrade"`
}

// TimeWindow is a daily no-trade span, minutes since midnight in the
// venue's local time. Start is inclusive, End exclusive.
type TimeWindow struct {
	StartMinute int    `json:"startMinute"`
	EndMinute   int    `json:"endMinute"`
	Label       string `json:"label,omitempty"`
}

// OptionSelection configures contract choice when executing options.
type OptionSelection struct {
	DaysToExpirationMin int     `json:"daysToExpirationMin"`
	DaysToExpirationMax int     `json:"daysToExpirationMax"`
	DeltaTarget         float64 `json:"deltaTarget"`
	Contracts           int     `json:"contracts"`
}

// LifecycleConfig controls the position sweep.
type LifecycleConfig struct {
	Enabled          bool    `json:"enabled"`
	TimeStopDays     int     `json:"timeStopDays"`
	TrailAfterR      float64 `json:"trailAfterR"`
	TrailLockInR     float64 `json:"trailLockInR"`
	ExecuteLiveExits bool    `json:"executeLiveExits"`
}

// KillSwitch halts new entries without touching open positions.
type KillSwitch struct {
	Halted bool   `json:"halted"`
	Reason string `json:"reason,omitempty"`
}

// AutomationConfig is the full autopilot configuration, loaded from the
// store at the start of every tick.
type AutomationConfig struct {
	Enabled                bool               `json:"enabled"`
	Mode                   Mode               `json:"mode"`
	PresetID               string             `json:"presetId"`
	MinConfidence          float64            `json:"minConfidence"`
	StrategyMinConfidence  map[string]float64 `json:"strategyMinConfidence,omitempty"`
	Symbols                []string           `json:"symbols"`
	Strategies             []string           `json:"strategies"`
	OrderQuantity          float64            `json:"orderQuantity"`
	MaxNewPositionsPerTick int                `json:"maxNewPositionsPerTick"`
	CooldownMinutes        int                `json:"cooldownMinutes"`
	RegimeGateEnabled      bool               `json:"regimeGateEnabled"`
	DedupWindowMinutes     int                `json:"dedupWindowMinutes"`
	DedupMinConfDelta      float64            `json:"dedupMinConfDelta"`
	Risk                   RiskCaps           `json:"risk"`
	RequireMarketHours     bool               `json:"requireMarketHours"`
	NoTradeWindows         []TimeWindow       `json:"noTradeWindows,omitempty"`
	LiveRequireAllowlist   bool               `json:"liveRequireAllowlist"`
	LiveAllowlist          []string           `json:"liveAllowlist,omitempty"`
	LiveArmExpiresAt       *time.Time         `json:"liveArmExpiresAt,omitempty"`
	Instrument             string             `json:"instrument"` // STOCK or OPTION
	Options                OptionSelection    `json:"options"`
	Lifecycle              LifecycleConfig    `json:"lifecycle"`
	Kill                   KillSwitch         `json:"kill"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// DefaultConfig returns a safe starting configuration: paper mode,
// conservative caps, lifecycle on.
func DefaultConfig() AutomationConfig {
	return AutomationConfig{
		Enabled:                false,
		Mode:                   ModePaper,
		PresetID:               "standard",
		MinConfidence:          65,
		Symbols:                []string{},
		Strategies:             []string{"trend-follow", "mean-revert", "breakout", "pattern"},
		OrderQuantity:          1,
		MaxNewPositionsPerTick: 2,
		CooldownMinutes:        60,
		RegimeGateEnabled:      true,
		DedupWindowMinutes:     90,
		DedupMinConfDelta:      10,
		Risk: RiskCaps{
			MaxOpenPositions:    10,
			MaxOpenPerSymbol:    2,
			MaxTradesPerDay:     5,
			MaxNotionalPerTrade: 5000,
		},
		RequireMarketHours:   true,
		LiveRequireAllowlist: true,
		Instrument:           "STOCK",
		Options: OptionSelection{
			DaysToExpirationMin: 21,
			DaysToExpirationMax: 45,
			DeltaTarget:         0.5,
			Contracts:           1,
		},
		Lifecycle: LifecycleConfig{
			Enabled:          true,
			TimeStopDays:     10,
			TrailAfterR:      1.0,
			TrailLockInR:     0.5,
			ExecuteLiveExits: false,
		},
	}
}

// Normalize clamps every field into its valid range so a partially
// written or hand-edited config can never produce nonsense gates.
func (c *AutomationConfig) Normalize() {
	switch c.Mode {
	case ModeOff, ModePaper, ModeLive, ModeLiveConfirm:
	default:
		c.Mode = ModeOff
	}
	if c.PresetID == "" {
		c.PresetID = "standard"
	}
	c.MinConfidence = clamp(c.MinConfidence, 0, 100)
	for k, v := range c.StrategyMinConfidence {
		c.StrategyMinConfidence[k] = clamp(v, 0, 100)
	}
	if c.OrderQuantity <= 0 {
		c.OrderQuantity = 1
	}
	if c.MaxNewPositionsPerTick < 0 {
		c.MaxNewPositionsPerTick = 0
	}
	if c.CooldownMinutes < 0 {
		c.CooldownMinutes = 0
	}
	if c.DedupWindowMinutes < 0 {
		c.DedupWindowMinutes = 0
	}
	c.DedupMinConfDelta = clamp(c.DedupMinConfDelta, 0, 100)
	if c.Risk.MaxOpenPositions < 0 {
		c.Risk.MaxOpenPositions = 0
	}
	if c.Risk.MaxOpenPerSymbol < 0 {
		c.Risk.MaxOpenPerSymbol = 0
	}
	if c.Risk.MaxTradesPerDay < 0 {
		c.Risk.MaxTradesPerDay = 0
	}
	if c.Risk.MaxNotionalPerTrade < 0 {
		c.Risk.MaxNotionalPerTrade = 0
	}
	if c.Instrument != "OPTION" {
		c.Instrument = "STOCK"
	}
	if c.Options.Contracts <= 0 {
		c.Options.Contracts = 1
	}
	if c.Lifecycle.TimeStopDays < 0 {
		c.Lifecycle.TimeStopDays = 0
	}
	if c.Lifecycle.TrailAfterR < 0 {
		c.Lifecycle.TrailAfterR = 0
	}
	if c.Lifecycle.TrailLockInR < 0 {
		c.Lifecycle.TrailLockInR = 0
	}
	if c.Lifecycle.TrailLockInR > c.Lifecycle.TrailAfterR && c.Lifecycle.TrailAfterR > 0 {
		c.Lifecycle.TrailLockInR = c.Lifecycle.TrailAfterR
	}
	windows := c.NoTradeWindows[:0]
	for _, w := range c.NoTradeWindows {
		if w.StartMinute < 0 || w.EndMinute > 24*60 || w.StartMinute >= w.EndMinute {
			continue
		}
		windows = append(windows, w)
	}
	c.NoTradeWindows = windows
}

// LiveArmed reports whether the live arm window is currently open.
func (c *AutomationConfig) LiveArmed(now time.Time) bool {
	return c.LiveArmExpiresAt != nil && now.Before(*c.LiveArmExpiresAt)
}

// LiveEffective reports whether live orders may actually be placed:
// the mode must be LIVE, the environment allow-flag must be set, and
// the arm window must be open. Any missing piece fails closed.
func (c *AutomationConfig) LiveEffective(now time.Time) bool {
	if c.Mode != ModeLive {
		return false
	}
	if os.Getenv(LiveTradingEnvVar) != "true" {
		return false
	}
	return c.LiveArmed(now)
}

// EffectiveMinConfidence returns the per-strategy override when one is
// configured, otherwise the global floor.
func (c *AutomationConfig) EffectiveMinConfidence(strategyID string) float64 {
	if v, ok := c.StrategyMinConfidence[strategyID]; ok {
		return v
	}
	return c.MinConfidence
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
