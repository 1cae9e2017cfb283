// Package regime classifies current market character from a candle series.
package regime

import (
	"math"

	"trading-autopilot/internal/indicators"
)

// Regime is a coarse classification of market behavior.
type Regime string

const (
	Event    Regime = "EVENT"
	Trend    Regime = "TREND"
	Range    Regime = "RANGE"
	Momentum Regime = "MOMENTUM"
	Mixed    Regime = "MIXED"
)

// MinCandles is the history floor: with fewer bars the detector always
// answers MIXED. Absence of data never blocks by itself; downstream gates
// decide what to do with an unknown regime.
const MinCandles = 60

// Classification thresholds.
const (
	eventMoveFloorPct    = 3.0   // minimum last-bar move for EVENT
	eventMoveATRScale    = 2.5   // or this many ATR-percents, whichever is larger
	eventVolumeMultiple  = 3.0   // last-bar volume vs trailing average
	trendSeparationPct   = 1.0   // EMA20/EMA50 separation marking a trend
	trendBandwidthPct    = 6.0   // bandwidth above this supports TREND
	rangeSeparationPct   = 0.5   // separation below this supports RANGE
	rangeBandwidthPct    = 4.0   // bandwidth below this supports RANGE
	momentumVolumeRatio  = 1.3   // above-average volume for MOMENTUM
	momentumBreakoutFrac = 0.995 // price within 0.5% of the 20-bar high/low
)

// Details carries the measurements behind a classification.
type Details struct {
	LastMovePercent  float64 `json:"last_move_percent"`
	VolumeRatio      float64 `json:"volume_ratio"`
	EMASeparationPct float64 `json:"ema_separation_pct"`
	BandwidthPercent float64 `json:"bandwidth_percent"`
	PrevBandwidthPct float64 `json:"prev_bandwidth_pct"`
	NearBreakout     bool    `json:"near_breakout"`
	Bars             int     `json:"bars"`
}

// Result is the detector verdict. OK is false only on an internal error;
// callers must treat that as "unknown regime", never as a hard stop.
type Result struct {
	Regime  Regime  `json:"regime"`
	Details Details `json:"details"`
	OK      bool    `json:"ok"`
}

// Detect classifies the series. Priority order, first match wins:
// EVENT > TREND > RANGE > MOMENTUM, otherwise MIXED.
func Detect(candles []indicators.Candle) Result {
	if len(candles) < MinCandles {
		return Result{Regime: Mixed, OK: true}
	}

	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]
	if prev.Close <= 0 || last.Close <= 0 {
		return Result{Regime: Mixed, OK: false}
	}

	d := Details{Bars: len(candles)}
	d.LastMovePercent = math.Abs(last.Close-prev.Close) / prev.Close * 100

	avgVolume := indicators.AverageVolume(candles, 20)
	if avgVolume > 0 {
		d.VolumeRatio = last.Volume / avgVolume
	}

	ema20 := indicators.EMA(candles, 20)
	ema50 := indicators.EMA(candles, 50)
	if ema50 > 0 {
		d.EMASeparationPct = math.Abs(ema20-ema50) / ema50 * 100
	}

	bands := indicators.Bollinger(candles, 20, 2)
	d.BandwidthPercent = bands.BandwidthPercent()
	prevBands := indicators.Bollinger(candles[:len(candles)-1], 20, 2)
	d.PrevBandwidthPct = prevBands.BandwidthPercent()

	high20 := indicators.HighestHigh(candles, 20)
	low20 := indicators.LowestLow(candles, 20)
	d.NearBreakout = (high20 > 0 && last.Close >= high20*momentumBreakoutFrac) ||
		(low20 > 0 && last.Close <= low20*(2-momentumBreakoutFrac))

	// EVENT: an outsized single-bar move on a volume spike.
	atrPct := 0.0
	if atr := indicators.ATR(candles, 14); atr > 0 {
		atrPct = atr / last.Close * 100
	}
	eventThreshold := math.Max(eventMoveFloorPct, atrPct*eventMoveATRScale)
	if d.LastMovePercent >= eventThreshold && d.VolumeRatio >= eventVolumeMultiple {
		return Result{Regime: Event, Details: d, OK: true}
	}

	// TREND: moving averages separated and bands wide.
	if d.EMASeparationPct >= trendSeparationPct && d.BandwidthPercent >= trendBandwidthPct {
		return Result{Regime: Trend, Details: d, OK: true}
	}

	// RANGE: both measures tight.
	if d.EMASeparationPct <= rangeSeparationPct && d.BandwidthPercent <= rangeBandwidthPct {
		return Result{Regime: Range, Details: d, OK: true}
	}

	// MOMENTUM: expansion or a breakout test, with above-average volume.
	expanding := d.BandwidthPercent > d.PrevBandwidthPct
	if (expanding || d.NearBreakout) && d.VolumeRatio >= momentumVolumeRatio {
		return Result{Regime: Momentum, Details: d, OK: true}
	}

	return Result{Regime: Mixed, Details: d, OK: true}
}
