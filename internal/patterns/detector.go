// Package patterns detects candlestick reversal patterns on OHLCV
// series. Detections feed the indicator context consumed by the setup
// registry.
package patterns

import (
	"trading-autopilot/internal/indicators"
)

// PatternType represents different chart patterns
type PatternType string

const (
	MorningStar      PatternType = "morning_star"
	EveningStar      PatternType = "evening_star"
	ShootingStar     PatternType = "shooting_star"
	Hammer           PatternType = "hammer"
	BullishEngulfing PatternType = "bullish_engulfing"
	BearishEngulfing PatternType = "bearish_engulfing"
)

// Status describes how far along a detection is. A pattern on the
// latest bar is still forming; one bar of follow-through in its
// direction confirms it.
type Status string

const (
	StatusForming   Status = "FORMING"
	StatusConfirmed Status = "CONFIRMED"
)

// Detection is one pattern found in a candle series
type Detection struct {
	Type        PatternType
	Direction   string // "bullish" or "bearish"
	Status      Status
	CandleIndex int
	Confidence  float64 // 0-100
}

// Detector detects candlestick patterns
type Detector struct {
	minBodySize float64 // minimum candle body as fraction of range
}

// NewDetector creates a pattern detector
func NewDetector(minBodySize float64) *Detector {
	if minBodySize <= 0 {
		minBodySize = 0.6
	}
	return &Detector{minBodySize: minBodySize}
}

// Detect scans the series for all supported patterns
func (d *Detector) Detect(candles []indicators.Candle) []Detection {
	var found []Detection

	for i := 2; i < len(candles); i++ {
		c1, c2, c3 := candles[i-2], candles[i-1], candles[i]

		if d.isMorningStar(c1, c2, c3) {
			found = append(found, d.detection(MorningStar, "bullish", i, d.threeCandleConfidence(c1, c3), candles))
		}
		if d.isEveningStar(c1, c2, c3) {
			found = append(found, d.detection(EveningStar, "bearish", i, d.threeCandleConfidence(c1, c3), candles))
		}
	}

	for i := 1; i < len(candles); i++ {
		c := candles[i]
		prev := candles[i-1]

		if d.isBullishEngulfing(prev, c) {
			found = append(found, d.detection(BullishEngulfing, "bullish", i, 70, candles))
		}
		if d.isBearishEngulfing(prev, c) {
			found = append(found, d.detection(BearishEngulfing, "bearish", i, 70, candles))
		}
		if d.isHammer(c, &prev) {
			found = append(found, d.detection(Hammer, "bullish", i, 65, candles))
		}
		if d.isShootingStar(c, &prev) {
			found = append(found, d.detection(ShootingStar, "bearish", i, 65, candles))
		}
	}

	return found
}

// Strongest returns the highest-confidence detection within the last
// few bars, preferring confirmed patterns. Returns nil when the recent
// bars show nothing.
func (d *Detector) Strongest(candles []indicators.Candle) *Detection {
	const recentBars = 5

	all := d.Detect(candles)
	var best *Detection
	for i := range all {
		det := all[i]
		if len(candles)-1-det.CandleIndex >= recentBars {
			continue
		}
		if best == nil || rank(det) > rank(*best) {
			best = &det
		}
	}
	return best
}

func rank(det Detection) float64 {
	score := det.Confidence
	if det.Status == StatusConfirmed {
		score += 100
	}
	return score
}

func (d *Detector) detection(t PatternType, direction string, index int, confidence float64, candles []indicators.Candle) Detection {
	det := Detection{
		Type:        t,
		Direction:   direction,
		Status:      StatusForming,
		CandleIndex: index,
		Confidence:  confidence,
	}
	if index+1 < len(candles) {
		next := candles[index+1]
		bullFollow := next.Close > next.Open
		if (direction == "bullish" && bullFollow) || (direction == "bearish" && !bullFollow) {
			det.Status = StatusConfirmed
			det.Confidence = minf(det.Confidence+15, 100)
		}
	}
	return det
}

// isMorningStar checks for a bullish three-candle reversal: long red
// candle, small indecision candle, long green candle closing above the
// first candle's midpoint.
func (d *Detector) isMorningStar(c1, c2, c3 indicators.Candle) bool {
	if c1.Close >= c1.Open {
		return false
	}
	body1 := c1.Open - c1.Close
	range1 := c1.High - c1.Low
	if range1 <= 0 || body1 < range1*d.minBodySize {
		return false
	}

	body2 := absf(c2.Close - c2.Open)
	if body2 > body1*0.4 {
		return false
	}

	if c3.Close <= c3.Open {
		return false
	}
	body3 := c3.Close - c3.Open
	range3 := c3.High - c3.Low
	if range3 <= 0 || body3 < range3*d.minBodySize {
		return false
	}

	midpoint := (c1.Open + c1.Close) / 2
	return c3.Close >= midpoint
}

// isEveningStar is the bearish mirror of the morning star.
func (d *Detector) isEveningStar(c1, c2, c3 indicators.Candle) bool {
	if c1.Close <= c1.Open {
		return false
	}
	body1 := c1.Close - c1.Open
	range1 := c1.High - c1.Low
	if range1 <= 0 || body1 < range1*d.minBodySize {
		return false
	}

	body2 := absf(c2.Close - c2.Open)
	if body2 > body1*0.4 {
		return false
	}

	if c3.Close >= c3.Open {
		return false
	}
	body3 := c3.Open - c3.Close
	range3 := c3.High - c3.Low
	if range3 <= 0 || body3 < range3*d.minBodySize {
		return false
	}

	midpoint := (c1.Open + c1.Close) / 2
	return c3.Close <= midpoint
}

func (d *Detector) isBullishEngulfing(c1, c2 indicators.Candle) bool {
	if c1.Close >= c1.Open {
		return false
	}
	if c2.Close <= c2.Open {
		return false
	}
	return c2.Open <= c1.Close && c2.Close >= c1.Open
}

func (d *Detector) isBearishEngulfing(c1, c2 indicators.Candle) bool {
	if c1.Close <= c1.Open {
		return false
	}
	if c2.Close >= c2.Open {
		return false
	}
	return c2.Open >= c1.Close && c2.Close <= c1.Open
}

// isHammer wants a long lower wick after a red candle: sellers probed
// lower and were rejected.
func (d *Detector) isHammer(c indicators.Candle, prev *indicators.Candle) bool {
	body := absf(c.Close - c.Open)
	upperWick := c.High - maxf(c.Open, c.Close)
	lowerWick := minf(c.Open, c.Close) - c.Low

	if lowerWick < body*2 {
		return false
	}
	if upperWick > body*0.3 {
		return false
	}
	if prev != nil && prev.Close >= prev.Open {
		return false
	}
	return true
}

// isShootingStar is the bearish mirror of the hammer.
func (d *Detector) isShootingStar(c indicators.Candle, prev *indicators.Candle) bool {
	body := absf(c.Close - c.Open)
	upperWick := c.High - maxf(c.Open, c.Close)
	lowerWick := minf(c.Open, c.Close) - c.Low

	if upperWick < body*2 {
		return false
	}
	if lowerWick > body*0.3 {
		return false
	}
	if prev != nil && prev.Close <= prev.Open {
		return false
	}
	return true
}

// threeCandleConfidence scores a three-candle reversal, rewarding a
// third candle stronger than the first.
func (d *Detector) threeCandleConfidence(c1, c3 indicators.Candle) float64 {
	confidence := 70.0
	body1 := absf(c1.Close - c1.Open)
	body3 := absf(c3.Close - c3.Open)
	if body3 > body1*1.2 {
		confidence += 10
	}
	return confidence
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
