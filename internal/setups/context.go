package setups

import (
	"fmt"

	"trading-autopilot/internal/indicators"
	"trading-autopilot/internal/patterns"
)

// minContextBars is the history floor for a usable snapshot. SMA200 needs
// the most bars; shorter history produces a partially zeroed context, which
// the evaluators tolerate but score poorly.
const minContextBars = 21

// BuildContext assembles an IndicatorContext from a candle series. The
// snapshot carries everything the registry needs so each evaluator stays a
// pure function of it.
func BuildContext(symbol string, candles []indicators.Candle) (IndicatorContext, error) {
	if len(candles) < minContextBars {
		return IndicatorContext{}, fmt.Errorf("need at least %d candles for %s, got %d", minContextBars, symbol, len(candles))
	}

	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]

	atr := indicators.ATR(candles, 14)
	bands := indicators.Bollinger(candles, 20, 2)
	support, resistance := indicators.SupportResistance(candles, 20)

	atrPercent := 0.0
	if last.Close > 0 {
		atrPercent = atr / last.Close * 100
	}

	return IndicatorContext{
		Symbol:           symbol,
		Price:            last.Close,
		ATR:              atr,
		ATRPercent:       atrPercent,
		RSI14:            indicators.RSI(candles, 14),
		MACDHistogram:    indicators.MACDHistogram(candles, 12, 26, 9),
		SMA20:            indicators.SMA(candles, 20),
		SMA50:            indicators.SMA(candles, 50),
		SMA200:           indicators.SMA(candles, 200),
		BollUpper:        bands.Upper,
		BollMiddle:       bands.Middle,
		BollLower:        bands.Lower,
		BandwidthPercent: bands.BandwidthPercent(),
		Support:          support,
		Resistance:       resistance,
		LastClose:        last.Close,
		PrevClose:        prev.Close,
		High20:           indicators.HighestHigh(candles, swingLookback),
		Low20:            indicators.LowestLow(candles, swingLookback),
		Pattern:          summarizePattern(candles),
	}, nil
}

// summarizePattern folds the strongest recent candlestick detection into
// the snapshot. No recent pattern leaves the summary zeroed, which every
// evaluator treats as "no pattern".
func summarizePattern(candles []indicators.Candle) PatternSummary {
	det := patterns.NewDetector(0).Strongest(candles)
	if det == nil {
		return PatternSummary{}
	}

	direction := Neutral
	switch det.Direction {
	case "bullish":
		direction = Bullish
	case "bearish":
		direction = Bearish
	}

	return PatternSummary{
		Name:       string(det.Type),
		Direction:  direction,
		Status:     string(det.Status),
		Confidence: det.Confidence,
	}
}
