package setups

import (
	"fmt"
	"math"
)

// Threshold constants shared across evaluators.
const (
	conflictScoreMin = 6.0

	squeezeBandwidthMaxPct = 4.0 // bandwidth below this marks a volatility squeeze
	swingLookback          = 20  // bars behind High20/Low20

	retestToleranceATR   = 0.5   // retest proximity as ATR multiple
	retestFallbackPct    = 0.003 // proximity fallback when ATR is zero
	pullbackToleranceATR = 0.75
	pullbackFallbackPct  = 0.005

	patternConfidenceMin = 60.0
)

// tolerance returns an absolute price distance scaled by ATR, with a
// percentage-of-price fallback so a zero ATR never zeroes the band.
func tolerance(ctx IndicatorContext, atrMultiple, fallbackPct float64) float64 {
	if ctx.ATR > 0 {
		return ctx.ATR * atrMultiple
	}
	return math.Abs(ctx.Price) * fallbackPct
}

// rubric accumulates a weighted 0-10 score and human-readable reasons.
// Reasons are recorded for both met and missed checks.
type rubric struct {
	score   float64
	reasons []string
}

func (r *rubric) check(points float64, met bool, metReason, missReason string) {
	if met {
		r.score += points
		r.reasons = append(r.reasons, metReason)
	} else {
		r.reasons = append(r.reasons, missReason)
	}
}

func (r *rubric) total() float64 {
	if r.score > 10 {
		return 10
	}
	return r.score
}

type evaluator struct {
	id   string
	name string
	eval func(ctx IndicatorContext) SetupResult
}

// allEvaluators is the fixed registry. Every evaluator runs unconditionally
// on every snapshot; order only matters for deterministic tie-breaking.
var allEvaluators = []evaluator{
	{"trend-continuation-bull", "Trend Continuation (Bull)", trendContinuationBull},
	{"trend-continuation-bear", "Trend Continuation (Bear)", trendContinuationBear},
	{"trend-pullback-bull", "Trend Pullback (Bull)", trendPullbackBull},
	{"trend-pullback-bear", "Trend Pullback (Bear)", trendPullbackBear},
	{"range-reversion-bull", "Range Mean Reversion (Bull)", rangeReversionBull},
	{"range-reversion-bear", "Range Mean Reversion (Bear)", rangeReversionBear},
	{"break-retest-bull", "Break and Retest (Bull)", breakRetestBull},
	{"break-retest-bear", "Break and Retest (Bear)", breakRetestBear},
	{"failed-breakout", "Failed Breakout", failedBreakout},
	{"failed-breakdown", "Failed Breakdown", failedBreakdown},
	{"squeeze-breakout", "Squeeze Breakout", squeezeBreakout},
	{"squeeze-breakdown", "Squeeze Breakdown", squeezeBreakdown},
	{"confirmed-pattern", "Confirmed Pattern", confirmedPattern},
}

func trendContinuationBull(ctx IndicatorContext) SetupResult {
	stacked := ctx.SMA20 > ctx.SMA50 && ctx.SMA50 > ctx.SMA200 && ctx.SMA200 > 0
	aboveFast := ctx.Price > ctx.SMA20
	rsiHealthy := ctx.RSI14 >= 45 && ctx.RSI14 <= 70
	macdPositive := ctx.MACDHistogram > 0

	var r rubric
	r.check(2.5, stacked,
		"moving averages stacked bullish (20 > 50 > 200)",
		"moving averages not stacked bullish")
	r.check(2.0, aboveFast,
		fmt.Sprintf("price %.2f above SMA20 %.2f", ctx.Price, ctx.SMA20),
		"price below SMA20")
	r.check(1.5, macdPositive,
		"MACD histogram positive",
		"MACD histogram not positive")
	r.check(1.5, rsiHealthy,
		fmt.Sprintf("RSI %.1f in continuation zone 45-70", ctx.RSI14),
		fmt.Sprintf("RSI %.1f outside continuation zone", ctx.RSI14))
	r.check(1.5, ctx.LastClose > ctx.PrevClose,
		"closing strength over prior bar",
		"no closing strength over prior bar")
	r.check(1.0, ctx.Pattern.Status == "CONFIRMED" && ctx.Pattern.Direction == Bullish,
		fmt.Sprintf("bullish pattern %s confirmed", ctx.Pattern.Name),
		"no confirmed bullish pattern")

	return SetupResult{
		ID:           "trend-continuation-bull",
		Name:         "Trend Continuation (Bull)",
		Direction:    Bullish,
		Score:        r.total(),
		Passed:       stacked && aboveFast && rsiHealthy && macdPositive,
		Reasons:      r.reasons,
		Entry:        "buy at market while price holds above SMA20",
		Stop:         fmt.Sprintf("below SMA20 minus %.2f", tolerance(ctx, 1.0, 0.01)),
		Target:       "prior swing high, then measured trend extension",
		Invalidation: "daily close below SMA50",
		Evidence:     []string{"sma20", "sma50", "sma200", "rsi14", "macd_histogram", "last_close"},
	}
}

func trendContinuationBear(ctx IndicatorContext) SetupResult {
	stacked := ctx.SMA20 < ctx.SMA50 && ctx.SMA50 < ctx.SMA200 && ctx.SMA20 > 0
	belowFast := ctx.Price < ctx.SMA20
	rsiHealthy := ctx.RSI14 >= 30 && ctx.RSI14 <= 55
	macdNegative := ctx.MACDHistogram < 0

	var r rubric
	r.check(2.5, stacked,
		"moving averages stacked bearish (20 < 50 < 200)",
		"moving averages not stacked bearish")
	r.check(2.0, belowFast,
		fmt.Sprintf("price %.2f below SMA20 %.2f", ctx.Price, ctx.SMA20),
		"price above SMA20")
	r.check(1.5, macdNegative,
		"MACD histogram negative",
		"MACD histogram not negative")
	r.check(1.5, rsiHealthy,
		fmt.Sprintf("RSI %.1f in continuation zone 30-55", ctx.RSI14),
		fmt.Sprintf("RSI %.1f outside continuation zone", ctx.RSI14))
	r.check(1.5, ctx.LastClose < ctx.PrevClose,
		"closing weakness under prior bar",
		"no closing weakness under prior bar")
	r.check(1.0, ctx.Pattern.Status == "CONFIRMED" && ctx.Pattern.Direction == Bearish,
		fmt.Sprintf("bearish pattern %s confirmed", ctx.Pattern.Name),
		"no confirmed bearish pattern")

	return SetupResult{
		ID:           "trend-continuation-bear",
		Name:         "Trend Continuation (Bear)",
		Direction:    Bearish,
		Score:        r.total(),
		Passed:       stacked && belowFast && rsiHealthy && macdNegative,
		Reasons:      r.reasons,
		Entry:        "sell at market while price holds below SMA20",
		Stop:         fmt.Sprintf("above SMA20 plus %.2f", tolerance(ctx, 1.0, 0.01)),
		Target:       "prior swing low, then measured trend extension",
		Invalidation: "daily close above SMA50",
		Evidence:     []string{"sma20", "sma50", "sma200", "rsi14", "macd_histogram", "last_close"},
	}
}

func trendPullbackBull(ctx IndicatorContext) SetupResult {
	tol := tolerance(ctx, pullbackToleranceATR, pullbackFallbackPct)
	uptrend := ctx.SMA50 > ctx.SMA200 && ctx.SMA200 > 0 && ctx.Price > ctx.SMA50
	nearFastMA := math.Abs(ctx.Price-ctx.SMA20) <= tol || math.Abs(ctx.Price-ctx.SMA50) <= tol
	rsiReset := ctx.RSI14 >= 35 && ctx.RSI14 <= 55
	aboveSupport := ctx.Support == 0 || ctx.Price > ctx.Support

	var r rubric
	r.check(2.5, uptrend,
		"primary uptrend intact (price > SMA50 > SMA200)",
		"primary uptrend not intact")
	r.check(2.5, nearFastMA,
		fmt.Sprintf("pullback into moving-average zone within %.2f", tol),
		"price not near SMA20/SMA50 pullback zone")
	r.check(2.0, rsiReset,
		fmt.Sprintf("RSI %.1f reset into 35-55", ctx.RSI14),
		fmt.Sprintf("RSI %.1f not reset", ctx.RSI14))
	r.check(1.5, aboveSupport,
		"price holding above support",
		"price lost support")
	r.check(1.5, ctx.LastClose > ctx.PrevClose,
		"bullish reaction bar off the pullback",
		"no bullish reaction bar yet")

	return SetupResult{
		ID:           "trend-pullback-bull",
		Name:         "Trend Pullback (Bull)",
		Direction:    Bullish,
		Score:        r.total(),
		Passed:       uptrend && nearFastMA && rsiReset && aboveSupport,
		Reasons:      r.reasons,
		Entry:        "buy the reclaim of SMA20",
		Stop:         fmt.Sprintf("below pullback low minus %.2f", tol),
		Target:       "retest of the prior 20-bar high",
		Invalidation: "close below SMA50",
		Evidence:     []string{"sma20", "sma50", "sma200", "rsi14", "support", "atr"},
	}
}

func trendPullbackBear(ctx IndicatorContext) SetupResult {
	tol := tolerance(ctx, pullbackToleranceATR, pullbackFallbackPct)
	downtrend := ctx.SMA50 < ctx.SMA200 && ctx.SMA50 > 0 && ctx.Price < ctx.SMA50
	nearFastMA := math.Abs(ctx.Price-ctx.SMA20) <= tol || math.Abs(ctx.Price-ctx.SMA50) <= tol
	rsiReset := ctx.RSI14 >= 45 && ctx.RSI14 <= 65
	belowResistance := ctx.Resistance == 0 || ctx.Price < ctx.Resistance

	var r rubric
	r.check(2.5, downtrend,
		"primary downtrend intact (price < SMA50 < SMA200)",
		"primary downtrend not intact")
	r.check(2.5, nearFastMA,
		fmt.Sprintf("rally into moving-average zone within %.2f", tol),
		"price not near SMA20/SMA50 rally zone")
	r.check(2.0, rsiReset,
		fmt.Sprintf("RSI %.1f reset into 45-65", ctx.RSI14),
		fmt.Sprintf("RSI %.1f not reset", ctx.RSI14))
	r.check(1.5, belowResistance,
		"price rejected below resistance",
		"price above resistance")
	r.check(1.5, ctx.LastClose < ctx.PrevClose,
		"bearish reaction bar off the rally",
		"no bearish reaction bar yet")

	return SetupResult{
		ID:           "trend-pullback-bear",
		Name:         "Trend Pullback (Bear)",
		Direction:    Bearish,
		Score:        r.total(),
		Passed:       downtrend && nearFastMA && rsiReset && belowResistance,
		Reasons:      r.reasons,
		Entry:        "sell the rejection of SMA20",
		Stop:         fmt.Sprintf("above rally high plus %.2f", tol),
		Target:       "retest of the prior 20-bar low",
		Invalidation: "close above SMA50",
		Evidence:     []string{"sma20", "sma50", "sma200", "rsi14", "resistance", "atr"},
	}
}

func rangeReversionBull(ctx IndicatorContext) SetupResult {
	tol := tolerance(ctx, 0.25, 0.002)
	atLowerBand := ctx.BollLower > 0 && ctx.Price <= ctx.BollLower+tol
	oversold := ctx.RSI14 < 35
	flatTrend := ctx.SMA50 > 0 && math.Abs(ctx.SMA20-ctx.SMA50)/ctx.SMA50*100 < 1.0
	roomToMiddle := ctx.BollMiddle > ctx.Price

	var r rubric
	r.check(3.0, atLowerBand,
		fmt.Sprintf("price %.2f at lower Bollinger band %.2f", ctx.Price, ctx.BollLower),
		"price not at lower band")
	r.check(2.5, oversold,
		fmt.Sprintf("RSI %.1f oversold", ctx.RSI14),
		fmt.Sprintf("RSI %.1f not oversold", ctx.RSI14))
	r.check(2.0, ctx.Support > 0 && math.Abs(ctx.Price-ctx.Support) <= tolerance(ctx, 1.0, 0.01),
		"range support nearby",
		"no range support nearby")
	r.check(1.5, flatTrend,
		"SMA20/SMA50 flat, range conditions",
		"moving averages diverging, not a range")
	r.check(1.0, roomToMiddle,
		"room back to the middle band",
		"no room back to the middle band")

	return SetupResult{
		ID:           "range-reversion-bull",
		Name:         "Range Mean Reversion (Bull)",
		Direction:    Bullish,
		Score:        r.total(),
		Passed:       atLowerBand && oversold && flatTrend,
		Reasons:      r.reasons,
		Entry:        "buy the lower-band tag",
		Stop:         fmt.Sprintf("below range support minus %.2f", tol),
		Target:       "middle Bollinger band",
		Invalidation: "close below range support",
		Evidence:     []string{"boll_lower", "boll_middle", "rsi14", "support", "sma20", "sma50"},
	}
}

func rangeReversionBear(ctx IndicatorContext) SetupResult {
	tol := tolerance(ctx, 0.25, 0.002)
	atUpperBand := ctx.BollUpper > 0 && ctx.Price >= ctx.BollUpper-tol
	overbought := ctx.RSI14 > 65
	flatTrend := ctx.SMA50 > 0 && math.Abs(ctx.SMA20-ctx.SMA50)/ctx.SMA50*100 < 1.0
	roomToMiddle := ctx.BollMiddle < ctx.Price && ctx.BollMiddle > 0

	var r rubric
	r.check(3.0, atUpperBand,
		fmt.Sprintf("price %.2f at upper Bollinger band %.2f", ctx.Price, ctx.BollUpper),
		"price not at upper band")
	r.check(2.5, overbought,
		fmt.Sprintf("RSI %.1f overbought", ctx.RSI14),
		fmt.Sprintf("RSI %.1f not overbought", ctx.RSI14))
	r.check(2.0, ctx.Resistance > 0 && math.Abs(ctx.Price-ctx.Resistance) <= tolerance(ctx, 1.0, 0.01),
		"range resistance nearby",
		"no range resistance nearby")
	r.check(1.5, flatTrend,
		"SMA20/SMA50 flat, range conditions",
		"moving averages diverging, not a range")
	r.check(1.0, roomToMiddle,
		"room back to the middle band",
		"no room back to the middle band")

	return SetupResult{
		ID:           "range-reversion-bear",
		Name:         "Range Mean Reversion (Bear)",
		Direction:    Bearish,
		Score:        r.total(),
		Passed:       atUpperBand && overbought && flatTrend,
		Reasons:      r.reasons,
		Entry:        "sell the upper-band tag",
		Stop:         fmt.Sprintf("above range resistance plus %.2f", tol),
		Target:       "middle Bollinger band",
		Invalidation: "close above range resistance",
		Evidence:     []string{"boll_upper", "boll_middle", "rsi14", "resistance", "sma20", "sma50"},
	}
}

func breakRetestBull(ctx IndicatorContext) SetupResult {
	level := ctx.High20
	tol := tolerance(ctx, retestToleranceATR, retestFallbackPct)
	brokeOut := level > 0 && ctx.LastClose > level
	retesting := brokeOut && ctx.Price-level <= tol && ctx.Price >= level-tol
	momentum := ctx.MACDHistogram > 0

	var r rubric
	r.check(3.0, brokeOut,
		fmt.Sprintf("close %.2f holding above 20-bar swing high %.2f", ctx.LastClose, level),
		"no breakout above the 20-bar swing high")
	r.check(2.5, retesting,
		fmt.Sprintf("price retesting breakout level within %.2f", tol),
		"price not retesting the breakout level")
	r.check(2.0, ctx.SMA20 > ctx.SMA50,
		"fast trend aligned with the breakout",
		"fast trend not aligned")
	r.check(1.5, ctx.RSI14 > 50,
		fmt.Sprintf("RSI %.1f above midline", ctx.RSI14),
		fmt.Sprintf("RSI %.1f below midline", ctx.RSI14))
	r.check(1.0, momentum,
		"MACD histogram positive",
		"MACD histogram not positive")

	return SetupResult{
		ID:           "break-retest-bull",
		Name:         "Break and Retest (Bull)",
		Direction:    Bullish,
		Score:        r.total(),
		Passed:       brokeOut && retesting && momentum,
		Reasons:      r.reasons,
		Entry:        fmt.Sprintf("buy the hold of %.2f on the retest", level),
		Stop:         fmt.Sprintf("below %.2f", level-tol),
		Target:       "measured move above the breakout level",
		Invalidation: fmt.Sprintf("close back below %.2f", level),
		Evidence:     []string{"high_20", "last_close", "macd_histogram", "rsi14", "atr"},
	}
}

func breakRetestBear(ctx IndicatorContext) SetupResult {
	level := ctx.Low20
	tol := tolerance(ctx, retestToleranceATR, retestFallbackPct)
	brokeDown := level > 0 && ctx.LastClose < level
	retesting := brokeDown && level-ctx.Price <= tol && ctx.Price <= level+tol
	momentum := ctx.MACDHistogram < 0

	var r rubric
	r.check(3.0, brokeDown,
		fmt.Sprintf("close %.2f holding below 20-bar swing low %.2f", ctx.LastClose, level),
		"no breakdown below the 20-bar swing low")
	r.check(2.5, retesting,
		fmt.Sprintf("price retesting breakdown level within %.2f", tol),
		"price not retesting the breakdown level")
	r.check(2.0, ctx.SMA20 < ctx.SMA50,
		"fast trend aligned with the breakdown",
		"fast trend not aligned")
	r.check(1.5, ctx.RSI14 < 50,
		fmt.Sprintf("RSI %.1f below midline", ctx.RSI14),
		fmt.Sprintf("RSI %.1f above midline", ctx.RSI14))
	r.check(1.0, momentum,
		"MACD histogram negative",
		"MACD histogram not negative")

	return SetupResult{
		ID:           "break-retest-bear",
		Name:         "Break and Retest (Bear)",
		Direction:    Bearish,
		Score:        r.total(),
		Passed:       brokeDown && retesting && momentum,
		Reasons:      r.reasons,
		Entry:        fmt.Sprintf("sell the rejection of %.2f on the retest", level),
		Stop:         fmt.Sprintf("above %.2f", level+tol),
		Target:       "measured move below the breakdown level",
		Invalidation: fmt.Sprintf("close back above %.2f", level),
		Evidence:     []string{"low_20", "last_close", "macd_histogram", "rsi14", "atr"},
	}
}

func failedBreakout(ctx IndicatorContext) SetupResult {
	level := ctx.High20
	poked := level > 0 && ctx.PrevClose > level
	rejected := poked && ctx.LastClose < level
	rejectionDepth := 0.0
	if rejected {
		rejectionDepth = level - ctx.LastClose
	}
	deepRejection := rejected && rejectionDepth >= tolerance(ctx, 0.5, 0.003)

	var r rubric
	r.check(3.0, rejected,
		fmt.Sprintf("breakout above %.2f failed, close back below", level),
		"no failed breakout at the 20-bar high")
	r.check(2.0, deepRejection,
		fmt.Sprintf("rejection depth %.2f is meaningful", rejectionDepth),
		"rejection depth shallow")
	r.check(2.0, ctx.MACDHistogram < 0,
		"MACD histogram rolling over",
		"MACD histogram not rolling over")
	r.check(1.5, ctx.RSI14 < 50,
		fmt.Sprintf("RSI %.1f lost the midline", ctx.RSI14),
		fmt.Sprintf("RSI %.1f still above midline", ctx.RSI14))
	r.check(1.5, ctx.LastClose < ctx.PrevClose,
		"closing weakness confirms the trap",
		"no closing weakness")

	return SetupResult{
		ID:           "failed-breakout",
		Name:         "Failed Breakout",
		Direction:    Bearish,
		Score:        r.total(),
		Passed:       rejected && deepRejection,
		Reasons:      r.reasons,
		Entry:        fmt.Sprintf("sell the failure back under %.2f", level),
		Stop:         "above the false-break high",
		Target:       "opposite side of the recent range",
		Invalidation: fmt.Sprintf("reclaim and hold above %.2f", level),
		Evidence:     []string{"high_20", "prev_close", "last_close", "macd_histogram", "rsi14"},
	}
}

func failedBreakdown(ctx IndicatorContext) SetupResult {
	level := ctx.Low20
	poked := level > 0 && ctx.PrevClose < level
	rejected := poked && ctx.LastClose > level
	rejectionDepth := 0.0
	if rejected {
		rejectionDepth = ctx.LastClose - level
	}
	deepRejection := rejected && rejectionDepth >= tolerance(ctx, 0.5, 0.003)

	var r rubric
	r.check(3.0, rejected,
		fmt.Sprintf("breakdown below %.2f failed, close back above", level),
		"no failed breakdown at the 20-bar low")
	r.check(2.0, deepRejection,
		fmt.Sprintf("recovery depth %.2f is meaningful", rejectionDepth),
		"recovery depth shallow")
	r.check(2.0, ctx.MACDHistogram > 0,
		"MACD histogram curling up",
		"MACD histogram not curling up")
	r.check(1.5, ctx.RSI14 > 50,
		fmt.Sprintf("RSI %.1f reclaimed the midline", ctx.RSI14),
		fmt.Sprintf("RSI %.1f still below midline", ctx.RSI14))
	r.check(1.5, ctx.LastClose > ctx.PrevClose,
		"closing strength confirms the trap",
		"no closing strength")

	return SetupResult{
		ID:           "failed-breakdown",
		Name:         "Failed Breakdown",
		Direction:    Bullish,
		Score:        r.total(),
		Passed:       rejected && deepRejection,
		Reasons:      r.reasons,
		Entry:        fmt.Sprintf("buy the recovery back over %.2f", level),
		Stop:         "below the false-break low",
		Target:       "opposite side of the recent range",
		Invalidation: fmt.Sprintf("lose and hold below %.2f", level),
		Evidence:     []string{"low_20", "prev_close", "last_close", "macd_histogram", "rsi14"},
	}
}

func squeezeBreakout(ctx IndicatorContext) SetupResult {
	squeezed := ctx.BandwidthPercent > 0 && ctx.BandwidthPercent < squeezeBandwidthMaxPct
	brokeUpper := ctx.BollUpper > 0 && ctx.LastClose > ctx.BollUpper

	var r rubric
	r.check(3.0, squeezed,
		fmt.Sprintf("bandwidth %.2f%% below squeeze threshold %.1f%%", ctx.BandwidthPercent, squeezeBandwidthMaxPct),
		fmt.Sprintf("bandwidth %.2f%% not in a squeeze", ctx.BandwidthPercent))
	r.check(2.5, brokeUpper,
		fmt.Sprintf("close %.2f expanded above upper band %.2f", ctx.LastClose, ctx.BollUpper),
		"no close above the upper band")
	r.check(2.0, ctx.MACDHistogram > 0,
		"MACD histogram positive into expansion",
		"MACD histogram not positive")
	r.check(1.5, ctx.RSI14 > 55,
		fmt.Sprintf("RSI %.1f showing breakout energy", ctx.RSI14),
		fmt.Sprintf("RSI %.1f lacks breakout energy", ctx.RSI14))
	r.check(1.0, ctx.SMA20 > ctx.SMA50,
		"fast trend supportive",
		"fast trend not supportive")

	return SetupResult{
		ID:           "squeeze-breakout",
		Name:         "Squeeze Breakout",
		Direction:    Bullish,
		Score:        r.total(),
		Passed:       squeezed && brokeUpper,
		Reasons:      r.reasons,
		Entry:        "buy the expansion through the upper band",
		Stop:         "below the middle band",
		Target:       "one full bandwidth projected above the breakout",
		Invalidation: "close back inside the bands",
		Evidence:     []string{"bandwidth_percent", "boll_upper", "macd_histogram", "rsi14"},
	}
}

func squeezeBreakdown(ctx IndicatorContext) SetupResult {
	squeezed := ctx.BandwidthPercent > 0 && ctx.BandwidthPercent < squeezeBandwidthMaxPct
	brokeLower := ctx.BollLower > 0 && ctx.LastClose < ctx.BollLower

	var r rubric
	r.check(3.0, squeezed,
		fmt.Sprintf("bandwidth %.2f%% below squeeze threshold %.1f%%", ctx.BandwidthPercent, squeezeBandwidthMaxPct),
		fmt.Sprintf("bandwidth %.2f%% not in a squeeze", ctx.BandwidthPercent))
	r.check(2.5, brokeLower,
		fmt.Sprintf("close %.2f expanded below lower band %.2f", ctx.LastClose, ctx.BollLower),
		"no close below the lower band")
	r.check(2.0, ctx.MACDHistogram < 0,
		"MACD histogram negative into expansion",
		"MACD histogram not negative")
	r.check(1.5, ctx.RSI14 < 45,
		fmt.Sprintf("RSI %.1f showing breakdown energy", ctx.RSI14),
		fmt.Sprintf("RSI %.1f lacks breakdown energy", ctx.RSI14))
	r.check(1.0, ctx.SMA20 < ctx.SMA50,
		"fast trend supportive",
		"fast trend not supportive")

	return SetupResult{
		ID:           "squeeze-breakdown",
		Name:         "Squeeze Breakdown",
		Direction:    Bearish,
		Score:        r.total(),
		Passed:       squeezed && brokeLower,
		Reasons:      r.reasons,
		Entry:        "sell the expansion through the lower band",
		Stop:         "above the middle band",
		Target:       "one full bandwidth projected below the breakdown",
		Invalidation: "close back inside the bands",
		Evidence:     []string{"bandwidth_percent", "boll_lower", "macd_histogram", "rsi14"},
	}
}

func confirmedPattern(ctx IndicatorContext) SetupResult {
	p := ctx.Pattern
	confirmed := p.Status == "CONFIRMED" && p.Direction != Neutral && p.Direction != ""
	confident := p.Confidence >= patternConfidenceMin

	trendAligned := false
	macdAligned := false
	rsiAligned := false
	switch p.Direction {
	case Bullish:
		trendAligned = ctx.SMA20 > ctx.SMA50
		macdAligned = ctx.MACDHistogram > 0
		rsiAligned = ctx.RSI14 > 50
	case Bearish:
		trendAligned = ctx.SMA20 < ctx.SMA50
		macdAligned = ctx.MACDHistogram < 0
		rsiAligned = ctx.RSI14 < 50
	}

	var r rubric
	// Confidence carries up to half the rubric
	confPoints := 0.0
	if confirmed && confident {
		confPoints = math.Min(p.Confidence/100*5, 5)
	}
	r.score += confPoints
	if confirmed && confident {
		r.reasons = append(r.reasons, fmt.Sprintf("pattern %s confirmed at %.0f%% confidence", p.Name, p.Confidence))
	} else {
		r.reasons = append(r.reasons, "no confirmed pattern at sufficient confidence")
	}

	r.check(2.5, trendAligned,
		"fast trend agrees with the pattern",
		"fast trend disagrees with the pattern")
	r.check(1.5, macdAligned,
		"MACD histogram agrees with the pattern",
		"MACD histogram disagrees with the pattern")
	r.check(1.0, rsiAligned,
		"RSI agrees with the pattern",
		"RSI disagrees with the pattern")

	direction := p.Direction
	if direction == "" {
		direction = Neutral
	}

	return SetupResult{
		ID:           "confirmed-pattern",
		Name:         "Confirmed Pattern",
		Direction:    direction,
		Score:        r.total(),
		Passed:       confirmed && confident,
		Reasons:      r.reasons,
		Entry:        fmt.Sprintf("enter on the %s confirmation", p.Name),
		Stop:         "beyond the pattern boundary",
		Target:       "pattern measured move",
		Invalidation: "pattern status downgraded from CONFIRMED",
		Evidence:     []string{"pattern", "sma20", "sma50", "macd_histogram", "rsi14"},
	}
}
