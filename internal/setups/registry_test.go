package setups

import (
	"reflect"
	"testing"
)

// trendBullContext passes the trend-continuation bull gate and nothing
// bearish of consequence.
func trendBullContext() IndicatorContext {
	return IndicatorContext{
		Symbol:           "AAPL",
		Price:            105,
		ATR:              1.2,
		ATRPercent:       1.14,
		RSI14:            56,
		MACDHistogram:    0.4,
		SMA20:            104,
		SMA50:            102,
		SMA200:           95,
		BollUpper:        108,
		BollMiddle:       103,
		BollLower:        98,
		BandwidthPercent: 9.7,
		Support:          100,
		Resistance:       108,
		LastClose:        105,
		PrevClose:        104.2,
		High20:           107,
		Low20:            99,
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	ctx := trendBullContext()

	first := Evaluate(ctx)
	second := Evaluate(ctx)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("evaluation not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestEvaluateDominantBullCall(t *testing.T) {
	eval := Evaluate(trendBullContext())

	if eval.Conflicts {
		t.Fatalf("unexpected conflict: %s", eval.ConflictReason)
	}
	if eval.Best == nil {
		t.Fatal("expected a dominant setup")
	}
	if eval.Best.Direction != Bullish {
		t.Errorf("best direction = %s, want BULLISH", eval.Best.Direction)
	}
	if eval.Best.ID != "trend-continuation-bull" {
		t.Errorf("best setup = %s, want trend-continuation-bull", eval.Best.ID)
	}
	if len(eval.Passed) == 0 || eval.Passed[0].Score < eval.Passed[len(eval.Passed)-1].Score {
		t.Error("passed results not ranked by score descending")
	}
}

func TestEvaluateNoSetupPasses(t *testing.T) {
	// An all-zero snapshot trips no gate.
	eval := Evaluate(IndicatorContext{Symbol: "XYZ"})

	if eval.Best != nil {
		t.Errorf("best = %+v, want nil", eval.Best)
	}
	if eval.Conflicts {
		t.Error("conflicts should be false when nothing passed")
	}
	if len(eval.Passed) != 0 {
		t.Errorf("passed = %d results, want 0", len(eval.Passed))
	}
}

func TestEvaluateConflictSuppressesBest(t *testing.T) {
	// A strong confirmed bullish pattern coincides with a strong failed
	// breakout: both sides score >= 6, so the registry must refuse to pick.
	ctx := IndicatorContext{
		Symbol:        "TSLA",
		Price:         99,
		ATR:           0, // percentage fallback path
		RSI14:         55,
		MACDHistogram: 0.2,
		SMA20:         102,
		SMA50:         101,
		SMA200:        95,
		LastClose:     99,
		PrevClose:     101.5,
		High20:        100,
		Low20:         90,
		Pattern: PatternSummary{
			Name:       "ascending-triangle",
			Direction:  Bullish,
			Status:     "CONFIRMED",
			Confidence: 90,
		},
	}

	eval := Evaluate(ctx)

	if !eval.Conflicts {
		t.Fatalf("expected conflict, got best=%+v", eval.Best)
	}
	if eval.Best != nil {
		t.Errorf("best must be nil on conflict, got %s", eval.Best.ID)
	}
	if eval.ConflictReason == "" {
		t.Error("conflict reason must be populated")
	}

	topBull, topBear := topByDirection(eval.Passed)
	if topBull == nil || topBull.Score < conflictScoreMin {
		t.Errorf("top bullish = %+v, want score >= %v", topBull, conflictScoreMin)
	}
	if topBear == nil || topBear.Score < conflictScoreMin {
		t.Errorf("top bearish = %+v, want score >= %v", topBear, conflictScoreMin)
	}
}

func TestEvaluateReasonsPopulatedOnFailure(t *testing.T) {
	// Every evaluator must explain itself even when its gate fails.
	for _, e := range allEvaluators {
		result := e.eval(IndicatorContext{Symbol: "XYZ", Price: 50})
		if len(result.Reasons) == 0 {
			t.Errorf("%s produced no reasons on a failing snapshot", e.id)
		}
		if result.Score < 0 || result.Score > 10 {
			t.Errorf("%s score %v outside 0-10", e.id, result.Score)
		}
	}
}

func TestSqueezeRequiresTightBandwidth(t *testing.T) {
	ctx := trendBullContext()
	ctx.BandwidthPercent = 9.7
	ctx.LastClose = ctx.BollUpper + 1
	ctx.Price = ctx.LastClose

	for _, result := range []SetupResult{squeezeBreakout(ctx), squeezeBreakdown(ctx)} {
		if result.Passed {
			t.Errorf("%s passed with bandwidth %.1f%%, squeeze threshold is %.1f%%",
				result.ID, ctx.BandwidthPercent, squeezeBandwidthMaxPct)
		}
	}

	ctx.BandwidthPercent = 2.5
	if !squeezeBreakout(ctx).Passed {
		t.Error("squeeze breakout should pass with tight bandwidth and an upper-band close")
	}
}

func TestZeroATRUsesPercentageFallback(t *testing.T) {
	// Break-and-retest proximity must still work when ATR is zero.
	ctx := IndicatorContext{
		Symbol:        "NVDA",
		Price:         100.1,
		ATR:           0,
		RSI14:         58,
		MACDHistogram: 0.3,
		SMA20:         101,
		SMA50:         99,
		LastClose:     100.1,
		PrevClose:     100.4,
		High20:        100,
		Low20:         92,
	}

	result := breakRetestBull(ctx)
	if !result.Passed {
		t.Fatalf("break-retest should pass via percentage fallback: %v", result.Reasons)
	}
}
