package setups

import (
	"fmt"
	"sort"
)

// Evaluate runs every registered setup against one snapshot and resolves the
// results into at most one dominant call. Evaluation is deterministic: the
// same snapshot always yields the same verdict.
func Evaluate(ctx IndicatorContext) Evaluation {
	passed := make([]SetupResult, 0, len(allEvaluators))
	for _, e := range allEvaluators {
		result := e.eval(ctx)
		if result.Passed {
			passed = append(passed, result)
		}
	}

	// Score descending; registry order breaks ties so ranking is stable.
	sort.SliceStable(passed, func(i, j int) bool {
		return passed[i].Score > passed[j].Score
	})

	if len(passed) == 0 {
		return Evaluation{Passed: passed}
	}

	topBull, topBear := topByDirection(passed)
	if topBull != nil && topBear != nil &&
		topBull.Score >= conflictScoreMin && topBear.Score >= conflictScoreMin {
		return Evaluation{
			Passed:    passed,
			Conflicts: true,
			ConflictReason: fmt.Sprintf("%s (%.1f) conflicts with %s (%.1f)",
				topBull.Name, topBull.Score, topBear.Name, topBear.Score),
		}
	}

	best := passed[0]
	return Evaluation{Best: &best, Passed: passed}
}

func topByDirection(ranked []SetupResult) (topBull, topBear *SetupResult) {
	for i := range ranked {
		switch ranked[i].Direction {
		case Bullish:
			if topBull == nil {
				topBull = &ranked[i]
			}
		case Bearish:
			if topBear == nil {
				topBear = &ranked[i]
			}
		}
	}
	return topBull, topBear
}
