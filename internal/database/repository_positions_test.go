package database

import (
	"testing"

	"trading-autopilot/internal/positions"
)

// The entry gate and open-position counting share openStatuses; if the
// two ever diverge, a position with a pending exit could stop counting
// against caps while still blocking entries, or the other way around.
func TestOpenStatusesMatchNonTerminalSet(t *testing.T) {
	all := []positions.Status{
		positions.StatusActive,
		positions.StatusExitSubmitted,
		positions.StatusHitTarget,
		positions.StatusStoppedOut,
		positions.StatusClosed,
		positions.StatusExpired,
	}

	inOpen := func(s positions.Status) bool {
		for _, v := range openStatuses {
			if v == string(s) {
				return true
			}
		}
		return false
	}

	for _, s := range all {
		if s.IsTerminal() && inOpen(s) {
			t.Errorf("terminal status %s must not count as open", s)
		}
		if !s.IsTerminal() && !inOpen(s) {
			t.Errorf("non-terminal status %s must count as open", s)
		}
	}
}

func TestExitSubmittedStillHoldsRisk(t *testing.T) {
	found := false
	for _, v := range openStatuses {
		if v == string(positions.StatusExitSubmitted) {
			found = true
		}
	}
	if !found {
		t.Error("a position with a pending exit order must block duplicate entries until the fill confirms")
	}
}
