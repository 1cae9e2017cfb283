package risk

import "testing"

func defaultCaps() Caps {
	return Caps{
		MaxOpenPositions:    3,
		MaxOpenPerSymbol:    1,
		MaxTradesPerDay:     5,
		MaxNotionalPerTrade: 1000,
	}
}

func TestGlobalCapsReached(t *testing.T) {
	tr := NewTracker(defaultCaps(), 3, nil, 0)
	if reached, _ := tr.GlobalCapsReached(); !reached {
		t.Error("open position cap should be reached at 3/3")
	}

	tr = NewTracker(defaultCaps(), 0, nil, 5)
	if reached, _ := tr.GlobalCapsReached(); !reached {
		t.Error("daily trade cap should be reached at 5/5")
	}

	tr = NewTracker(defaultCaps(), 2, nil, 4)
	if reached, reason := tr.GlobalCapsReached(); reached {
		t.Errorf("caps should not be reached below limits: %s", reason)
	}
}

func TestZeroCapsDisableChecks(t *testing.T) {
	tr := NewTracker(Caps{}, 100, map[string]int{"AAPL": 50}, 100)
	if ok, reason := tr.CheckExecution("AAPL", 1e9); !ok {
		t.Errorf("zero caps should disable all checks: %s", reason)
	}
}

func TestSymbolCapReached(t *testing.T) {
	tr := NewTracker(defaultCaps(), 1, map[string]int{"AAPL": 1}, 1)
	if reached, _ := tr.SymbolCapReached("AAPL"); !reached {
		t.Error("AAPL should be at its per-symbol cap")
	}
	if reached, _ := tr.SymbolCapReached("MSFT"); reached {
		t.Error("MSFT should not be at cap")
	}
}

func TestNotionalCap(t *testing.T) {
	tr := NewTracker(defaultCaps(), 0, nil, 0)
	if ok, _ := tr.CheckExecution("AAPL", 1000); !ok {
		t.Error("notional exactly at cap should pass")
	}
	if ok, _ := tr.CheckExecution("AAPL", 1000.01); ok {
		t.Error("notional above cap should fail")
	}
}

func TestRecordExecutionAffectsLaterChecks(t *testing.T) {
	tr := NewTracker(defaultCaps(), 0, nil, 0)

	ok, _ := tr.CheckExecution("AAPL", 500)
	if !ok {
		t.Fatal("first execution should pass")
	}
	tr.RecordExecution("AAPL")

	if ok, _ := tr.CheckExecution("AAPL", 500); ok {
		t.Error("second AAPL execution should hit the per-symbol cap")
	}
	if ok, _ := tr.CheckExecution("MSFT", 500); !ok {
		t.Error("MSFT should still have capacity")
	}
}
