package dedup

import (
	"context"
	"testing"
	"time"
)

func TestFirstSignalNeverSuppressed(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())
	nowMs := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC).UnixMilli()

	verdict, err := tracker.ShouldSuppress(context.Background(), MakeKey("trend-follow", "AAPL", "BUY"), nowMs, 30, 10, 75)
	if err != nil {
		t.Fatalf("ShouldSuppress error: %v", err)
	}
	if verdict.Suppress {
		t.Errorf("first signal suppressed: %s", verdict.Reason)
	}
}

func TestRepeatWithinWindowSuppressed(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())
	ctx := context.Background()
	key := MakeKey("trend-follow", "AAPL", "BUY")
	nowMs := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC).UnixMilli()

	if err := tracker.RecordFire(ctx, key, nowMs, 80, 30); err != nil {
		t.Fatalf("RecordFire error: %v", err)
	}

	// 10 minutes later, confidence barely higher: delta below the minimum.
	repeatMs := nowMs + (10 * time.Minute).Milliseconds()
	verdict, err := tracker.ShouldSuppress(ctx, key, repeatMs, 30, 10, 85)
	if err != nil {
		t.Fatalf("ShouldSuppress error: %v", err)
	}
	if !verdict.Suppress {
		t.Errorf("repeat with delta 5 not suppressed: %s", verdict.Reason)
	}
}

func TestMateriallyStrongerRepeatPasses(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())
	ctx := context.Background()
	key := MakeKey("trend-follow", "AAPL", "BUY")
	nowMs := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC).UnixMilli()

	if err := tracker.RecordFire(ctx, key, nowMs, 70, 30); err != nil {
		t.Fatalf("RecordFire error: %v", err)
	}

	repeatMs := nowMs + (5 * time.Minute).Milliseconds()
	verdict, err := tracker.ShouldSuppress(ctx, key, repeatMs, 30, 10, 80) // delta exactly at minimum
	if err != nil {
		t.Fatalf("ShouldSuppress error: %v", err)
	}
	if verdict.Suppress {
		t.Errorf("delta-at-minimum repeat suppressed: %s", verdict.Reason)
	}
}

func TestRepeatOutsideWindowPasses(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())
	ctx := context.Background()
	key := MakeKey("breakout", "MSFT", "SELL")
	nowMs := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC).UnixMilli()

	if err := tracker.RecordFire(ctx, key, nowMs, 90, 30); err != nil {
		t.Fatalf("RecordFire error: %v", err)
	}

	repeatMs := nowMs + (31 * time.Minute).Milliseconds()
	verdict, err := tracker.ShouldSuppress(ctx, key, repeatMs, 30, 10, 60)
	if err != nil {
		t.Fatalf("ShouldSuppress error: %v", err)
	}
	if verdict.Suppress {
		t.Errorf("repeat outside window suppressed: %s", verdict.Reason)
	}
}

func TestRecordFireOverwrites(t *testing.T) {
	store := NewMemoryStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	key := MakeKey("pattern", "NVDA", "BUY")
	nowMs := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC).UnixMilli()

	if err := tracker.RecordFire(ctx, key, nowMs, 60, 30); err != nil {
		t.Fatalf("RecordFire error: %v", err)
	}
	laterMs := nowMs + (40 * time.Minute).Milliseconds()
	if err := tracker.RecordFire(ctx, key, laterMs, 95, 30); err != nil {
		t.Fatalf("RecordFire error: %v", err)
	}

	state, err := store.Get(ctx, key)
	if err != nil || state == nil {
		t.Fatalf("Get = (%v, %v), want state", state, err)
	}
	if state.LastFiredAtMs != laterMs || state.LastConfidence != 95 {
		t.Errorf("state = %+v, want overwrite to (%d, 95)", state, laterMs)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())
	ctx := context.Background()
	nowMs := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC).UnixMilli()

	if err := tracker.RecordFire(ctx, MakeKey("trend-follow", "AAPL", "BUY"), nowMs, 80, 30); err != nil {
		t.Fatalf("RecordFire error: %v", err)
	}

	// Same strategy and symbol, opposite action: a distinct key.
	verdict, err := tracker.ShouldSuppress(ctx, MakeKey("trend-follow", "AAPL", "SELL"), nowMs+1000, 30, 10, 50)
	if err != nil {
		t.Fatalf("ShouldSuppress error: %v", err)
	}
	if verdict.Suppress {
		t.Errorf("independent key suppressed: %s", verdict.Reason)
	}
}
