package circuit

import (
	"strings"
	"testing"
	"time"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(cfg Config) (*Breaker, *testClock) {
	clock := &testClock{now: time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)}
	return NewBreaker(cfg, clock.Now), clock
}

func TestAllowsWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	b, _ := newTestBreaker(cfg)

	b.RecordClose(-1)
	b.RecordClose(-1)
	b.RecordClose(-1)
	b.RecordClose(-1)

	if ok, _ := b.Allow(); !ok {
		t.Error("disabled breaker should always allow")
	}
}

func TestConsecutiveLossesTrip(t *testing.T) {
	b, _ := newTestBreaker(Config{Enabled: true, MaxConsecutiveLosses: 3, CooldownMinutes: 30})

	b.RecordClose(-0.5)
	b.RecordClose(-0.5)
	if ok, _ := b.Allow(); !ok {
		t.Fatal("two losses should not trip a three-loss breaker")
	}

	b.RecordClose(-0.5)
	ok, reason := b.Allow()
	if ok {
		t.Fatal("third consecutive loss should trip")
	}
	if !strings.Contains(reason, "cooldown") {
		t.Errorf("blocked reason should mention cooldown, got %q", reason)
	}
	if b.State() != StateOpen {
		t.Errorf("state = %s, want open", b.State())
	}
}

func TestWinnerResetsStreak(t *testing.T) {
	b, _ := newTestBreaker(Config{Enabled: true, MaxConsecutiveLosses: 3, CooldownMinutes: 30})

	b.RecordClose(-1)
	b.RecordClose(-1)
	b.RecordClose(1.5)
	b.RecordClose(-1)

	if ok, _ := b.Allow(); !ok {
		t.Error("a winner in between should reset the streak")
	}
}

func TestDailyLossTrip(t *testing.T) {
	b, _ := newTestBreaker(Config{Enabled: true, MaxDailyLossR: 2.0, CooldownMinutes: 30})

	b.RecordClose(-1)
	b.RecordClose(1) // winner does not refund booked losses
	b.RecordClose(-1)

	if ok, _ := b.Allow(); ok {
		t.Error("2R of booked losses should trip a 2R daily limit")
	}
}

func TestHalfOpenClosesOnWinner(t *testing.T) {
	b, clock := newTestBreaker(Config{Enabled: true, MaxConsecutiveLosses: 2, CooldownMinutes: 30})

	b.RecordClose(-1)
	b.RecordClose(-1)
	if ok, _ := b.Allow(); ok {
		t.Fatal("breaker should be open")
	}

	clock.Advance(31 * time.Minute)

	// Cooldown is over but the loss streak still blocks entries.
	if ok, _ := b.Allow(); ok {
		t.Fatal("half-open breaker should still block while the streak stands")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half_open after cooldown", b.State())
	}

	b.RecordClose(0.8)
	if ok, _ := b.Allow(); !ok {
		t.Error("winner in half-open should close the breaker")
	}
	if b.State() != StateClosed {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestDailyCounterResets(t *testing.T) {
	b, clock := newTestBreaker(Config{Enabled: true, MaxDailyLossR: 2.0, CooldownMinutes: 1})

	b.RecordClose(-2)
	if ok, _ := b.Allow(); ok {
		t.Fatal("daily limit should block")
	}

	clock.Advance(24 * time.Hour)
	b.RecordClose(1)

	if ok, _ := b.Allow(); !ok {
		t.Error("next day with a winner should allow entries again")
	}
}

func TestOnTripCallback(t *testing.T) {
	b, _ := newTestBreaker(Config{Enabled: true, MaxConsecutiveLosses: 1, CooldownMinutes: 30})

	tripped := make(chan string, 1)
	b.OnTrip(func(reason string) { tripped <- reason })

	b.RecordClose(-1)

	select {
	case reason := <-tripped:
		if !strings.Contains(reason, "consecutive losses") {
			t.Errorf("trip reason = %q", reason)
		}
	case <-time.After(time.Second):
		t.Fatal("trip callback never fired")
	}
}

func TestForceReset(t *testing.T) {
	b, _ := newTestBreaker(Config{Enabled: true, MaxConsecutiveLosses: 1, CooldownMinutes: 30})

	b.RecordClose(-1)
	b.ForceReset()

	if ok, _ := b.Allow(); !ok {
		t.Error("force reset should allow entries")
	}
}

func TestForceResetClearsDailyLoss(t *testing.T) {
	b, _ := newTestBreaker(Config{Enabled: true, MaxDailyLossR: 2.0, CooldownMinutes: 30})

	b.RecordClose(-3)
	if ok, _ := b.Allow(); ok {
		t.Fatal("daily loss should have tripped the breaker")
	}

	b.ForceReset()

	ok, reason := b.Allow()
	if !ok {
		t.Errorf("reset breaker should allow entries, blocked with %q", reason)
	}
	if got := b.Stats()["daily_loss_r"].(float64); got != 0 {
		t.Errorf("daily loss after reset = %v, want 0", got)
	}
}

func TestIgnoresInvalidResults(t *testing.T) {
	b, _ := newTestBreaker(Config{Enabled: true, MaxConsecutiveLosses: 1, CooldownMinutes: 30})

	nan := 0.0
	b.RecordClose(nan / nan)

	if ok, _ := b.Allow(); !ok {
		t.Error("NaN result should be ignored")
	}
}
