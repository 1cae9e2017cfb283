// Package circuit halts new entries after a losing streak. Closed
// positions feed their R multiples into the breaker; once it trips, the
// autopilot skips ticks until the cooldown passes and a winner closes.
package circuit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// State represents the breaker state
type State string

const (
	StateClosed   State = "closed"    // normal operation
	StateOpen     State = "open"      // entries halted
	StateHalfOpen State = "half_open" // cooldown passed, waiting on a winner
)

// Config holds breaker thresholds. Losses are measured in R, the risk
// unit of the position that produced them.
type Config struct {
	Enabled              bool    `json:"enabled"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	MaxDailyLossR        float64 `json:"max_daily_loss_r"`
	CooldownMinutes      int     `json:"cooldown_minutes"`
}

// DefaultConfig returns safe defaults
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		MaxConsecutiveLosses: 4,
		MaxDailyLossR:        6.0,
		CooldownMinutes:      60,
	}
}

// Breaker tracks exit results and trips when losses stack up.
type Breaker struct {
	config            Config
	state             State
	consecutiveLosses int
	dailyLossR        float64
	lastTripTime      time.Time
	dailyResetTime    time.Time
	tripReason        string
	onTrip            func(reason string)
	mu                sync.RWMutex
	now               func() time.Time
}

// NewBreaker creates a breaker. A nil now falls back to the wall clock.
func NewBreaker(config Config, now func() time.Time) *Breaker {
	if now == nil {
		now = time.Now
	}
	return &Breaker{
		config:         config,
		state:          StateClosed,
		dailyResetTime: now().Truncate(24 * time.Hour).Add(24 * time.Hour),
		now:            now,
	}
}

// OnTrip sets the callback invoked when the breaker opens.
func (b *Breaker) OnTrip(handler func(reason string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = handler
}

// Allow reports whether new entries may be opened. A blocked result
// carries the reason.
func (b *Breaker) Allow() (bool, string) {
	if !b.config.Enabled {
		return true, ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetCountersIfNeeded()

	if b.state == StateOpen {
		elapsed := b.now().Sub(b.lastTripTime)
		cooldown := time.Duration(b.config.CooldownMinutes) * time.Minute

		if elapsed < cooldown {
			remaining := cooldown - elapsed
			return false, fmt.Sprintf("circuit breaker open, cooldown remaining %v (reason: %s)",
				remaining.Round(time.Second), b.tripReason)
		}

		b.state = StateHalfOpen
	}

	if b.config.MaxConsecutiveLosses > 0 && b.consecutiveLosses >= b.config.MaxConsecutiveLosses {
		return false, fmt.Sprintf("max consecutive losses reached: %d", b.consecutiveLosses)
	}

	if b.config.MaxDailyLossR > 0 && b.dailyLossR >= b.config.MaxDailyLossR {
		return false, fmt.Sprintf("daily loss limit reached: %.1fR >= %.1fR",
			b.dailyLossR, b.config.MaxDailyLossR)
	}

	return true, ""
}

// RecordClose feeds one closed position's R multiple into the breaker.
func (b *Breaker) RecordClose(rMultiple float64) {
	if !b.config.Enabled {
		return
	}
	if math.IsNaN(rMultiple) || math.IsInf(rMultiple, 0) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetCountersIfNeeded()

	if rMultiple < 0 {
		b.consecutiveLosses++
		b.dailyLossR += -rMultiple
		b.checkAndTrip()
		return
	}

	b.consecutiveLosses = 0
	if b.state == StateHalfOpen {
		b.state = StateClosed
		b.tripReason = ""
	}
}

func (b *Breaker) checkAndTrip() {
	if b.state == StateOpen {
		return
	}

	var reason string
	if b.config.MaxConsecutiveLosses > 0 && b.consecutiveLosses >= b.config.MaxConsecutiveLosses {
		reason = fmt.Sprintf("consecutive losses: %d", b.consecutiveLosses)
	} else if b.config.MaxDailyLossR > 0 && b.dailyLossR >= b.config.MaxDailyLossR {
		reason = fmt.Sprintf("daily loss: %.1fR", b.dailyLossR)
	}

	if reason == "" {
		return
	}

	b.state = StateOpen
	b.lastTripTime = b.now()
	b.tripReason = reason

	if b.onTrip != nil {
		go b.onTrip(reason)
	}
}

func (b *Breaker) resetCountersIfNeeded() {
	now := b.now()
	if now.After(b.dailyResetTime) {
		b.dailyLossR = 0
		b.dailyResetTime = now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
}

// ForceReset closes the breaker and clears every counter, including the
// booked daily loss; a partial reset would re-trip on the next Allow.
func (b *Breaker) ForceReset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.consecutiveLosses = 0
	b.dailyLossR = 0
	b.tripReason = ""
}

// State returns the current breaker state
func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Stats returns a snapshot for the status API
func (b *Breaker) Stats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return map[string]interface{}{
		"state":              string(b.state),
		"consecutive_losses": b.consecutiveLosses,
		"daily_loss_r":       b.dailyLossR,
		"trip_reason":        b.tripReason,
		"last_trip_time":     b.lastTripTime,
	}
}
