// Package dedup suppresses repeat signals for the same (strategy, symbol,
// action) tuple inside a configurable window.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the last recorded fire for a key.
type State struct {
	LastFiredAtMs  int64   `json:"last_fired_at_ms"`
	LastConfidence float64 `json:"last_confidence"`
}

// Store persists dedup state by key. Get returns (nil, nil) for an unknown
// key.
type Store interface {
	Get(ctx context.Context, key string) (*State, error)
	Set(ctx context.Context, key string, state State, ttl time.Duration) error
}

// Verdict explains a suppression decision.
type Verdict struct {
	Suppress bool
	Reason   string
}

// MakeKey builds the canonical dedup key for a signal.
func MakeKey(strategyID, symbol, action string) string {
	return fmt.Sprintf("%s:%s:%s", strategyID, symbol, action)
}

// Tracker applies the suppression rule on top of a Store.
type Tracker struct {
	store Store
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// ShouldSuppress decides whether a repeat signal should be dropped. A key
// with no prior fire is never suppressed. Inside the window a repeat passes
// only when its confidence beats the last fire by at least minDelta.
func (t *Tracker) ShouldSuppress(ctx context.Context, key string, nowMs int64, windowMinutes int, minConfidenceDelta, confidence float64) (Verdict, error) {
	prior, err := t.store.Get(ctx, key)
	if err != nil {
		return Verdict{}, fmt.Errorf("dedup lookup for %s: %w", key, err)
	}
	if prior == nil {
		return Verdict{Suppress: false, Reason: "first signal for key"}, nil
	}

	elapsed := time.Duration(nowMs-prior.LastFiredAtMs) * time.Millisecond
	window := time.Duration(windowMinutes) * time.Minute
	if elapsed >= window {
		return Verdict{Suppress: false, Reason: "outside dedup window"}, nil
	}

	delta := confidence - prior.LastConfidence
	if delta >= minConfidenceDelta {
		return Verdict{
			Suppress: false,
			Reason:   fmt.Sprintf("confidence improved by %.1f (threshold %.1f)", delta, minConfidenceDelta),
		}, nil
	}

	return Verdict{
		Suppress: true,
		Reason: fmt.Sprintf("repeat within %dm window, confidence delta %.1f below %.1f",
			windowMinutes, delta, minConfidenceDelta),
	}, nil
}

// RecordFire overwrites the key's state with this fire. Recording is not
// cumulative; the latest fire fully replaces the prior one.
func (t *Tracker) RecordFire(ctx context.Context, key string, nowMs int64, confidence float64, windowMinutes int) error {
	ttl := 2 * time.Duration(windowMinutes) * time.Minute
	err := t.store.Set(ctx, key, State{LastFiredAtMs: nowMs, LastConfidence: confidence}, ttl)
	if err != nil {
		return fmt.Errorf("dedup record for %s: %w", key, err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests and single-node setups.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[key]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, state State, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = state
	return nil
}
