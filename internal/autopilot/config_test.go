package autopilot

import (
	"testing"
	"time"
)

func TestNormalizeClampsFields(t *testing.T) {
	cfg := AutomationConfig{
		Mode:              "SOMETHING_ELSE",
		MinConfidence:     150,
		OrderQuantity:     -2,
		CooldownMinutes:   -10,
		DedupMinConfDelta: -5,
		Instrument:        "FUTURE",
		NoTradeWindows: []TimeWindow{
			{StartMinute: 600, EndMinute: 630},
			{StartMinute: 700, EndMinute: 650}, // inverted, dropped
			{StartMinute: -5, EndMinute: 60},   // negative start, dropped
		},
	}
	cfg.Normalize()

	if cfg.Mode != ModeOff {
		t.Errorf("unknown mode should normalize to OFF, got %s", cfg.Mode)
	}
	if cfg.MinConfidence != 100 {
		t.Errorf("min confidence should clamp to 100, got %v", cfg.MinConfidence)
	}
	if cfg.OrderQuantity != 1 {
		t.Errorf("non-positive quantity should reset to 1, got %v", cfg.OrderQuantity)
	}
	if cfg.CooldownMinutes != 0 || cfg.DedupMinConfDelta != 0 {
		t.Error("negative durations and deltas should clamp to 0")
	}
	if cfg.Instrument != "STOCK" {
		t.Errorf("unknown instrument should fall back to STOCK, got %s", cfg.Instrument)
	}
	if len(cfg.NoTradeWindows) != 1 {
		t.Fatalf("invalid windows should be dropped, got %d", len(cfg.NoTradeWindows))
	}
}

func TestNormalizeKeepsLockInBelowActivation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lifecycle.TrailAfterR = 1.0
	cfg.Lifecycle.TrailLockInR = 2.0
	cfg.Normalize()

	if cfg.Lifecycle.TrailLockInR != 1.0 {
		t.Errorf("lock-in should clamp to activation level, got %v", cfg.Lifecycle.TrailLockInR)
	}
}

func TestLiveEffectiveFailsClosed(t *testing.T) {
	now := time.Date(2026, 3, 4, 13, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	cfg := DefaultConfig()
	cfg.Mode = ModeLive
	cfg.LiveArmExpiresAt = &future

	t.Setenv(LiveTradingEnvVar, "")
	if cfg.LiveEffective(now) {
		t.Error("env flag unset: must not be live-effective")
	}

	t.Setenv(LiveTradingEnvVar, "true")
	if !cfg.LiveEffective(now) {
		t.Error("armed with env flag: should be live-effective")
	}

	cfg.LiveArmExpiresAt = &past
	if cfg.LiveEffective(now) {
		t.Error("expired arm: must not be live-effective")
	}

	cfg.LiveArmExpiresAt = nil
	if cfg.LiveEffective(now) {
		t.Error("never armed: must not be live-effective")
	}

	cfg.Mode = ModePaper
	cfg.LiveArmExpiresAt = &future
	if cfg.LiveEffective(now) {
		t.Error("paper mode is never live-effective")
	}
}

func TestEffectiveMinConfidence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinConfidence = 65
	cfg.StrategyMinConfidence = map[string]float64{"breakout": 80}

	if got := cfg.EffectiveMinConfidence("breakout"); got != 80 {
		t.Errorf("override = %v, want 80", got)
	}
	if got := cfg.EffectiveMinConfidence("trend-follow"); got != 65 {
		t.Errorf("global floor = %v, want 65", got)
	}
}
