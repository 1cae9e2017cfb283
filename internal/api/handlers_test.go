package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trading-autopilot/internal/autopilot"
	"trading-autopilot/internal/circuit"
	"trading-autopilot/internal/lifecycle"
	"trading-autopilot/internal/positions"

	"github.com/rs/zerolog"
)

type fakeStore struct {
	cfg       *autopilot.AutomationConfig
	saved     *autopilot.AutomationConfig
	positions []*positions.Position
	runs      []*autopilot.RunLogEntry
}

func (f *fakeStore) LoadAutomationConfig(ctx context.Context) (*autopilot.AutomationConfig, error) {
	if f.cfg == nil {
		cfg := autopilot.DefaultConfig()
		f.cfg = &cfg
	}
	return f.cfg, nil
}

func (f *fakeStore) SaveAutomationConfig(ctx context.Context, cfg *autopilot.AutomationConfig) error {
	f.saved = cfg
	return nil
}

func (f *fakeStore) GetPosition(ctx context.Context, id string) (*positions.Position, error) {
	for _, p := range f.positions {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeStore) ListPositionsByStatus(ctx context.Context, statuses ...positions.Status) ([]*positions.Position, error) {
	var out []*positions.Position
	for _, p := range f.positions {
		for _, st := range statuses {
			if p.Status == st {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ListRecentPositions(ctx context.Context, limit int) ([]*positions.Position, error) {
	return f.positions, nil
}

func (f *fakeStore) ListRunLog(ctx context.Context, limit int) ([]*autopilot.RunLogEntry, error) {
	return f.runs, nil
}

func newTestServer(store *fakeStore) *Server {
	return NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, store, nil, nil, nil)
}

func doRequest(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&fakeStore{})
	w := doRequest(s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestGetConfigReturnsNormalizedDefault(t *testing.T) {
	s := newTestServer(&fakeStore{})
	w := doRequest(s, http.MethodGet, "/api/autopilot/config", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var cfg autopilot.AutomationConfig
	if err := json.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Mode != autopilot.ModePaper {
		t.Errorf("default mode = %s, want PAPER", cfg.Mode)
	}
}

func TestUpdateConfigPersists(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store)

	w := doRequest(s, http.MethodPut, "/api/autopilot/config", map[string]interface{}{
		"enabled":       true,
		"symbols":       []string{"AAPL", "MSFT"},
		"minConfidence": 70,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if store.saved == nil || !store.saved.Enabled || len(store.saved.Symbols) != 2 {
		t.Fatalf("config not saved as expected: %+v", store.saved)
	}
}

func TestArmSetsExpiry(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store)

	w := doRequest(s, http.MethodPost, "/api/autopilot/arm", map[string]int{"minutes": 15})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if store.saved == nil || store.saved.LiveArmExpiresAt == nil {
		t.Fatal("arm expiry was not saved")
	}
	if !store.saved.LiveArmExpiresAt.After(time.Now()) {
		t.Error("arm expiry should be in the future")
	}
}

func TestArmRejectsExcessiveWindow(t *testing.T) {
	s := newTestServer(&fakeStore{})
	w := doRequest(s, http.MethodPost, "/api/autopilot/arm", map[string]int{"minutes": 1000})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestKillSwitchEngages(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store)

	w := doRequest(s, http.MethodPost, "/api/autopilot/kill", map[string]interface{}{
		"halted": true,
		"reason": "volatility halt",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if store.saved == nil || !store.saved.Kill.Halted || store.saved.Kill.Reason != "volatility halt" {
		t.Fatalf("kill switch not saved: %+v", store.saved)
	}
}

func TestListPositionsScopes(t *testing.T) {
	store := &fakeStore{positions: []*positions.Position{
		{ID: "a", Symbol: "AAPL", Status: positions.StatusActive},
		{ID: "b", Symbol: "MSFT", Status: positions.StatusHitTarget},
	}}
	s := newTestServer(store)

	w := doRequest(s, http.MethodGet, "/api/positions", nil)
	var open []*positions.Position
	if err := json.Unmarshal(w.Body.Bytes(), &open); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(open) != 1 || open[0].ID != "a" {
		t.Fatalf("open scope should return only ACTIVE, got %+v", open)
	}

	w = doRequest(s, http.MethodGet, "/api/positions?scope=all", nil)
	var all []*positions.Position
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all scope should return both, got %d", len(all))
	}

	w = doRequest(s, http.MethodGet, "/api/positions?scope=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus scope status = %d, want 400", w.Code)
	}
}

func TestGetPositionNotFound(t *testing.T) {
	s := newTestServer(&fakeStore{})
	w := doRequest(s, http.MethodGet, "/api/positions/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

type sweepStoreStub struct {
	lists int
}

func (s *sweepStoreStub) ListPositionsByStatus(ctx context.Context, statuses ...positions.Status) ([]*positions.Position, error) {
	s.lists++
	return nil, nil
}

func (s *sweepStoreStub) UpdatePosition(ctx context.Context, p *positions.Position) error {
	return nil
}

func (s *sweepStoreStub) AppendRunLog(ctx context.Context, entry *autopilot.RunLogEntry) error {
	return nil
}

func TestSweepSkipsWhenLifecycleDisabled(t *testing.T) {
	cfg := autopilot.DefaultConfig()
	cfg.Lifecycle.Enabled = false
	sweeps := &sweepStoreStub{}
	manager := lifecycle.NewManager(sweeps, nil, nil, nil, zerolog.Nop(), nil)
	s := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, &fakeStore{cfg: &cfg}, nil, manager, nil)

	w := doRequest(s, http.MethodPost, "/api/lifecycle/sweep", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var result lifecycle.SweepResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Actions) != 1 || result.Actions[0].Type != autopilot.ActionSkip {
		t.Fatalf("expected one SKIP action, got %+v", result.Actions)
	}
	if sweeps.lists != 0 {
		t.Error("disabled lifecycle should not touch positions")
	}
}

func TestSweepForceOverridesDisabled(t *testing.T) {
	cfg := autopilot.DefaultConfig()
	cfg.Lifecycle.Enabled = false
	sweeps := &sweepStoreStub{}
	manager := lifecycle.NewManager(sweeps, nil, nil, nil, zerolog.Nop(), nil)
	s := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, &fakeStore{cfg: &cfg}, nil, manager, nil)

	w := doRequest(s, http.MethodPost, "/api/lifecycle/sweep", map[string]bool{"force": true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if sweeps.lists != 1 {
		t.Errorf("forced sweep should run, lists = %d", sweeps.lists)
	}
}

func TestBreakerEndpointsWithoutBreaker(t *testing.T) {
	s := newTestServer(&fakeStore{})
	w := doRequest(s, http.MethodGet, "/api/autopilot/breaker", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when unconfigured", w.Code)
	}
}

func TestBreakerStatusAndReset(t *testing.T) {
	s := newTestServer(&fakeStore{})
	breaker := circuit.NewBreaker(circuit.Config{
		Enabled:              true,
		MaxConsecutiveLosses: 1,
		CooldownMinutes:      30,
	}, nil)
	breaker.RecordClose(-1)
	s.SetCircuitBreaker(breaker)

	w := doRequest(s, http.MethodGet, "/api/autopilot/breaker", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats["state"] != "open" {
		t.Errorf("state = %v, want open", stats["state"])
	}

	w = doRequest(s, http.MethodPost, "/api/autopilot/breaker/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", w.Code)
	}
	if breaker.State() != circuit.StateClosed {
		t.Errorf("state after reset = %s, want closed", breaker.State())
	}
}
