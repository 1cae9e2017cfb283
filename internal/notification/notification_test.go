package notification

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trading-autopilot/internal/events"

	"github.com/rs/zerolog"
)

type captureNotifier struct {
	got chan *Notification
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{got: make(chan *Notification, 10)}
}

func (c *captureNotifier) Send(n *Notification) error { c.got <- n; return nil }
func (c *captureNotifier) Name() string               { return "capture" }
func (c *captureNotifier) IsEnabled() bool            { return true }

func (c *captureNotifier) wait(t *testing.T) *Notification {
	t.Helper()
	select {
	case n := <-c.got:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("no notification delivered")
		return nil
	}
}

func TestPositionOpenedFromBus(t *testing.T) {
	bus := events.NewEventBus()
	capture := newCaptureNotifier()

	m := NewManager(zerolog.Nop())
	m.AddNotifier(capture)
	m.AttachBus(bus)

	bus.PublishPositionOpened("AAPL", "trend-continuation-bull", false, 187.5, 10)

	n := capture.wait(t)
	if n.Type != NotifyPositionOpen {
		t.Errorf("type = %s, want %s", n.Type, NotifyPositionOpen)
	}
	if n.Symbol != "AAPL" {
		t.Errorf("symbol = %s", n.Symbol)
	}
	if n.Negative {
		t.Error("an open should not be negative")
	}
}

func TestLosingCloseMarkedNegative(t *testing.T) {
	bus := events.NewEventBus()
	capture := newCaptureNotifier()

	m := NewManager(zerolog.Nop())
	m.AddNotifier(capture)
	m.AttachBus(bus)

	bus.PublishPositionClosed("MSFT", "stop hit", 400, 390)

	n := capture.wait(t)
	if n.Type != NotifyPositionClose {
		t.Errorf("type = %s", n.Type)
	}
	if !n.Negative {
		t.Error("a losing close should be negative")
	}
}

func TestCircuitTripNotifies(t *testing.T) {
	bus := events.NewEventBus()
	capture := newCaptureNotifier()

	m := NewManager(zerolog.Nop())
	m.AddNotifier(capture)
	m.AttachBus(bus)

	bus.Publish(events.Event{
		Type: events.EventCircuitTripped,
		Data: map[string]interface{}{"reason": "consecutive losses: 4"},
	})

	n := capture.wait(t)
	if n.Type != NotifyHalt {
		t.Errorf("type = %s, want %s", n.Type, NotifyHalt)
	}
	if n.Message != "consecutive losses: 4" {
		t.Errorf("message = %q", n.Message)
	}
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, Enabled: true})
	err := n.Send(&Notification{
		Type:      NotifyPositionOpen,
		Title:     "Position opened: AAPL",
		Symbol:    "AAPL",
		Price:     187.5,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	payload := <-received
	if payload["symbol"] != "AAPL" {
		t.Errorf("symbol = %v", payload["symbol"])
	}
	if payload["type"] != "position_open" {
		t.Errorf("type = %v", payload["type"])
	}
}

func TestWebhookNotifierRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, Enabled: true})
	if err := n.Send(&Notification{Title: "x", Timestamp: time.Now()}); err == nil {
		t.Error("5xx response should surface as an error")
	}
}

func TestDisabledNotifierSkipped(t *testing.T) {
	n := NewWebhookNotifier(WebhookConfig{URL: "", Enabled: true})
	if n.IsEnabled() {
		t.Error("empty URL should disable the notifier")
	}
}
