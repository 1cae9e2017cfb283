// Package notification pushes autopilot events to chat providers. The
// manager subscribes to the event bus, so the trading path never blocks
// on a webhook.
package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trading-autopilot/internal/events"

	"github.com/rs/zerolog"
)

// Type classifies a notification for provider formatting
type Type string

const (
	NotifyPositionOpen  Type = "position_open"
	NotifyPositionClose Type = "position_close"
	NotifyStopUpdated   Type = "stop_updated"
	NotifyHalt          Type = "halt"
	NotifyError         Type = "error"
)

// Notification is one message to deliver
type Notification struct {
	Type      Type
	Title     string
	Message   string
	Symbol    string
	Price     float64
	Negative  bool // losing close or halt, colors the message
	Timestamp time.Time
}

// Notifier is a delivery provider
type Notifier interface {
	Send(n *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans notifications out to every enabled provider.
type Manager struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewManager creates a notification manager
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

// AddNotifier registers a delivery provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send delivers to all enabled providers. Provider failures are logged,
// never propagated.
func (m *Manager) Send(n *Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	for _, provider := range m.notifiers {
		if !provider.IsEnabled() {
			continue
		}
		if err := provider.Send(n); err != nil {
			m.logger.Warn().
				Err(err).
				Str("provider", provider.Name()).
				Str("type", string(n.Type)).
				Msg("Notification delivery failed")
		}
	}
}

// AttachBus subscribes the manager to the events it reports on.
func (m *Manager) AttachBus(bus *events.EventBus) {
	bus.Subscribe(events.EventPositionOpened, m.onPositionOpened)
	bus.Subscribe(events.EventPositionClosed, m.onPositionClosed)
	bus.Subscribe(events.EventStopUpdated, m.onStopUpdated)
	bus.Subscribe(events.EventKillSwitch, m.onHalt)
	bus.Subscribe(events.EventCircuitTripped, m.onHalt)
}

func (m *Manager) onPositionOpened(ev events.Event) {
	symbol, _ := ev.Data["symbol"].(string)
	strategy, _ := ev.Data["strategy_id"].(string)
	entry, _ := ev.Data["entry_price"].(float64)
	live, _ := ev.Data["live"].(bool)

	mode := "paper"
	if live {
		mode = "LIVE"
	}
	m.Send(&Notification{
		Type:      NotifyPositionOpen,
		Title:     fmt.Sprintf("Position opened: %s", symbol),
		Message:   fmt.Sprintf("%s entry @ %.2f (%s, %s)", symbol, entry, strategy, mode),
		Symbol:    symbol,
		Price:     entry,
		Timestamp: ev.Timestamp,
	})
}

func (m *Manager) onPositionClosed(ev events.Event) {
	symbol, _ := ev.Data["symbol"].(string)
	reason, _ := ev.Data["reason"].(string)
	entry, _ := ev.Data["entry_price"].(float64)
	closed, _ := ev.Data["closed_price"].(float64)

	m.Send(&Notification{
		Type:      NotifyPositionClose,
		Title:     fmt.Sprintf("Position closed: %s", symbol),
		Message:   fmt.Sprintf("%s %.2f -> %.2f (%s)", symbol, entry, closed, reason),
		Symbol:    symbol,
		Price:     closed,
		Negative:  closed < entry,
		Timestamp: ev.Timestamp,
	})
}

func (m *Manager) onStopUpdated(ev events.Event) {
	symbol, _ := ev.Data["symbol"].(string)
	oldStop, _ := ev.Data["old_stop"].(float64)
	newStop, _ := ev.Data["new_stop"].(float64)

	m.Send(&Notification{
		Type:      NotifyStopUpdated,
		Title:     fmt.Sprintf("Stop ratcheted: %s", symbol),
		Message:   fmt.Sprintf("%s stop %.2f -> %.2f", symbol, oldStop, newStop),
		Symbol:    symbol,
		Price:     newStop,
		Timestamp: ev.Timestamp,
	})
}

func (m *Manager) onHalt(ev events.Event) {
	reason, _ := ev.Data["reason"].(string)

	title := "Trading halted"
	if ev.Type == events.EventCircuitTripped {
		title = "Circuit breaker tripped"
	}
	m.Send(&Notification{
		Type:      NotifyHalt,
		Title:     title,
		Message:   reason,
		Negative:  true,
		Timestamp: ev.Timestamp,
	})
}

// DiscordConfig holds Discord webhook settings
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// DiscordNotifier sends notifications via a Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// NewDiscordNotifier creates a Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) IsEnabled() bool { return d.enabled }

func (d *DiscordNotifier) Send(n *Notification) error {
	color := 0x2ECC71
	if n.Negative {
		color = 0xE74C3C
	}

	embed := map[string]interface{}{
		"title":       n.Title,
		"description": n.Message,
		"color":       color,
		"timestamp":   n.Timestamp.Format(time.RFC3339),
	}
	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("post discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// WebhookConfig holds generic webhook settings
type WebhookConfig struct {
	URL     string
	Enabled bool
}

// WebhookNotifier posts raw notification JSON to an arbitrary endpoint.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookNotifier creates a generic JSON webhook notifier
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     config.URL,
		enabled: config.Enabled && config.URL != "",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) IsEnabled() bool { return w.enabled }

func (w *WebhookNotifier) Send(n *Notification) error {
	payload := map[string]interface{}{
		"type":      string(n.Type),
		"title":     n.Title,
		"message":   n.Message,
		"symbol":    n.Symbol,
		"price":     n.Price,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
