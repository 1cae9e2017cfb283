package autopilot

import "time"

// ActionType labels one audited decision inside a tick or sweep.
type ActionType string

const (
	ActionSkip           ActionType = "SKIP"
	ActionTrackPaper     ActionType = "TRACK_PAPER"
	ActionPlaceLiveOrder ActionType = "PLACE_LIVE_ORDER"
	ActionStopUpdated    ActionType = "STOP_UPDATED"
	ActionClosed         ActionType = "CLOSED"
	ActionExitSubmitted  ActionType = "EXIT_SUBMITTED"
)

// Action is a write-once audit record of one decision.
type Action struct {
	Type       ActionType `json:"type"`
	Symbol     string     `json:"symbol,omitempty"`
	StrategyID string     `json:"strategyId,omitempty"`
	PositionID string     `json:"positionId,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	Price      float64    `json:"price,omitempty"`
	At         time.Time  `json:"at"`
}

// RunLogEntry summarizes one full tick or sweep. One entry is written
// per cycle regardless of outcome, including failures.
type RunLogEntry struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // "tick" or "sweep"
	Mode       Mode      `json:"mode"`
	DryRun     bool      `json:"dryRun"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	Actions    []Action  `json:"actions"`
	Skips      int       `json:"skips"`
	Executed   int       `json:"executed"`
	Candidates int       `json:"candidates"`
}
