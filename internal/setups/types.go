// Package setups implements the rule-based setup registry: many independent
// technical setups are scored against one indicator snapshot and resolved
// into at most one dominant directional call.
package setups

// Direction is the directional bias of a setup or pattern.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
	Neutral Direction = "NEUTRAL"
)

// PatternSummary describes the dominant chart pattern for the snapshot.
type PatternSummary struct {
	Name       string    `json:"name"`
	Direction  Direction `json:"direction"`
	Status     string    `json:"status"` // FORMING, CONFIRMED, FAILED
	Confidence float64   `json:"confidence"`
}

// IndicatorContext is the immutable indicator snapshot every setup evaluates
// against. It is supplied fresh each cycle and never mutated.
type IndicatorContext struct {
	Symbol string `json:"symbol"`

	Price      float64 `json:"price"`
	ATR        float64 `json:"atr"`
	ATRPercent float64 `json:"atr_percent"`

	RSI14         float64 `json:"rsi_14"`
	MACDHistogram float64 `json:"macd_histogram"`

	SMA20  float64 `json:"sma_20"`
	SMA50  float64 `json:"sma_50"`
	SMA200 float64 `json:"sma_200"`

	BollUpper        float64 `json:"boll_upper"`
	BollMiddle       float64 `json:"boll_middle"`
	BollLower        float64 `json:"boll_lower"`
	BandwidthPercent float64 `json:"bandwidth_percent"`

	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`

	LastClose float64 `json:"last_close"`
	PrevClose float64 `json:"prev_close"`

	High20 float64 `json:"high_20"` // prior 20-bar high, current bar excluded
	Low20  float64 `json:"low_20"`  // prior 20-bar low, current bar excluded

	Regime string `json:"regime"`

	FundamentalScore float64 `json:"fundamental_score"`
	TechnicalScore   float64 `json:"technical_score"`

	Pattern PatternSummary `json:"pattern"`
}

// SetupResult is the outcome of one setup evaluator. Results are produced,
// ranked, and discarded; they are never mutated after creation.
type SetupResult struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Direction    Direction `json:"direction"`
	Score        float64   `json:"score"` // 0-10
	Passed       bool      `json:"passed"`
	Reasons      []string  `json:"reasons"`
	Entry        string    `json:"entry"`
	Stop         string    `json:"stop"`
	Target       string    `json:"target"`
	Invalidation string    `json:"invalidation"`
	Evidence     []string  `json:"evidence"`
}

// Evaluation is the registry verdict for one snapshot. Best is nil when no
// setup passed or when top bullish and bearish calls conflict; a conflict is
// an explicit no-trade outcome, not an error.
type Evaluation struct {
	Best           *SetupResult  `json:"best,omitempty"`
	Passed         []SetupResult `json:"passed"`
	Conflicts      bool          `json:"conflicts"`
	ConflictReason string        `json:"conflict_reason,omitempty"`
}
