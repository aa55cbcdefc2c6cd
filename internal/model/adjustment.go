package model

import "github.com/ndewijer/Adjusted-Price-Engine/internal/record"

// Event kinds.
const (
	EventKindDividend = "dividend"
	EventKindSplit    = "split"
)

// Skip reasons recorded on AppliedAdjustment.
const (
	SkipMissingPriceRow  = "missingPriceRow"
	SkipInvalidBaseClose = "invalidBaseClose"
	SkipRatioOutOfRange  = "ratioOutOfRange"
)

// Factor transition directions used by synthesized audit entries.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// AdjustmentEvent is the canonical corporate-action event: one per ex-date per dataset.
// When ManualRatio is set it is used directly; otherwise the ratio is derived from the
// dividend and capital increase components against the base close.
type AdjustmentEvent struct {
	Date                 string          `json:"date"`                   // Ex-date (YYYY-MM-DD)
	Kind                 string          `json:"kind"`                   // "dividend" or "split"
	ManualRatio          *float64        `json:"manualRatio,omitempty"`  // Preferred price ratio (after/before)
	BeforePrice          float64         `json:"beforePrice,omitempty"`  // Reference price before the event
	AfterPrice           float64         `json:"afterPrice,omitempty"`   // Reference price after the event
	CashDividend         float64         `json:"cashDividend,omitempty"` // Cash dividend per share
	StockDividend        float64         `json:"stockDividend,omitempty"`
	CashCapitalIncrease  float64         `json:"cashCapitalIncrease,omitempty"`
	StockCapitalIncrease float64         `json:"stockCapitalIncrease,omitempty"`
	SubscriptionPrice    float64         `json:"subscriptionPrice,omitempty"`
	Source               string          `json:"source"`               // Provider/dataset label
	RawRecords           []record.Record `json:"rawRecords,omitempty"` // Provider rows merged into this event
}

// Ratio returns the manual ratio when present.
func (e AdjustmentEvent) Ratio() (float64, bool) {
	if e.ManualRatio == nil {
		return 0, false
	}
	return *e.ManualRatio, true
}

// RatioPtr is a helper for building events with a manual ratio.
func RatioPtr(v float64) *float64 {
	return &v
}

// AppliedAdjustment is the audit entry for one event, applied or skipped.
type AppliedAdjustment struct {
	Date         string  `json:"date"`                // Ex-date of the event
	Kind         string  `json:"kind,omitempty"`      // Event kind, empty for synthesized entries
	Source       string  `json:"source,omitempty"`    // Dataset label of the event
	Ratio        float64 `json:"ratio"`               // Price ratio applied (1 when skipped)
	BaseRowIndex int     `json:"baseRowIndex"`        // Index of the first valid row on/after the ex-date (-1 when missing)
	BaseDate     string  `json:"baseDate,omitempty"`  // Date of the base row
	BaseClose    float64 `json:"baseClose,omitempty"` // Close used as the base for the ratio
	FactorBefore float64 `json:"factorBefore"`        // Factor of the row preceding the base row before applying
	FactorAfter  float64 `json:"factorAfter"`         // Factor of the same row after applying
	Skipped      bool    `json:"skipped"`
	Reason       string  `json:"reason,omitempty"`    // Skip reason
	Direction    string  `json:"direction,omitempty"` // up/down/flat, set on synthesized entries
	Synthesized  bool    `json:"synthesized,omitempty"`
}
