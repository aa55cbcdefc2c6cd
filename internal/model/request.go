package model

import "time"

// CompositionRequest is a validated request for one adjusted series.
type CompositionRequest struct {
	StockNo  string
	Market   Market
	Start    time.Time // Inclusive, midnight UTC
	End      time.Time // Inclusive, clamped to today
	Split    bool      // Raw semantics with split adjustment
	Dividend bool      // Raw semantics with explicit dividend adjustment
}

// RawSemantics reports whether the caller asked for explicit corporate-action
// processing instead of the provider's own back-adjusted series.
func (r CompositionRequest) RawSemantics() bool {
	return r.Split || r.Dividend
}
