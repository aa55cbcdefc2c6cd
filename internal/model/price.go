package model

import (
	"math"
	"sort"
)

// PriceRow is one daily bar. Open/High/Low/Close hold the adjusted values;
// the Raw* fields keep the values before any adjustment for audit.
// After adjustment Close == RawClose × AdjustedFactor (within rounding).
type PriceRow struct {
	Date           string  `json:"date"`           // ISO calendar day (YYYY-MM-DD)
	Open           float64 `json:"open"`           // Adjusted open (0 when the provider had none)
	High           float64 `json:"high"`           // Adjusted high
	Low            float64 `json:"low"`            // Adjusted low
	Close          float64 `json:"close"`          // Adjusted close
	Volume         float64 `json:"volume"`         // Shares traded
	RawOpen        float64 `json:"rawOpen"`        // Open before adjustment
	RawHigh        float64 `json:"rawHigh"`        // High before adjustment
	RawLow         float64 `json:"rawLow"`         // Low before adjustment
	RawClose       float64 `json:"rawClose"`       // Close before adjustment
	AdjustedFactor float64 `json:"adjustedFactor"` // Cumulative multiplier applied to the raw values
	Change         float64 `json:"change"`         // Day-over-day change of the adjusted close
}

// NewRawRow builds an unadjusted row: raw values equal the current values and the factor is 1.
func NewRawRow(date string, open, high, low, closePrice, volume float64) PriceRow {
	return PriceRow{
		Date:           date,
		Open:           open,
		High:           high,
		Low:            low,
		Close:          closePrice,
		Volume:         volume,
		RawOpen:        open,
		RawHigh:        high,
		RawLow:         low,
		RawClose:       closePrice,
		AdjustedFactor: 1,
	}
}

// HasValidClose reports whether the row carries a finite, positive close.
func (r PriceRow) HasValidClose() bool {
	return ValidPrice(r.Close)
}

// ValidPrice reports whether v is usable as a price: finite and positive.
func ValidPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// PriceSeries is the common shape every price adapter returns.
type PriceSeries struct {
	StockName string     // Security name from provider metadata (may be empty)
	Source    string     // Human readable provider/dataset label
	Adjusted  bool       // True when closes already embed corporate actions
	Rows      []PriceRow // Unique per date, ascending
	Requests  int        // Upstream requests spent building the series
	Splits    int        // Span bisections performed
}

// SortRows sorts rows ascending by date and drops duplicate dates, keeping the last occurrence.
func SortRows(rows []PriceRow) []PriceRow {
	byDate := make(map[string]PriceRow, len(rows))
	for _, r := range rows {
		if r.Date == "" {
			continue
		}
		byDate[r.Date] = r
	}
	out := make([]PriceRow, 0, len(byDate))
	for _, r := range byDate {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Coverage returns the first and last dates of sorted rows.
func Coverage(rows []PriceRow) (first, last string, ok bool) {
	if len(rows) == 0 {
		return "", "", false
	}
	return rows[0].Date, rows[len(rows)-1].Date, true
}

// FactorMap maps an ISO date to the cumulative multiplicative factor applied on that date.
type FactorMap map[string]float64

// Get returns the factor for date, defaulting to 1.
func (m FactorMap) Get(date string) float64 {
	if f, ok := m[date]; ok && f > 0 {
		return f
	}
	return 1
}
