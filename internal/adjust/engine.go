// Package adjust applies backward multiplicative adjustments to daily
// price series, either from canonical corporate-action events or from
// factors inferred against a provider's own back-adjusted series.
package adjust

import (
	"math"
	"sort"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
)

// maxRatio bounds accepted price ratios; anything above it is treated as bad data.
const maxRatio = 10

// Result is the output of one adjustment run.
type Result struct {
	Rows        []model.PriceRow
	Adjustments []model.AppliedAdjustment
	Factors     model.FactorMap // Factor applied by this run, per date
}

// Applied counts the adjustments that were not skipped.
func (r Result) Applied() int {
	n := 0
	for _, a := range r.Adjustments {
		if !a.Skipped {
			n++
		}
	}
	return n
}

// SkipReasons returns a histogram of skip reasons.
func (r Result) SkipReasons() map[string]int {
	reasons := make(map[string]int)
	for _, a := range r.Adjustments {
		if a.Skipped {
			reasons[a.Reason]++
		}
	}
	return reasons
}

// Apply back-adjusts rows for events.
//
// Events are processed oldest first. Each event multiplies the factor of
// every row strictly before its base row (the first row on or after the
// ex-date with a valid close), so later events stack onto earlier rows.
// The factor already carried by an input row is kept and composed with,
// which makes a rerun with no events a no-op.
func Apply(rows []model.PriceRow, events []model.AdjustmentEvent) Result {
	sorted := prepare(rows)
	factors := make([]float64, len(sorted))
	for i := range factors {
		factors[i] = 1
	}

	ordered := make([]model.AdjustmentEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date < ordered[j].Date })

	adjustments := make([]model.AppliedAdjustment, 0, len(ordered))
	for _, ev := range ordered {
		adjustments = append(adjustments, applyEvent(sorted, factors, ev))
	}

	out, factorMap := finish(sorted, factors)
	return Result{Rows: out, Adjustments: adjustments, Factors: factorMap}
}

func applyEvent(rows []model.PriceRow, factors []float64, ev model.AdjustmentEvent) model.AppliedAdjustment {
	entry := model.AppliedAdjustment{
		Date:         ev.Date,
		Kind:         ev.Kind,
		Source:       ev.Source,
		Ratio:        1,
		BaseRowIndex: -1,
		FactorBefore: 1,
		FactorAfter:  1,
	}

	exIndex := sort.Search(len(rows), func(i int) bool { return rows[i].Date >= ev.Date })
	if exIndex == len(rows) {
		entry.Skipped = true
		entry.Reason = model.SkipMissingPriceRow
		return entry
	}

	base := exIndex
	for base < len(rows) && !rows[base].HasValidClose() {
		base++
	}
	if base == len(rows) {
		entry.Skipped = true
		entry.Reason = model.SkipInvalidBaseClose
		return entry
	}
	entry.BaseRowIndex = base
	entry.BaseDate = rows[base].Date
	entry.BaseClose = rows[base].Close

	ratio, ok := EventRatio(rows[base].Close, ev)
	if !ok {
		entry.Skipped = true
		entry.Reason = model.SkipRatioOutOfRange
		return entry
	}
	entry.Ratio = Round(ratio)

	if base > 0 {
		entry.FactorBefore = Round(factors[base-1])
	}
	for i := 0; i < base; i++ {
		factors[i] *= ratio
	}
	if base > 0 {
		entry.FactorAfter = Round(factors[base-1])
	}
	return entry
}

// EventRatio resolves the price ratio of ev against the base close.
//
// A manual ratio is used as is when it lies in (0, 10) and rejected otherwise.
// Events without one use
// baseClose / (baseClose × (1 + stock) + cash − cashCapitalIncrease × subscriptionPrice)
// where stock = stockDividend + stockCapitalIncrease + cashCapitalIncrease.
// Returns false when the denominator is not positive or the ratio falls outside (0, 10].
func EventRatio(baseClose float64, ev model.AdjustmentEvent) (float64, bool) {
	if r, ok := ev.Ratio(); ok {
		if r > 0 && r < maxRatio {
			return r, true
		}
		return 0, false
	}
	if !model.ValidPrice(baseClose) {
		return 0, false
	}

	stock := ev.StockDividend + ev.StockCapitalIncrease + ev.CashCapitalIncrease
	denominator := baseClose*(1+stock) + ev.CashDividend - ev.CashCapitalIncrease*ev.SubscriptionPrice
	if !(denominator > 0) || math.IsInf(denominator, 0) {
		return 0, false
	}
	ratio := baseClose / denominator
	if !(ratio > 0) || ratio > maxRatio {
		return 0, false
	}
	return ratio, true
}

// prepare sorts and deduplicates rows and fills in the audit fields a
// provider may have left empty.
func prepare(rows []model.PriceRow) []model.PriceRow {
	sorted := model.SortRows(rows)
	for i := range sorted {
		r := &sorted[i]
		if !(r.AdjustedFactor > 0) {
			r.AdjustedFactor = 1
		}
		if r.RawClose <= 0 && r.Close > 0 {
			r.RawOpen = r.Open / r.AdjustedFactor
			r.RawHigh = r.High / r.AdjustedFactor
			r.RawLow = r.Low / r.AdjustedFactor
			r.RawClose = r.Close / r.AdjustedFactor
		}
	}
	return sorted
}

// finish scales every row by its factor and recomputes the day-over-day change.
func finish(rows []model.PriceRow, factors []float64) ([]model.PriceRow, model.FactorMap) {
	out := make([]model.PriceRow, len(rows))
	factorMap := make(model.FactorMap, len(rows))

	for i, r := range rows {
		f := factors[i]
		if !(f > 0) || math.IsInf(f, 0) {
			f = 1
		}
		factorMap[r.Date] = f

		if f != 1 {
			r.Open = scale(r.Open, f)
			r.High = scale(r.High, f)
			r.Low = scale(r.Low, f)
			r.Close = scale(r.Close, f)
		}
		r.AdjustedFactor *= f
		out[i] = r
	}

	for i := range out {
		if i == 0 || !out[i].HasValidClose() || !out[i-1].HasValidClose() {
			out[i].Change = 0
			continue
		}
		out[i].Change = change(out[i].Close, out[i-1].Close)
	}
	return out, factorMap
}
