package adjust

import (
	"math"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
)

// factorEpsilon is the relative factor change that counts as a transition.
const factorEpsilon = 1e-5

// Reconcile infers per-date factors by dividing the reference (already
// back-adjusted) close by the raw close, and applies them to rows.
//
// Dates missing from the reference inherit the nearest earlier factor,
// defaulting to 1. Each factor transition between consecutive rows is
// recorded as a synthesized adjustment labelled with source.
func Reconcile(rows []model.PriceRow, reference []model.PriceRow, source string) Result {
	sorted := prepare(rows)

	refClose := make(map[string]float64, len(reference))
	for _, r := range reference {
		if r.HasValidClose() {
			refClose[r.Date] = r.Close
		}
	}

	factors := make([]float64, len(sorted))
	last := 1.0
	for i, r := range sorted {
		if ref, ok := refClose[r.Date]; ok && r.HasValidClose() {
			if f := ref / r.Close; f > 0 && f <= maxRatio && !math.IsInf(f, 0) {
				last = f
			}
		}
		factors[i] = last
	}

	var adjustments []model.AppliedAdjustment
	for i := 1; i < len(sorted); i++ {
		prev, cur := factors[i-1], factors[i]
		if math.Abs(cur-prev)/prev <= factorEpsilon {
			continue
		}
		direction := model.DirectionFlat
		switch {
		case cur > prev:
			direction = model.DirectionUp
		case cur < prev:
			direction = model.DirectionDown
		}
		adjustments = append(adjustments, model.AppliedAdjustment{
			Date:         sorted[i].Date,
			Source:       source,
			Ratio:        Round(prev / cur),
			BaseRowIndex: i,
			BaseDate:     sorted[i].Date,
			BaseClose:    sorted[i].Close,
			FactorBefore: Round(prev),
			FactorAfter:  Round(cur),
			Direction:    direction,
			Synthesized:  true,
		})
	}

	out, factorMap := finish(sorted, factors)
	return Result{Rows: out, Adjustments: adjustments, Factors: factorMap}
}

// Rebase rescales reference closes so the factor against rows is 1 on the
// last date both series share. A provider's back-adjusted series is anchored
// to its own latest quote, so actions after the requested range would
// otherwise scale the whole range. The reference is returned unchanged when
// the series share no valid date.
func Rebase(reference, rows []model.PriceRow) []model.PriceRow {
	raw := make(map[string]float64, len(rows))
	for _, r := range rows {
		if r.HasValidClose() {
			raw[r.Date] = r.Close
		}
	}

	sorted := model.SortRows(reference)
	anchor := 0.0
	for i := len(sorted) - 1; i >= 0; i-- {
		if c, ok := raw[sorted[i].Date]; ok && sorted[i].HasValidClose() {
			anchor = sorted[i].Close / c
			break
		}
	}
	if !(anchor > 0) || math.IsInf(anchor, 0) || anchor == 1 {
		return sorted
	}

	for i := range sorted {
		sorted[i].Close /= anchor
	}
	return sorted
}
