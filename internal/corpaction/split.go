package corpaction

import (
	"math"
	"strings"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/record"
)

var ratioKeys = record.Keys("split_ratio", "ratio", "ratio_string", "split_ratio_string")

// ratioTolerance is the distance under which two ratios are considered equal.
const ratioTolerance = 1e-6

// ParseSplitRatio resolves a share multiplier (new shares per old share)
// from an explicit ratio token.
//
//   - "N:M" is new:old shares, multiplier N/M ("2:1" → 2).
//   - "N/M" is the after/before price fraction, multiplier M/N ("1/2" → 2).
//   - A bare number between 10 and 200 is a percentage (200 → 2). This also
//     treats a genuine 10:1 or 150:1 split as a percentage; the heuristic is
//     kept because the upstream dataset publishes percentages in that range.
//
// Multipliers outside (0, 100] are rejected.
func ParseSplitRatio(token string) (float64, bool) {
	s := strings.TrimSpace(token)
	if s == "" {
		return 0, false
	}

	var multiplier float64
	switch {
	case strings.Contains(s, ":"):
		n, m, ok := pair(s, ":")
		if !ok {
			return 0, false
		}
		multiplier = n / m
	case strings.Contains(s, "/"):
		n, m, ok := pair(s, "/")
		if !ok {
			return 0, false
		}
		multiplier = m / n
	default:
		v, ok := record.ParseNumber(s)
		if !ok {
			return 0, false
		}
		multiplier = v
		if multiplier >= 10 && multiplier <= 200 {
			multiplier /= 100
		}
	}

	if !validMultiplier(multiplier) {
		return 0, false
	}
	return multiplier, true
}

// validMultiplier reports whether a share multiplier lies in (0, 100].
func validMultiplier(m float64) bool {
	return m > 0 && m <= 100 && !math.IsInf(m, 0)
}

func pair(s, sep string) (float64, float64, bool) {
	parts := strings.SplitN(s, sep, 2)
	a, okA := record.ParseNumber(parts[0])
	b, okB := record.ParseNumber(parts[1])
	if !okA || !okB || a <= 0 || b <= 0 {
		return 0, 0, false
	}
	return a, b, true
}

// splitPriceRatio resolves the after/before price ratio of one split record.
// A before/after price pair overrides the explicit ratio when the two disagree.
// A pair whose implied multiplier lies outside (0, 100] is ignored.
func splitPriceRatio(rec record.Record) (ratio, before, after float64, ok bool) {
	explicit := 0.0
	if m, ok := ParseSplitRatio(rec.String(ratioKeys...)); ok {
		explicit = 1 / m
	}

	before, okBefore := rec.Positive(beforeKeys...)
	after, okAfter := rec.Positive(afterKeys...)
	if okBefore && okAfter && validMultiplier(before/after) {
		pairRatio := after / before
		if explicit == 0 || math.Abs(pairRatio-explicit) > ratioTolerance {
			return pairRatio, before, after, true
		}
	}
	if explicit == 0 {
		return 0, 0, 0, false
	}
	return explicit, before, after, true
}

// NormalizeSplits builds one event per date from split-price records.
//
// Distinct records on the same date compound: their ratios multiply. Records
// whose ratio equals the one already accumulated are treated as duplicates.
func NormalizeSplits(records []record.Record, source string, within Range) []model.AdjustmentEvent {
	byDate := make(map[string]*model.AdjustmentEvent)
	seen := make(map[string][]float64)

	for _, rec := range records {
		date, ok := recordDate(rec)
		if !ok || !within.Contains(date) {
			continue
		}
		ratio, before, after, ok := splitPriceRatio(rec)
		if !ok || ratio <= 0 {
			continue
		}

		existing, ok := byDate[date]
		if !ok {
			byDate[date] = &model.AdjustmentEvent{
				Date:        date,
				Kind:        model.EventKindSplit,
				ManualRatio: model.RatioPtr(ratio),
				BeforePrice: before,
				AfterPrice:  after,
				Source:      source,
				RawRecords:  []record.Record{rec},
			}
			seen[date] = []float64{ratio}
			continue
		}

		existing.RawRecords = append(existing.RawRecords, rec)
		duplicate := false
		for _, r := range seen[date] {
			if math.Abs(r-ratio) <= ratioTolerance {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		seen[date] = append(seen[date], ratio)
		current, _ := existing.Ratio()
		existing.ManualRatio = model.RatioPtr(current * ratio)
	}

	return sortedEvents(byDate)
}
