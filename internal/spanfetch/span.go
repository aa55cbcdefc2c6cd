package spanfetch

import (
	"fmt"
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
)

// Span is an inclusive range of calendar days.
type Span struct {
	Start time.Time
	End   time.Time
}

// NewSpan builds a span from two instants, truncated to calendar days.
func NewSpan(start, end time.Time) Span {
	return Span{Start: isodate.Truncate(start), End: isodate.Truncate(end)}
}

// Days returns the number of calendar days covered by the span.
func (s Span) Days() int {
	return isodate.DaysInclusive(s.Start, s.End)
}

// StartISO returns the span start as YYYY-MM-DD.
func (s Span) StartISO() string { return isodate.Format(s.Start) }

// EndISO returns the span end as YYYY-MM-DD.
func (s Span) EndISO() string { return isodate.Format(s.End) }

func (s Span) String() string {
	return fmt.Sprintf("%s~%s", s.StartISO(), s.EndISO())
}

// Split cuts the span at its midpoint into two contiguous halves.
// Returns false for spans shorter than two days.
func (s Span) Split() (Span, Span, bool) {
	days := s.Days()
	if days < 2 {
		return Span{}, Span{}, false
	}
	mid := isodate.AddDays(s.Start, (days-1)/2)
	return Span{Start: s.Start, End: mid}, Span{Start: isodate.AddDays(mid, 1), End: s.End}, true
}

// Partition cuts [start, end] into sequential spans of at most maxDays days.
// A non-positive maxDays yields the whole range as one span.
func Partition(start, end time.Time, maxDays int) []Span {
	whole := NewSpan(start, end)
	if whole.Start.After(whole.End) {
		return nil
	}
	if maxDays <= 0 {
		return []Span{whole}
	}

	var spans []Span
	cursor := whole.Start
	for !cursor.After(whole.End) {
		spanEnd := isodate.AddDays(cursor, maxDays-1)
		if spanEnd.After(whole.End) {
			spanEnd = whole.End
		}
		spans = append(spans, Span{Start: cursor, End: spanEnd})
		cursor = isodate.AddDays(spanEnd, 1)
	}
	return spans
}

// MonthPartition cuts [start, end] at calendar month boundaries.
func MonthPartition(start, end time.Time) []Span {
	whole := NewSpan(start, end)
	var spans []Span
	for _, m := range isodate.MonthStarts(whole.Start, whole.End) {
		s := m
		if s.Before(whole.Start) {
			s = whole.Start
		}
		e := m.AddDate(0, 1, -1)
		if e.After(whole.End) {
			e = whole.End
		}
		spans = append(spans, Span{Start: s, End: e})
	}
	return spans
}
