package spanfetch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("HTTP %d", e.code) }
func (e statusErr) HTTPStatus() int { return e.code }

type dayRow struct {
	date  string
	value int
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newTestFetcher(opts spanfetch.Options) *spanfetch.Fetcher {
	return spanfetch.New(opts, spanfetch.WithSleep(noSleep), spanfetch.WithJitter(func() float64 { return 0 }))
}

// rowsFor returns one row per day in the span.
func rowsFor(span spanfetch.Span) []dayRow {
	var rows []dayRow
	for d := span.Start; !d.After(span.End); d = isodate.AddDays(d, 1) {
		rows = append(rows, dayRow{date: isodate.Format(d), value: 1})
	}
	return rows
}

func dayKey(r dayRow) string { return r.date }

func TestPartition(t *testing.T) {
	spans := spanfetch.Partition(isodate.MustParse("2024-01-01"), isodate.MustParse("2024-01-10"), 4)

	want := []string{"2024-01-01~2024-01-04", "2024-01-05~2024-01-08", "2024-01-09~2024-01-10"}
	if len(spans) != len(want) {
		t.Fatalf("Expected %d spans, got %d", len(want), len(spans))
	}
	for i, s := range spans {
		if s.String() != want[i] {
			t.Errorf("span[%d] = %s, want %s", i, s, want[i])
		}
	}

	if got := spanfetch.Partition(isodate.MustParse("2024-02-01"), isodate.MustParse("2024-01-01"), 4); got != nil {
		t.Errorf("Expected no spans for reversed range, got %v", got)
	}
}

func TestMonthPartition(t *testing.T) {
	spans := spanfetch.MonthPartition(isodate.MustParse("2024-01-20"), isodate.MustParse("2024-03-05"))

	want := []string{"2024-01-20~2024-01-31", "2024-02-01~2024-02-29", "2024-03-01~2024-03-05"}
	if len(spans) != len(want) {
		t.Fatalf("Expected %d spans, got %d", len(want), len(spans))
	}
	for i, s := range spans {
		if s.String() != want[i] {
			t.Errorf("span[%d] = %s, want %s", i, s, want[i])
		}
	}
}

func TestSpan_Split(t *testing.T) {
	span := spanfetch.NewSpan(isodate.MustParse("2024-01-01"), isodate.MustParse("2024-01-05"))
	left, right, ok := span.Split()
	if !ok {
		t.Fatal("Expected a 5 day span to split")
	}
	if left.String() != "2024-01-01~2024-01-03" || right.String() != "2024-01-04~2024-01-05" {
		t.Errorf("unexpected halves %s / %s", left, right)
	}
	if left.Days()+right.Days() != span.Days() {
		t.Error("halves must cover the span exactly")
	}

	one := spanfetch.NewSpan(isodate.MustParse("2024-01-01"), isodate.MustParse("2024-01-01"))
	if _, _, ok := one.Split(); ok {
		t.Error("single day span must not split")
	}
}

func TestFetch(t *testing.T) {
	start := isodate.MustParse("2024-01-01")
	end := isodate.MustParse("2024-03-31")

	t.Run("merges spans and deduplicates by key", func(t *testing.T) {
		f := newTestFetcher(spanfetch.Options{MaxSpanDays: 30, MinSpanDays: 10, Attempts: 2})
		res, err := spanfetch.Fetch(context.Background(), f, spanfetch.Request[dayRow]{
			Provider: "test",
			Start:    start,
			End:      end,
			Query: func(_ context.Context, span spanfetch.Span) ([]dayRow, error) {
				// Overlap one day on both sides to exercise deduplication.
				padded := spanfetch.NewSpan(isodate.AddDays(span.Start, -1), isodate.AddDays(span.End, 1))
				return rowsFor(padded), nil
			},
			Key: dayKey,
		})
		if err != nil {
			t.Fatalf("Fetch() returned unexpected error: %v", err)
		}
		if len(res.Items) != 93 {
			t.Errorf("Expected 93 unique days (+2 padding), got %d", len(res.Items))
		}
		if res.Items[0].date != "2023-12-31" {
			t.Errorf("Expected items ordered by key, first is %s", res.Items[0].date)
		}
		if res.Requests != 4 {
			t.Errorf("Expected 4 span requests, got %d", res.Requests)
		}
	})

	t.Run("prefer keeps the more authoritative row", func(t *testing.T) {
		f := newTestFetcher(spanfetch.Options{MaxSpanDays: 1, MinSpanDays: 1, Attempts: 1})
		calls := 0
		res, err := spanfetch.Fetch(context.Background(), f, spanfetch.Request[dayRow]{
			Start: start,
			End:   isodate.AddDays(start, 1),
			Query: func(_ context.Context, _ spanfetch.Span) ([]dayRow, error) {
				calls++
				if calls == 1 {
					return []dayRow{{date: "k", value: 5}}, nil
				}
				return []dayRow{{date: "k", value: 0}}, nil
			},
			Key:    dayKey,
			Prefer: func(_, incoming dayRow) bool { return incoming.value > 0 },
		})
		if err != nil {
			t.Fatalf("Fetch() returned unexpected error: %v", err)
		}
		if len(res.Items) != 1 || res.Items[0].value != 5 {
			t.Errorf("Expected the positive row to survive, got %+v", res.Items)
		}
	})

	t.Run("bisects large spans on splittable status", func(t *testing.T) {
		f := newTestFetcher(spanfetch.Options{MaxSpanDays: 120, MinSpanDays: 10, Attempts: 3})
		res, err := spanfetch.Fetch(context.Background(), f, spanfetch.Request[dayRow]{
			Provider: "test",
			Start:    start,
			End:      end,
			Query: func(_ context.Context, span spanfetch.Span) ([]dayRow, error) {
				if span.Days() > 30 {
					return nil, statusErr{code: 503}
				}
				return rowsFor(span), nil
			},
			Key: dayKey,
		})
		if err != nil {
			t.Fatalf("Fetch() returned unexpected error: %v", err)
		}
		if len(res.Items) != 91 {
			t.Errorf("Expected 91 days, got %d", len(res.Items))
		}
		if res.Splits == 0 {
			t.Error("Expected at least one split")
		}
		if res.Retries != 0 {
			t.Errorf("Expected splitting instead of retrying, got %d retries", res.Retries)
		}
		for i := 1; i < len(res.Spans); i++ {
			if !res.Spans[i].Start.After(res.Spans[i-1].End) {
				t.Errorf("spans completed out of order: %s then %s", res.Spans[i-1], res.Spans[i])
			}
		}
	})

	t.Run("retries transient failures", func(t *testing.T) {
		f := newTestFetcher(spanfetch.Options{MaxSpanDays: -1, MinSpanDays: 400, Attempts: 3})
		calls := 0
		res, err := spanfetch.Fetch(context.Background(), f, spanfetch.Request[dayRow]{
			Start: start,
			End:   end,
			Query: func(_ context.Context, span spanfetch.Span) ([]dayRow, error) {
				calls++
				if calls < 3 {
					return nil, statusErr{code: 503}
				}
				return rowsFor(span), nil
			},
			Key: dayKey,
		})
		if err != nil {
			t.Fatalf("Fetch() returned unexpected error: %v", err)
		}
		if res.Retries != 2 || res.Requests != 3 {
			t.Errorf("Expected 2 retries over 3 requests, got %d / %d", res.Retries, res.Requests)
		}
	})

	t.Run("exhausted span carries its bounds", func(t *testing.T) {
		f := newTestFetcher(spanfetch.Options{MaxSpanDays: 60, MinSpanDays: 60, Attempts: 2})
		_, err := spanfetch.Fetch(context.Background(), f, spanfetch.Request[dayRow]{
			Provider: "test",
			Dataset:  "ds",
			Start:    start,
			End:      end,
			Query: func(_ context.Context, span spanfetch.Span) ([]dayRow, error) {
				if span.Start.Month() == time.March {
					return nil, statusErr{code: 500}
				}
				return rowsFor(span), nil
			},
			Key: dayKey,
		})
		se, ok := spanfetch.AsSpanError(err)
		if !ok {
			t.Fatalf("Expected *SpanError, got %v", err)
		}
		if se.Span.StartISO() != "2024-03-01" || se.Span.EndISO() != "2024-03-31" {
			t.Errorf("Expected failing span 2024-03-01~2024-03-31, got %s", se.Span)
		}
		if se.Attempts != 2 {
			t.Errorf("Expected 2 attempts, got %d", se.Attempts)
		}
		if spanfetch.StatusCode(err) != 500 {
			t.Errorf("Expected status 500 to stay reachable, got %d", spanfetch.StatusCode(err))
		}
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		f := newTestFetcher(spanfetch.Options{MaxSpanDays: 120, MinSpanDays: 1, Attempts: 5})
		calls := 0
		_, err := spanfetch.Fetch(context.Background(), f, spanfetch.Request[dayRow]{
			Start: start,
			End:   end,
			Query: func(_ context.Context, _ spanfetch.Span) ([]dayRow, error) {
				calls++
				return nil, spanfetch.Permanent(statusErr{code: 503})
			},
			Key: dayKey,
		})
		if err == nil || !spanfetch.IsPermanent(err) {
			t.Fatalf("Expected permanent error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("Expected exactly 1 call, got %d", calls)
		}
	})

	t.Run("cancelled context surfaces between spans", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		f := newTestFetcher(spanfetch.Options{MaxSpanDays: 10, MinSpanDays: 1, Attempts: 3})
		calls := 0
		_, err := spanfetch.Fetch(ctx, f, spanfetch.Request[dayRow]{
			Start: start,
			End:   end,
			Query: func(_ context.Context, span spanfetch.Span) ([]dayRow, error) {
				calls++
				cancel()
				return rowsFor(span), nil
			},
			Key: dayKey,
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("Expected to stop after the first span, got %d calls", calls)
		}
	})
}

// TestFetch_BisectionTerminates tests that a provider that always fails
// cannot make the bisection loop forever.
//
// WHY: every split halves the span and spans at MinSpanDays are never split,
// so the number of requests is bounded by the size of the bisection tree.
func TestFetch_BisectionTerminates(t *testing.T) {
	for _, minDays := range []int{1, 3, 30} {
		t.Run(fmt.Sprintf("min=%d", minDays), func(t *testing.T) {
			f := newTestFetcher(spanfetch.Options{MaxSpanDays: 512, MinSpanDays: minDays, Attempts: 1})
			start := isodate.MustParse("2020-01-01")
			res, err := spanfetch.Fetch(context.Background(), f, spanfetch.Request[dayRow]{
				Start: start,
				End:   isodate.AddDays(start, 511),
				Query: func(_ context.Context, _ spanfetch.Span) ([]dayRow, error) {
					return nil, errors.New("socket hang up")
				},
				Key: dayKey,
			})
			if err == nil {
				t.Fatal("Expected failure from an always failing provider")
			}
			se, ok := spanfetch.AsSpanError(err)
			if !ok {
				t.Fatalf("Expected *SpanError, got %v", err)
			}
			if se.Span.Days() > minDays {
				t.Errorf("Expected the failing span to be at most %d days, got %d", minDays, se.Span.Days())
			}
			// Depth-first down the left edge: one request per level.
			if res.Requests > 12 {
				t.Errorf("Expected at most log2(512)+2 requests, got %d", res.Requests)
			}
		})
	}
}
