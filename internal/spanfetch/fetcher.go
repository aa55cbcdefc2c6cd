// Package spanfetch issues one logical time-ranged query against an upstream
// provider as a sequence of bounded span requests. Transient failures are
// retried with a capped backoff; failures that look like the provider
// rejecting a large range make the span split at its midpoint and both halves
// re-enter a FIFO work queue. Rows from all spans are merged into one table
// keyed by the provider's natural key.
//
// Requests are strictly sequential and paced by a per-call limiter so a
// single invocation never bursts against upstream rate limits.
package spanfetch

import (
	"context"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Options tunes one fetcher. Zero values fall back to DefaultOptions.
type Options struct {
	MaxSpanDays int           // Longest span requested in one call
	MinSpanDays int           // Spans at or below this size are never split
	Attempts    int           // Request attempts per span before giving up
	BaseDelay   time.Duration // Backoff unit, multiplied by the attempt number
	MaxDelay    time.Duration // Backoff cap
	Jitter      time.Duration // Upper bound of the random delay added to each backoff
	Cooldown    time.Duration // Minimum spacing between successive span requests

	// Partition overrides the fixed MaxSpanDays partitioning (e.g. month-keyed feeds).
	Partition func(start, end time.Time) []Span
}

// DefaultOptions mirrors the limits FinMind tolerates for daily price queries.
func DefaultOptions() Options {
	return Options{
		MaxSpanDays: 120,
		MinSpanDays: 30,
		Attempts:    3,
		BaseDelay:   350 * time.Millisecond,
		MaxDelay:    1800 * time.Millisecond,
		Jitter:      400 * time.Millisecond,
		Cooldown:    160 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxSpanDays == 0 {
		o.MaxSpanDays = d.MaxSpanDays
	}
	if o.MinSpanDays < 1 {
		o.MinSpanDays = 1
	}
	if o.Attempts < 1 {
		o.Attempts = 1
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = d.MaxDelay
	}
	return o
}

// Observer receives per-request events, typically a metrics registry.
type Observer interface {
	ObserveRequest(provider, dataset string, err error)
	ObserveRetry(provider, dataset string)
	ObserveSplit(provider, dataset string)
}

// Request describes one logical query.
type Request[T any] struct {
	Provider string
	Dataset  string
	Start    time.Time
	End      time.Time

	// Query performs one upstream call for a span.
	Query func(ctx context.Context, span Span) ([]T, error)
	// Key returns the natural key used to deduplicate merged rows.
	Key func(T) string
	// Prefer reports whether incoming should replace existing for the same key.
	// Nil means last write wins.
	Prefer func(existing, incoming T) bool
}

// Result is the merged outcome of a logical query.
type Result[T any] struct {
	Items    []T    // Deduplicated rows ordered by key
	Requests int    // Upstream calls issued
	Retries  int    // Calls repeated after a transient failure
	Splits   int    // Spans bisected
	Spans    []Span // Spans that succeeded, in completion order
}

// Fetcher runs span queries with retry, bisection and pacing.
type Fetcher struct {
	opts     Options
	sleep    func(ctx context.Context, d time.Duration) error
	jitter   func() float64
	observer Observer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithSleep replaces the backoff sleep, mostly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) { f.sleep = fn }
}

// WithJitter replaces the jitter source (returns values in [0, 1)).
func WithJitter(fn func() float64) Option {
	return func(f *Fetcher) { f.jitter = fn }
}

// WithObserver attaches a request observer.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) { f.observer = o }
}

// New creates a Fetcher.
func New(opts Options, options ...Option) *Fetcher {
	f := &Fetcher{
		opts:   opts.withDefaults(),
		sleep:  sleepContext,
		jitter: rand.Float64,
	}
	for _, o := range options {
		o(f)
	}
	return f
}

// Options returns the effective options.
func (f *Fetcher) Options() Options {
	return f.opts
}

// Fetch runs req across [req.Start, req.End].
//
// The partition is processed through a FIFO queue. When a span fails with a
// span-related error and is longer than MinSpanDays, its two halves are put
// at the front of the queue, preserving chronological order. Any other
// failure is retried up to Attempts times; once retries are spent the
// failure is returned as a *SpanError carrying the span bounds.
//
// The context is checked before every request so an imposed deadline surfaces
// between spans instead of after all retries.
func Fetch[T any](ctx context.Context, f *Fetcher, req Request[T]) (Result[T], error) {
	var res Result[T]
	logger := zerolog.Ctx(ctx)

	var queue []Span
	if f.opts.Partition != nil {
		queue = f.opts.Partition(req.Start, req.End)
	} else {
		queue = Partition(req.Start, req.End, f.opts.MaxSpanDays)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if f.opts.Cooldown > 0 {
		limiter = rate.NewLimiter(rate.Every(f.opts.Cooldown), 1)
	}

	merged := make(map[string]T)
	for len(queue) > 0 {
		span := queue[0]
		queue = queue[1:]

		if err := ctx.Err(); err != nil {
			return res, &SpanError{Provider: req.Provider, Dataset: req.Dataset, Span: span, Err: err}
		}

		items, attempts, err := runSpan(ctx, f, limiter, req, span, &res)
		if err != nil {
			if ctx.Err() == nil && span.Days() > f.opts.MinSpanDays && spanRelated(err) {
				if left, right, ok := span.Split(); ok {
					res.Splits++
					if f.observer != nil {
						f.observer.ObserveSplit(req.Provider, req.Dataset)
					}
					logger.Warn().
						Str("provider", req.Provider).
						Str("dataset", req.Dataset).
						Str("span", span.String()).
						Int("span_days", span.Days()).
						Err(err).
						Msg("splitting span after failure")
					queue = append([]Span{left, right}, queue...)
					continue
				}
			}
			return res, &SpanError{
				Provider: req.Provider,
				Dataset:  req.Dataset,
				Span:     span,
				Attempts: attempts,
				Err:      err,
			}
		}

		for _, item := range items {
			key := req.Key(item)
			if existing, ok := merged[key]; ok && req.Prefer != nil && !req.Prefer(existing, item) {
				continue
			}
			merged[key] = item
		}
		res.Spans = append(res.Spans, span)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	res.Items = make([]T, 0, len(keys))
	for _, k := range keys {
		res.Items = append(res.Items, merged[k])
	}
	return res, nil
}

// runSpan issues the request for one span, retrying transient failures.
// Span-related failures return immediately so the caller can bisect instead
// of spending retries on a range the provider will keep rejecting.
func runSpan[T any](ctx context.Context, f *Fetcher, limiter *rate.Limiter, req Request[T], span Span, res *Result[T]) ([]T, int, error) {
	logger := zerolog.Ctx(ctx)
	splittable := span.Days() > f.opts.MinSpanDays

	var lastErr error
	for attempt := 1; attempt <= f.opts.Attempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, attempt - 1, err
		}

		items, err := req.Query(ctx, span)
		res.Requests++
		if f.observer != nil {
			f.observer.ObserveRequest(req.Provider, req.Dataset, err)
		}
		if err == nil {
			return items, attempt, nil
		}
		lastErr = err

		if IsPermanent(err) || ctx.Err() != nil {
			return nil, attempt, err
		}
		if splittable && spanRelated(err) {
			return nil, attempt, err
		}
		if attempt == f.opts.Attempts {
			break
		}

		delay := f.backoff(attempt)
		res.Retries++
		if f.observer != nil {
			f.observer.ObserveRetry(req.Provider, req.Dataset)
		}
		logger.Warn().
			Str("provider", req.Provider).
			Str("dataset", req.Dataset).
			Str("span", span.String()).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("retrying span request")
		if err := f.sleep(ctx, delay); err != nil {
			return nil, attempt, err
		}
	}
	return nil, f.opts.Attempts, lastErr
}

// backoff returns BaseDelay × attempt plus jitter, capped at MaxDelay.
func (f *Fetcher) backoff(attempt int) time.Duration {
	d := f.opts.BaseDelay * time.Duration(attempt)
	if f.opts.Jitter > 0 {
		d += time.Duration(f.jitter() * float64(f.opts.Jitter))
	}
	if d > f.opts.MaxDelay {
		d = f.opts.MaxDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
