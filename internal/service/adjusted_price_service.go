package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/adjust"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/corpaction"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/finmind"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/version"
)

// AdjustedFeed serves a series whose closes already embed corporate actions.
type AdjustedFeed interface {
	FetchAdjusted(ctx context.Context, stockNo string, market model.Market, start, end time.Time) (model.PriceSeries, error)
}

// RawFeed serves unadjusted daily bars of listed securities.
type RawFeed interface {
	FetchRaw(ctx context.Context, stockNo string, start, end time.Time) (model.PriceSeries, error)
}

// Fundamentals serves prices and corporate-action records.
type Fundamentals interface {
	TokenPresent() bool
	FetchPrices(ctx context.Context, stockNo string, start, end time.Time, adjusted bool) (model.PriceSeries, error)
	FetchDividendResults(ctx context.Context, stockNo string, start, end time.Time) (finmind.RecordSet, error)
	FetchSplitPrices(ctx context.Context, stockNo string, start, end time.Time) (finmind.RecordSet, error)
}

// CompositionObserver receives one call per finished composition.
type CompositionObserver interface {
	ObserveComposition(priceSource string, applied int, err error, d time.Duration)
}

// Options tunes the orchestrator.
type Options struct {
	LookbackDays   int           // Corporate-action fetches start this many days before the price range
	RequestTimeout time.Duration // Upper bound of one composition; zero means none
}

// AdjustedPriceService composes adjusted price series from the configured providers.
// Any provider may be nil; a nil adjusted feed disables the back-adjusted path.
type AdjustedPriceService struct {
	adjusted     AdjustedFeed
	primary      RawFeed
	fundamentals Fundamentals
	observer     CompositionObserver
	opts         Options
}

// NewAdjustedPriceService creates a new AdjustedPriceService with the provided providers.
func NewAdjustedPriceService(
	adjusted AdjustedFeed,
	primary RawFeed,
	fundamentals Fundamentals,
	observer CompositionObserver,
	opts Options,
) *AdjustedPriceService {
	return &AdjustedPriceService{
		adjusted:     adjusted,
		primary:      primary,
		fundamentals: fundamentals,
		observer:     observer,
		opts:         opts,
	}
}

// run is the per-request state of one composition.
type run struct {
	req     model.CompositionRequest
	result  *model.CompositionResult
	logger  zerolog.Logger
	labels  []string
	sources []string
}

func (r *run) step(key, status, detail string) {
	r.result.DebugSteps = append(r.result.DebugSteps, model.DebugStep{Key: key, Status: status, Detail: detail})
}

// contribute records a part of the combined label and the dataset behind it.
func (r *run) contribute(label, source string) {
	r.labels = append(r.labels, label)
	if source != "" {
		r.sources = append(r.sources, source)
	}
}

// degrade records an optional stage that failed.
func (r *run) degrade(label, warning string) {
	r.labels = append(r.labels, label+" (Degraded)")
	r.result.Warnings = append(r.result.Warnings, warning)
}

// Compose builds the adjusted series for req.
//
// Sequencing:
//  1. Price rows: the back-adjusted feed unless the caller asked for explicit
//     split or dividend adjustment, then the primary exchange feed, then
//     fundamentals raw prices. Exhausting every provider is fatal.
//  2. Dividend events, unless the price rows are already back-adjusted.
//  3. Split events, only when requested.
//  4. Events are merged chronologically and applied backwards.
//  5. When dividends were expected but nothing applied, factors are inferred
//     from a back-adjusted reference series.
//
// Corporate-action failures never fail the composition; they degrade the
// combined label and add a warning.
//
// Returns a *CompositionError when no price provider produced rows.
func (s *AdjustedPriceService) Compose(ctx context.Context, req model.CompositionRequest) (*model.CompositionResult, error) {
	started := time.Now()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	runID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().
		Str("run_id", runID).
		Str("stock_no", req.StockNo).
		Str("market", string(req.Market)).
		Logger()
	ctx = logger.WithContext(ctx)

	r := &run{
		req:    req,
		logger: logger,
		result: model.NewCompositionResult(version.Version, runID, req.StockNo, string(req.Market)),
	}
	r.result.FinMindStatus = model.FinMindStatus{TokenPresent: s.tokenPresent()}

	series, err := s.fetchPrices(ctx, r)
	if err != nil {
		s.observe("", 0, err, started)
		logger.Error().Err(err).Dur("duration", time.Since(started)).Msg("composition failed")
		return nil, err
	}

	rows := model.SortRows(series.Rows)
	first, last, _ := model.Coverage(rows)
	coverage := corpaction.Range{Start: first, End: last}
	r.result.PriceSource = series.Source
	if series.StockName != "" {
		r.result.StockName = series.StockName
	}
	r.contribute(series.Source, series.Source)

	dividendsExpected := !series.Adjusted || req.Dividend
	var dividends, splits []model.AdjustmentEvent

	if dividendsExpected {
		dividends = s.fetchActions(ctx, r, actionStage{
			key:       model.StageDividendResultFetch,
			dataset:   finmind.DatasetDividendResult,
			label:     "FinMind Dividend Reconciliation",
			fetch:     s.fundamentalsFetch(func(f Fundamentals) recordFetch { return f.FetchDividendResults }),
			normalize: corpaction.NormalizeDividends,
			diag:      &r.result.DividendDiagnostics,
			status:    &r.result.FinMindStatus.DividendResult,
		}, coverage)
	} else {
		r.step(model.StageDividendResultFetch, model.StepSuccess, "skipped: price series is already back-adjusted")
	}

	if req.Split {
		splits = s.fetchActions(ctx, r, actionStage{
			key:       model.StageSplitFetch,
			dataset:   finmind.DatasetSplitPrice,
			label:     "FinMind Split Reconciliation",
			fetch:     s.fundamentalsFetch(func(f Fundamentals) recordFetch { return f.FetchSplitPrices }),
			normalize: corpaction.NormalizeSplits,
			diag:      &r.result.SplitDiagnostics,
			status:    &r.result.FinMindStatus.SplitPrice,
		}, coverage)
	} else {
		r.step(model.StageSplitFetch, model.StepSuccess, "skipped: split adjustment not requested")
	}

	if dividendsExpected {
		r.step(model.StageDividendResultEvents, model.StepSuccess,
			fmt.Sprintf("%d dividend events within %s..%s", len(dividends), first, last))
	} else {
		r.step(model.StageDividendResultEvents, model.StepSuccess, "skipped: no dividend events needed")
	}

	events := corpaction.Merge(dividends, splits)
	applied := adjust.Apply(rows, events)
	r.recordApply(applied, len(events))

	adjustments := applied.Adjustments
	data := applied.Rows
	if applied.Applied() == 0 && dividendsExpected {
		if rec, ok := s.reconcile(ctx, r, rows); ok {
			data = rec.Rows
			adjustments = append(skippedOnly(applied.Adjustments), rec.Adjustments...)
		}
	}

	s.finish(r, data, adjustments, events, len(dividends), len(splits))

	appliedCount := r.result.Summary.AdjustmentEvents
	s.observe(series.Source, appliedCount, nil, started)
	logger.Info().
		Str("price_source", series.Source).
		Str("data_source", r.result.DataSource).
		Int("rows", len(data)).
		Int("events", len(events)).
		Int("applied", appliedCount).
		Int("warnings", len(r.result.Warnings)).
		Dur("duration", time.Since(started)).
		Msg("composition finished")

	return r.result, nil
}

func (s *AdjustedPriceService) tokenPresent() bool {
	return s.fundamentals != nil && s.fundamentals.TokenPresent()
}

func (s *AdjustedPriceService) observe(priceSource string, applied int, err error, started time.Time) {
	if s.observer != nil {
		s.observer.ObserveComposition(priceSource, applied, err, time.Since(started))
	}
}

func (r *run) recordApply(res adjust.Result, events int) {
	applied := res.Applied()
	skipped := len(res.Adjustments) - applied
	detail := fmt.Sprintf("applied %d of %d events", applied, events)
	switch {
	case events == 0:
		r.step(model.StageAdjustmentApply, model.StepSuccess, "no events to apply")
	case skipped > 0:
		reasons := make([]string, 0, len(res.SkipReasons()))
		for reason, n := range res.SkipReasons() {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
		}
		sort.Strings(reasons)
		r.step(model.StageAdjustmentApply, model.StepWarning, detail+"; skipped "+strings.Join(reasons, ", "))
	default:
		r.step(model.StageAdjustmentApply, model.StepSuccess, detail)
	}
}

// finish fills the response body and summary.
func (s *AdjustedPriceService) finish(r *run, data []model.PriceRow, adjustments []model.AppliedAdjustment, events []model.AdjustmentEvent, dividends, splits int) {
	res := r.result
	res.Data = data
	if adjustments != nil {
		res.Adjustments = adjustments
	}
	if events != nil {
		res.DividendEvents = events
	}
	res.DataSource = strings.Join(r.labels, " + ")

	applied, skipped := 0, 0
	reasons := make(map[string]int)
	for _, a := range res.Adjustments {
		if a.Skipped {
			skipped++
			reasons[a.Reason]++
			continue
		}
		applied++
	}

	res.Summary = model.Summary{
		PriceRows:        len(data),
		DividendEvents:   dividends,
		SplitEvents:      splits,
		AdjustmentEvents: applied,
		SkippedEvents:    skipped,
		SkipReasons:      reasons,
		Sources:          append([]string{}, r.sources...),
	}
}

func skippedOnly(adjustments []model.AppliedAdjustment) []model.AppliedAdjustment {
	out := make([]model.AppliedAdjustment, 0, len(adjustments))
	for _, a := range adjustments {
		if a.Skipped {
			out = append(out, a)
		}
	}
	return out
}

// attempt converts one provider call into a diagnostics entry.
func attempt(provider, dataset string, o model.ProviderOutcome, err error, rows, requests, splits int, started time.Time) model.ProviderAttempt {
	a := model.ProviderAttempt{
		Provider:   provider,
		Dataset:    dataset,
		Status:     o.Status,
		Rows:       rows,
		Requests:   requests,
		Splits:     splits,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if err != nil {
		a.Reason = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			a.Reason = "request timed out: " + a.Reason
		}
	}
	return a
}
