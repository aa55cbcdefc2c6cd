package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/adjust"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/apperrors"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/corpaction"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/finmind"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/outcome"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/record"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/twse"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/yahoo"
)

// seriesSource is one provider able to serve a price series.
type seriesSource struct {
	provider     string
	dataset      string
	tokenPresent bool
	fetch        func(ctx context.Context) (model.PriceSeries, error)
}

// priceSources lists the price providers in preference order.
func (s *AdjustedPriceService) priceSources(req model.CompositionRequest) []seriesSource {
	var sources []seriesSource
	if !req.RawSemantics() && s.adjusted != nil {
		sources = append(sources, s.adjustedSource(req))
	}
	if req.Market == model.MarketTWSE && s.primary != nil {
		sources = append(sources, seriesSource{
			provider:     twse.Provider,
			dataset:      twse.Dataset,
			tokenPresent: true,
			fetch: func(ctx context.Context) (model.PriceSeries, error) {
				return s.primary.FetchRaw(ctx, req.StockNo, req.Start, req.End)
			},
		})
	}
	if s.fundamentals != nil {
		sources = append(sources, s.fundamentalsSource(req, false))
	}
	return sources
}

func (s *AdjustedPriceService) adjustedSource(req model.CompositionRequest) seriesSource {
	return seriesSource{
		provider:     yahoo.Provider,
		dataset:      yahoo.Dataset,
		tokenPresent: true,
		fetch: func(ctx context.Context) (model.PriceSeries, error) {
			return s.adjusted.FetchAdjusted(ctx, req.StockNo, req.Market, req.Start, req.End)
		},
	}
}

func (s *AdjustedPriceService) fundamentalsSource(req model.CompositionRequest, adjusted bool) seriesSource {
	dataset := finmind.DatasetPrice
	if adjusted {
		dataset = finmind.DatasetPriceAdj
	}
	return seriesSource{
		provider:     finmind.Provider,
		dataset:      dataset,
		tokenPresent: s.fundamentals.TokenPresent(),
		fetch: func(ctx context.Context) (model.PriceSeries, error) {
			return s.fundamentals.FetchPrices(ctx, req.StockNo, req.Start, req.End, adjusted)
		},
	}
}

// trySources returns the first series with rows. Every call is recorded in diag.
// The index of the serving source is returned with the series, -1 when none served.
func trySources(ctx context.Context, r *run, sources []seriesSource, diag *model.StageDiagnostics) (model.PriceSeries, int, model.ProviderOutcome, error) {
	var lastErr error
	var lastOutcome model.ProviderOutcome
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
				lastOutcome = outcome.FromError(src.tokenPresent, src.dataset, err, 0)
			}
			break
		}

		started := time.Now()
		series, err := src.fetch(ctx)
		if err == nil && len(series.Rows) == 0 {
			err = fmt.Errorf("%s %s: %w", src.provider, src.dataset, apperrors.ErrNoData)
		}
		o := outcome.FromError(src.tokenPresent, src.dataset, err, len(series.Rows))
		diag.Attempts = append(diag.Attempts, attempt(src.provider, src.dataset, o, err, len(series.Rows), series.Requests, series.Splits, started))

		if err == nil {
			diag.Selected = src.provider
			diag.Records = len(series.Rows)
			return series, i, o, nil
		}

		r.logger.Warn().
			Str("provider", src.provider).
			Str("dataset", src.dataset).
			Str("status", string(o.Status)).
			Err(err).
			Msg("price provider failed")
		lastErr, lastOutcome = err, o
	}
	return model.PriceSeries{}, -1, lastOutcome, lastErr
}

// fetchPrices resolves the mandatory price stage.
func (s *AdjustedPriceService) fetchPrices(ctx context.Context, r *run) (model.PriceSeries, error) {
	sources := s.priceSources(r.req)
	if len(sources) == 0 {
		err := fmt.Errorf("no price provider configured: %w", apperrors.ErrProviderDisabled)
		return model.PriceSeries{}, s.priceFailure(r, err, outcome.FromError(true, "", err, 0))
	}

	series, idx, o, err := trySources(ctx, r, sources, &r.result.PriceDiagnostics)
	if err != nil {
		return model.PriceSeries{}, s.priceFailure(r, err, o)
	}

	detail := fmt.Sprintf("%s returned %d rows in %d requests", series.Source, len(series.Rows), series.Requests)
	if idx > 0 {
		r.step(model.StagePriceFetch, model.StepWarning, fmt.Sprintf("%s after %d provider failure(s)", detail, idx))
	} else {
		r.step(model.StagePriceFetch, model.StepSuccess, detail)
	}
	return series, nil
}

func (s *AdjustedPriceService) priceFailure(r *run, err error, o model.ProviderOutcome) error {
	r.step(model.StagePriceFetch, model.StepError, fmt.Sprintf("%s: %v", o.Status, err))
	r.result.Error = err.Error()
	r.result.Hint = o.Hint
	r.result.DataSource = ""
	return &CompositionError{
		Stage:      model.StagePriceFetch,
		StatusCode: exhaustedStatus(err),
		Outcome:    o,
		Result:     r.result,
		Err:        err,
	}
}

type recordFetch func(ctx context.Context, stockNo string, start, end time.Time) (finmind.RecordSet, error)

type normalizer func(records []record.Record, source string, within corpaction.Range) []model.AdjustmentEvent

// actionStage describes one optional corporate-action stage.
type actionStage struct {
	key       string
	dataset   string
	label     string
	fetch     recordFetch
	normalize normalizer
	diag      *model.StageDiagnostics
	status    **model.ProviderOutcome
}

func (s *AdjustedPriceService) fundamentalsFetch(pick func(Fundamentals) recordFetch) recordFetch {
	if s.fundamentals == nil {
		return nil
	}
	return pick(s.fundamentals)
}

// fetchActions runs one corporate-action stage. Records are fetched from
// LookbackDays before the price range and filtered to the price coverage.
// Failures are recorded and yield no events.
func (s *AdjustedPriceService) fetchActions(ctx context.Context, r *run, stage actionStage, coverage corpaction.Range) []model.AdjustmentEvent {
	if stage.fetch == nil {
		err := fmt.Errorf("%s: %w", stage.dataset, apperrors.ErrProviderDisabled)
		o := outcome.FromError(false, stage.dataset, err, 0)
		*stage.status = &o
		r.step(stage.key, model.StepWarning, "fundamentals provider not configured")
		r.degrade(stage.label, fmt.Sprintf("%s unavailable: fundamentals provider not configured", stage.dataset))
		return nil
	}

	start := isodate.AddDays(r.req.Start, -s.opts.LookbackDays)
	started := time.Now()
	set, err := stage.fetch(ctx, r.req.StockNo, start, r.req.End)

	tokenPresent := s.tokenPresent()
	o := outcome.FromError(tokenPresent, stage.dataset, err, len(set.Records))
	*stage.status = &o
	stage.diag.Attempts = append(stage.diag.Attempts,
		attempt(finmind.Provider, stage.dataset, o, err, len(set.Records), set.Requests, set.Splits, started))

	if err != nil {
		r.logger.Warn().
			Str("dataset", stage.dataset).
			Str("status", string(o.Status)).
			Err(err).
			Msg("corporate-action stage degraded")
		r.step(stage.key, model.StepWarning, fmt.Sprintf("%s %s: %s", stage.dataset, o.Status, o.Message))
		r.degrade(stage.label, fmt.Sprintf("%s unavailable (%s): %s", stage.dataset, o.Status, o.Hint))
		return nil
	}

	source := finmind.SourceLabel(stage.dataset)
	events := stage.normalize(set.Records, source, coverage)
	stage.diag.Selected = finmind.Provider
	stage.diag.Records = len(set.Records)
	stage.diag.Events = len(events)
	r.step(stage.key, model.StepSuccess,
		fmt.Sprintf("%d records in %d requests, %d events", len(set.Records), set.Requests, len(events)))
	r.contribute(stage.label, source)
	return events
}

// reconcile infers factors from a back-adjusted reference when explicit
// events applied nothing. It reports false when rows should stay as they are.
func (s *AdjustedPriceService) reconcile(ctx context.Context, r *run, rows []model.PriceRow) (adjust.Result, bool) {
	var refs []seriesSource
	if s.fundamentals != nil && s.fundamentals.TokenPresent() {
		refs = append(refs, s.fundamentalsSource(r.req, true))
	}
	if s.adjusted != nil {
		refs = append(refs, s.adjustedSource(r.req))
	}
	if len(refs) == 0 {
		r.step(model.StageAdjustedSeriesFallback, model.StepWarning, "no back-adjusted reference series available")
		return adjust.Result{}, false
	}

	ref, _, o, err := trySources(ctx, r, refs, &r.result.DividendDiagnostics)
	if err != nil {
		r.step(model.StageAdjustedSeriesFallback, model.StepWarning, fmt.Sprintf("reference series unavailable (%s)", o.Status))
		r.degrade("Factor Reconciliation", fmt.Sprintf("back-adjusted reference unavailable (%s): %s", o.Status, o.Hint))
		return adjust.Result{}, false
	}

	res := adjust.Reconcile(rows, adjust.Rebase(ref.Rows, rows), ref.Source)
	if len(res.Adjustments) == 0 {
		r.step(model.StageAdjustedSeriesFallback, model.StepSuccess, fmt.Sprintf("%s shows no factor changes", ref.Source))
		return adjust.Result{}, false
	}

	r.step(model.StageAdjustedSeriesFallback, model.StepSuccess,
		fmt.Sprintf("%d factor transitions inferred from %s", len(res.Adjustments), ref.Source))
	r.contribute(ref.Source+" Factor Reconciliation", ref.Source)
	return res, true
}
