package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/adjust"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/apperrors"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

// Provider and dataset labels used in diagnostics and metrics.
const (
	Provider = "Yahoo Finance"
	Dataset  = "chart"
)

// SourceLabel is the human readable label of the back-adjusted feed.
const SourceLabel = "Yahoo Finance (adjusted)"

// Feed is the back-adjusted price feed: closes already embed every
// corporate action, and open/high/low are scaled by adjclose / close.
type Feed struct {
	client  *FinanceClient
	fetcher *spanfetch.Fetcher
}

// NewFeed creates a back-adjusted feed.
func NewFeed(client *FinanceClient, fetcher *spanfetch.Fetcher) *Feed {
	return &Feed{client: client, fetcher: fetcher}
}

// Symbol maps a Taiwan stock number to its Yahoo ticker.
func Symbol(stockNo string, market model.Market) string {
	if market == model.MarketTPEX {
		return stockNo + ".TWO"
	}
	return stockNo + ".TW"
}

// FetchAdjusted returns the back-adjusted daily series for [start, end].
func (f *Feed) FetchAdjusted(ctx context.Context, stockNo string, market model.Market, start, end time.Time) (model.PriceSeries, error) {
	symbol := Symbol(stockNo, market)
	var name string

	res, err := spanfetch.Fetch(ctx, f.fetcher, spanfetch.Request[model.PriceRow]{
		Provider: Provider,
		Dataset:  Dataset,
		Start:    start,
		End:      end,
		Query: func(ctx context.Context, span spanfetch.Span) ([]model.PriceRow, error) {
			resp, err := f.client.QuerySymbolByDateRange(ctx, symbol, span.Start, span.End)
			if err != nil {
				return nil, err
			}
			chart, err := f.client.ParseChart(resp)
			if err != nil {
				return nil, spanfetch.Permanent(fmt.Errorf("parse chart for %s: %w", symbol, err))
			}
			if name == "" {
				name = chart.LongName
				if name == "" {
					name = chart.Shortname
				}
			}
			rows := make([]model.PriceRow, 0, len(chart.Indicators))
			for _, ind := range chart.Indicators {
				if ind.Date < span.StartISO() || ind.Date > span.EndISO() {
					continue
				}
				if row, ok := toRow(ind); ok {
					rows = append(rows, row)
				}
			}
			return rows, nil
		},
		Key:    func(r model.PriceRow) string { return r.Date },
		Prefer: func(_, incoming model.PriceRow) bool { return incoming.HasValidClose() },
	})
	if err != nil {
		return model.PriceSeries{}, err
	}
	if len(res.Items) == 0 {
		return model.PriceSeries{}, fmt.Errorf("%s %s: %w", Provider, symbol, apperrors.ErrNoData)
	}

	return model.PriceSeries{
		StockName: name,
		Source:    SourceLabel,
		Adjusted:  true,
		Rows:      res.Items,
		Requests:  res.Requests,
		Splits:    res.Splits,
	}, nil
}

// toRow scales one bar by adjclose / close. Missing high/low fall back to the scaled open.
func toRow(ind Indicators) (model.PriceRow, bool) {
	if !model.ValidPrice(ind.AdjClose) {
		return model.PriceRow{}, false
	}
	rawClose := ind.PriceClose
	factor := 1.0
	if model.ValidPrice(rawClose) {
		factor = ind.AdjClose / rawClose
	} else {
		rawClose = ind.AdjClose
	}

	rawHigh, rawLow := ind.PriceHigh, ind.PriceLow
	if !model.ValidPrice(rawHigh) {
		rawHigh = ind.PriceOpen
	}
	if !model.ValidPrice(rawLow) {
		rawLow = ind.PriceOpen
	}

	return model.PriceRow{
		Date:           ind.Date,
		Open:           adjust.Round(ind.PriceOpen * factor),
		High:           adjust.Round(rawHigh * factor),
		Low:            adjust.Round(rawLow * factor),
		Close:          adjust.Round(ind.AdjClose),
		Volume:         float64(ind.Volume),
		RawOpen:        ind.PriceOpen,
		RawHigh:        rawHigh,
		RawLow:         rawLow,
		RawClose:       rawClose,
		AdjustedFactor: factor,
	}, true
}
