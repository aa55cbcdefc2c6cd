package finmind

import (
	"context"
	"fmt"
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/apperrors"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/record"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

// Price fields as FinMind spells them, plus the aliases other feeds use.
var (
	dateKeys   = record.Keys("date", "trading_date")
	openKeys   = record.Keys("open", "open_price")
	highKeys   = record.Keys("max", "high", "high_price")
	lowKeys    = record.Keys("min", "low", "low_price")
	closeKeys  = record.Keys("close", "close_price")
	volumeKeys = append([]string{"Trading_Volume"}, record.Keys("trading_volume", "volume")...)
	spreadKeys = record.Keys("spread", "change")
	nameKeys   = record.Keys("stock_name", "name")
	beforeKeys = record.Keys("before_price")
	afterKeys  = record.Keys("after_price")
)

// RecordSet is the merged result of a corporate-action query.
type RecordSet struct {
	Dataset  string
	Records  []record.Record
	Requests int
	Splits   int
}

// Fundamentals serves FinMind datasets through the span fetcher.
// Prices use short spans; corporate-action datasets are sparse and use long ones.
type Fundamentals struct {
	client *Client
	prices *spanfetch.Fetcher
	events *spanfetch.Fetcher
}

// NewFundamentals creates the fundamentals provider.
func NewFundamentals(client *Client, prices, events *spanfetch.Fetcher) *Fundamentals {
	return &Fundamentals{client: client, prices: prices, events: events}
}

// TokenPresent reports whether the underlying client has credentials.
func (f *Fundamentals) TokenPresent() bool {
	return f.client.TokenPresent()
}

// SourceLabel returns the human readable label for a dataset.
func SourceLabel(dataset string) string {
	return Provider + " " + dataset
}

// FetchPrices returns the raw (TaiwanStockPrice) or back-adjusted
// (TaiwanStockPriceAdj) daily series for [start, end].
func (f *Fundamentals) FetchPrices(ctx context.Context, stockNo string, start, end time.Time, adjusted bool) (model.PriceSeries, error) {
	dataset := DatasetPrice
	if adjusted {
		dataset = DatasetPriceAdj
	}

	var name string
	res, err := spanfetch.Fetch(ctx, f.prices, spanfetch.Request[model.PriceRow]{
		Provider: Provider,
		Dataset:  dataset,
		Start:    start,
		End:      end,
		Query: func(ctx context.Context, span spanfetch.Span) ([]model.PriceRow, error) {
			recs, err := f.client.Query(ctx, dataset, stockNo, span.Start, span.End)
			if err != nil {
				return nil, err
			}
			rows := make([]model.PriceRow, 0, len(recs))
			for _, rec := range recs {
				row, ok := priceRow(rec)
				if !ok {
					continue
				}
				if name == "" {
					name = rec.String(nameKeys...)
				}
				rows = append(rows, row)
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
		return model.PriceSeries{}, fmt.Errorf("%s %s %s: %w", Provider, dataset, stockNo, apperrors.ErrNoData)
	}

	return model.PriceSeries{
		StockName: name,
		Source:    SourceLabel(dataset),
		Adjusted:  adjusted,
		Rows:      res.Items,
		Requests:  res.Requests,
		Splits:    res.Splits,
	}, nil
}

func priceRow(rec record.Record) (model.PriceRow, bool) {
	date, ok := isodate.Normalize(rec.String(dateKeys...))
	if !ok {
		return model.PriceRow{}, false
	}
	closePrice, ok := rec.Positive(closeKeys...)
	if !ok {
		return model.PriceRow{}, false
	}
	open, _ := rec.Positive(openKeys...)
	high, _ := rec.Positive(highKeys...)
	low, _ := rec.Positive(lowKeys...)
	volume, _ := rec.Number(volumeKeys...)

	row := model.NewRawRow(date, open, high, low, closePrice, volume)
	row.Change, _ = rec.Number(spreadKeys...)
	return row, true
}

// FetchDividendResults returns dividend-result records for [start, end].
func (f *Fundamentals) FetchDividendResults(ctx context.Context, stockNo string, start, end time.Time) (RecordSet, error) {
	return f.fetchRecords(ctx, DatasetDividendResult, stockNo, start, end)
}

// FetchSplitPrices returns split-price records for [start, end].
func (f *Fundamentals) FetchSplitPrices(ctx context.Context, stockNo string, start, end time.Time) (RecordSet, error) {
	return f.fetchRecords(ctx, DatasetSplitPrice, stockNo, start, end)
}

func (f *Fundamentals) fetchRecords(ctx context.Context, dataset, stockNo string, start, end time.Time) (RecordSet, error) {
	res, err := spanfetch.Fetch(ctx, f.events, spanfetch.Request[record.Record]{
		Provider: Provider,
		Dataset:  dataset,
		Start:    start,
		End:      end,
		Query: func(ctx context.Context, span spanfetch.Span) ([]record.Record, error) {
			return f.client.Query(ctx, dataset, stockNo, span.Start, span.End)
		},
		Key: recordKey,
	})
	return RecordSet{Dataset: dataset, Records: res.Items, Requests: res.Requests, Splits: res.Splits}, err
}

// recordKey identifies a corporate-action record by date and reference prices,
// so distinct actions on the same day survive the merge.
func recordKey(rec record.Record) string {
	return rec.String(dateKeys...) + "|" + rec.String(beforeKeys...) + "|" + rec.String(afterKeys...)
}
