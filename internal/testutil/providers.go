package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/finmind"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/record"
)

// Bar is a compact daily close used to build fake series.
type Bar struct {
	Date  string
	Close float64
}

// RawSeries builds an unadjusted series with open/high/low equal to the close.
func RawSeries(source string, bars ...Bar) model.PriceSeries {
	rows := make([]model.PriceRow, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, model.NewRawRow(b.Date, b.Close, b.Close, b.Close, b.Close, 1000))
	}
	return model.PriceSeries{Source: source, Rows: rows, Requests: 1}
}

// AdjustedSeries builds a back-adjusted series.
func AdjustedSeries(source string, bars ...Bar) model.PriceSeries {
	s := RawSeries(source, bars...)
	s.Adjusted = true
	return s
}

// DividendRecord is a dividend-result row with before/after reference prices.
func DividendRecord(date string, before, after float64) record.Record {
	return record.Record{
		"date":                     date,
		"stock_id":                 "2330",
		"before_price":             before,
		"after_price":              after,
		"stock_and_cache_dividend": before - after,
	}
}

// SplitRecord is a split-price row with before/after reference prices.
func SplitRecord(date string, before, after float64) record.Record {
	return record.Record{
		"date":         date,
		"stock_id":     "2330",
		"before_price": before,
		"after_price":  after,
	}
}

// Call captures the arguments of one fake provider call.
type Call struct {
	Method  string
	StockNo string
	Start   string
	End     string
}

type calls struct {
	mu  sync.Mutex
	log []Call
}

func (c *calls) add(method, stockNo string, start, end time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, Call{Method: method, StockNo: stockNo, Start: isodate.Format(start), End: isodate.Format(end)})
}

// Calls returns the recorded calls in order.
func (c *calls) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.log...)
}

// Count returns how many calls of method were made.
func (c *calls) Count(method string) int {
	n := 0
	for _, call := range c.Calls() {
		if call.Method == method {
			n++
		}
	}
	return n
}

// FakeAdjustedFeed is a back-adjusted price provider with a canned answer.
type FakeAdjustedFeed struct {
	calls
	Series model.PriceSeries
	Err    error
}

func (f *FakeAdjustedFeed) FetchAdjusted(ctx context.Context, stockNo string, _ model.Market, start, end time.Time) (model.PriceSeries, error) {
	f.add("FetchAdjusted", stockNo, start, end)
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, err
	}
	return f.Series, f.Err
}

// FakeRawFeed is a raw price provider with a canned answer.
type FakeRawFeed struct {
	calls
	Series model.PriceSeries
	Err    error
	// Delay blocks each call until it elapses or the context ends.
	Delay time.Duration
}

func (f *FakeRawFeed) FetchRaw(ctx context.Context, stockNo string, start, end time.Time) (model.PriceSeries, error) {
	f.add("FetchRaw", stockNo, start, end)
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return model.PriceSeries{}, ctx.Err()
		}
	}
	return f.Series, f.Err
}

// FakeFundamentals serves canned prices and corporate-action records.
type FakeFundamentals struct {
	calls
	Token bool

	Prices         model.PriceSeries
	PricesErr      error
	AdjustedPrices model.PriceSeries
	AdjustedErr    error

	Dividends    []record.Record
	DividendsErr error
	Splits       []record.Record
	SplitsErr    error
}

func (f *FakeFundamentals) TokenPresent() bool { return f.Token }

func (f *FakeFundamentals) FetchPrices(_ context.Context, stockNo string, start, end time.Time, adjusted bool) (model.PriceSeries, error) {
	if adjusted {
		f.add("FetchPricesAdj", stockNo, start, end)
		return f.AdjustedPrices, f.AdjustedErr
	}
	f.add("FetchPrices", stockNo, start, end)
	return f.Prices, f.PricesErr
}

func (f *FakeFundamentals) FetchDividendResults(_ context.Context, stockNo string, start, end time.Time) (finmind.RecordSet, error) {
	f.add("FetchDividendResults", stockNo, start, end)
	return recordSet(finmind.DatasetDividendResult, f.Dividends, f.DividendsErr)
}

func (f *FakeFundamentals) FetchSplitPrices(_ context.Context, stockNo string, start, end time.Time) (finmind.RecordSet, error) {
	f.add("FetchSplitPrices", stockNo, start, end)
	return recordSet(finmind.DatasetSplitPrice, f.Splits, f.SplitsErr)
}

func recordSet(dataset string, records []record.Record, err error) (finmind.RecordSet, error) {
	if err != nil {
		return finmind.RecordSet{Dataset: dataset, Requests: 1}, err
	}
	return finmind.RecordSet{Dataset: dataset, Records: records, Requests: 1}, nil
}

// CompositionRecorder captures composition observations.
type CompositionRecorder struct {
	mu           sync.Mutex
	PriceSources []string
	Applied      []int
	Errors       []error
}

func (c *CompositionRecorder) ObserveComposition(priceSource string, applied int, err error, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PriceSources = append(c.PriceSources, priceSource)
	c.Applied = append(c.Applied, applied)
	c.Errors = append(c.Errors, err)
}
