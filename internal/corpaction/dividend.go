// Package corpaction turns raw corporate-action records from the
// fundamentals provider into canonical adjustment events.
package corpaction

import (
	"sort"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/record"
)

// Field spellings probed on every corporate-action record.
var (
	dateKeys   = record.Keys("date", "ex_date", "ex_dividend_date", "trading_date")
	beforeKeys = record.Keys("before_price", "before_close", "previous_close")
	afterKeys  = record.Keys("after_price", "reference_price", "after_close")
	totalKeys  = record.Keys("stock_and_cache_dividend", "cash_dividend", "dividend_total")
	stockKeys  = record.Keys("stock_dividend", "stock_earnings_distribution")

	dividendDateKeys = record.Keys("cash_dividend_ex_date", "stock_dividend_ex_date",
		"ex_dividend_date", "ex_rights_date", "date", "ex_date", "trading_date")
	cashKeys         = record.Keys("cash_dividend", "cash_earnings_distribution")
	cashCapitalKeys  = record.Keys("cash_capital_increase")
	stockCapitalKeys = record.Keys("stock_capital_increase")
	subscriptionKeys = record.Keys("cash_capital_increase_subscription_price", "subscription_price")
)

// Range limits normalized events to a date window. Empty bounds are open.
type Range struct {
	Start string
	End   string
}

// Contains reports whether the ISO date falls inside the range.
func (r Range) Contains(date string) bool {
	if r.Start != "" && date < r.Start {
		return false
	}
	if r.End != "" && date > r.End {
		return false
	}
	return true
}

// recordDate resolves and normalizes the event date of a raw record.
func recordDate(rec record.Record) (string, bool) {
	return isodate.Normalize(rec.String(dateKeys...))
}

// NormalizeDividends builds one event per ex-date from dividend records.
//
// A record with a before/after reference price pair yields the manual ratio
// afterPrice / beforePrice; a pair whose ratio is 1 or more does not dilute
// the reference price and the record is discarded. A record without a pair
// yields an event carrying its dividend and capital increase components, and
// the ratio is derived from them against the base close when applied. Records
// with neither are dropped.
//
// When several records share an ex-date the lowest manual ratio wins and
// components are taken from whichever record carries them.
func NormalizeDividends(records []record.Record, source string, within Range) []model.AdjustmentEvent {
	byDate := make(map[string]*model.AdjustmentEvent)

	for _, rec := range records {
		date, ok := isodate.Normalize(rec.String(dividendDateKeys...))
		if !ok || !within.Contains(date) {
			continue
		}
		ev, ok := dividendEvent(rec, date, source)
		if !ok {
			continue
		}

		existing, ok := byDate[date]
		if !ok {
			byDate[date] = &ev
			continue
		}
		mergeDividend(existing, ev)
	}

	return sortedEvents(byDate)
}

func dividendEvent(rec record.Record, date, source string) (model.AdjustmentEvent, bool) {
	ev := model.AdjustmentEvent{
		Date:       date,
		Kind:       model.EventKindDividend,
		Source:     source,
		RawRecords: []record.Record{rec},
	}

	before, okBefore := rec.Positive(beforeKeys...)
	after, okAfter := rec.Positive(afterKeys...)
	if okBefore && okAfter {
		ratio := after / before
		if ratio >= 1 {
			return ev, false
		}
		ev.ManualRatio = model.RatioPtr(ratio)
		ev.BeforePrice = before
		ev.AfterPrice = after
		ev.CashDividend, _ = rec.Positive(totalKeys...)
		ev.StockDividend, _ = rec.Positive(stockKeys...)
		return ev, true
	}

	ev.CashDividend, _ = rec.Positive(cashKeys...)
	ev.StockDividend, _ = rec.Positive(stockKeys...)
	ev.CashCapitalIncrease, _ = rec.Positive(cashCapitalKeys...)
	ev.StockCapitalIncrease, _ = rec.Positive(stockCapitalKeys...)
	ev.SubscriptionPrice, _ = rec.Positive(subscriptionKeys...)
	if ev.CashDividend == 0 && ev.StockDividend == 0 && ev.CashCapitalIncrease == 0 && ev.StockCapitalIncrease == 0 {
		return ev, false
	}
	return ev, true
}

// mergeDividend folds a same-date event into existing.
func mergeDividend(existing *model.AdjustmentEvent, ev model.AdjustmentEvent) {
	existing.RawRecords = append(existing.RawRecords, ev.RawRecords...)

	if ratio, ok := ev.Ratio(); ok {
		if current, has := existing.Ratio(); !has || ratio < current {
			existing.ManualRatio = model.RatioPtr(ratio)
			existing.BeforePrice = ev.BeforePrice
			existing.AfterPrice = ev.AfterPrice
		}
	}

	fill := func(dst *float64, v float64) {
		if *dst == 0 && v > 0 {
			*dst = v
		}
	}
	fill(&existing.CashDividend, ev.CashDividend)
	fill(&existing.StockDividend, ev.StockDividend)
	fill(&existing.CashCapitalIncrease, ev.CashCapitalIncrease)
	fill(&existing.StockCapitalIncrease, ev.StockCapitalIncrease)
	fill(&existing.SubscriptionPrice, ev.SubscriptionPrice)
}

func sortedEvents(byDate map[string]*model.AdjustmentEvent) []model.AdjustmentEvent {
	events := make([]model.AdjustmentEvent, 0, len(byDate))
	for _, ev := range byDate {
		events = append(events, *ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	return events
}

// Merge combines event lists into one chronological list. On the same date
// dividend events come before split events.
func Merge(lists ...[]model.AdjustmentEvent) []model.AdjustmentEvent {
	var all []model.AdjustmentEvent
	for _, l := range lists {
		all = append(all, l...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Date != all[j].Date {
			return all[i].Date < all[j].Date
		}
		return kindOrder(all[i].Kind) < kindOrder(all[j].Kind)
	})
	return all
}

func kindOrder(kind string) int {
	if kind == model.EventKindDividend {
		return 0
	}
	return 1
}
