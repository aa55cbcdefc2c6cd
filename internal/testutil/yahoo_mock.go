package testutil

import (
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/yahoo"
)

// YahooBar is one bar used to build a mock chart response.
// A nil AdjClose or Open is emitted as JSON null.
type YahooBar struct {
	Date     string
	Open     *float64
	High     *float64
	Low      *float64
	Close    *float64
	AdjClose *float64
	Volume   int64
}

// F returns a pointer to v, for building bars inline.
func F(v float64) *float64 { return &v }

// NewYahooBar builds a complete bar where high/low are close ± 1 and adjClose = close × factor.
func NewYahooBar(date string, closePrice, factor float64) YahooBar {
	return YahooBar{
		Date:     date,
		Open:     F(closePrice),
		High:     F(closePrice + 1),
		Low:      F(closePrice - 1),
		Close:    F(closePrice),
		AdjClose: F(closePrice * factor),
		Volume:   1000000,
	}
}

// CreateMockYahooResponse creates a chart response for a Taiwan listed symbol.
// Bars are stamped at 09:00 Taipei time with a +8h gmtoffset.
func CreateMockYahooResponse(symbol string, bars []YahooBar) yahoo.Response {
	const taipeiOffset = 8 * 60 * 60

	timestamps := make([]int64, len(bars))
	quote := yahoo.Quote{
		Open:   make([]*float64, len(bars)),
		High:   make([]*float64, len(bars)),
		Low:    make([]*float64, len(bars)),
		Close:  make([]*float64, len(bars)),
		Volume: make([]*int64, len(bars)),
	}
	adj := make([]*float64, len(bars))

	for i, b := range bars {
		day := isodate.MustParse(b.Date)
		timestamps[i] = day.Add(time.Hour).Unix() // 01:00 UTC = 09:00 local
		quote.Open[i] = b.Open
		quote.High[i] = b.High
		quote.Low[i] = b.Low
		quote.Close[i] = b.Close
		vol := b.Volume
		quote.Volume[i] = &vol
		adj[i] = b.AdjClose
	}

	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{
				{
					Meta: yahoo.Meta{
						Symbol:       symbol,
						Currency:     "TWD",
						ExchangeName: "TAI",
						LongName:     "Taiwan Semiconductor Manufacturing Company Limited",
						Shortname:    "TSMC",
						GmtOffset:    taipeiOffset,
					},
					Timestamp: timestamps,
					Indicators: yahoo.IndicatorsContainer{
						Quote:    []yahoo.Quote{quote},
						AdjClose: []yahoo.AdjClose{{AdjClose: adj}},
					},
				},
			},
		},
	}
}

// CreateMockYahooErrorResponse creates a chart response carrying an error object.
func CreateMockYahooErrorResponse(code, description string) yahoo.Response {
	return yahoo.Response{
		Chart: yahoo.Chart{
			Error: &yahoo.ChartError{Code: code, Description: description},
		},
	}
}
