// Package twse is the primary exchange feed: raw daily bars from the TWSE
// STOCK_DAY report, one request per calendar month.
package twse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/apperrors"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/record"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

// DefaultBaseURL is the TWSE report host.
const DefaultBaseURL = "https://www.twse.com.tw"

// Provider and dataset labels used in diagnostics and metrics.
const (
	Provider = "TWSE"
	Dataset  = "STOCK_DAY"
)

// SourceLabel is the human readable label of the primary feed.
const SourceLabel = "TWSE STOCK_DAY"

// Column positions in a STOCK_DAY data row.
const (
	colDate   = 0
	colVolume = 1
	colOpen   = 3
	colHigh   = 4
	colLow    = 5
	colClose  = 6
	colChange = 7
)

// statOK is the stat value of a successful report.
const statOK = "OK"

// APIError is a non-2xx response or a report whose stat is not OK.
type APIError struct {
	StatusCode int
	Stat       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twse error: HTTP %d: %s", e.StatusCode, e.Stat)
}

// HTTPStatus returns the upstream HTTP status.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// UpstreamMessage returns the report stat text.
func (e *APIError) UpstreamMessage() string { return e.Stat }

type report struct {
	Stat   string     `json:"stat"`
	Title  string     `json:"title"`
	Fields []string   `json:"fields"`
	Data   [][]string `json:"data"`
}

// Feed fetches raw daily bars from TWSE.
type Feed struct {
	httpClient *http.Client
	baseURL    string
	fetcher    *spanfetch.Fetcher
}

// NewFeed creates the primary feed. The fetcher should partition by month;
// an empty baseURL uses DefaultBaseURL and a nil httpClient uses http.DefaultClient.
func NewFeed(baseURL string, httpClient *http.Client, fetcher *spanfetch.Fetcher) *Feed {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Feed{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/"), fetcher: fetcher}
}

// FetchOptions returns span options for the month-keyed report: one span per
// calendar month, never bisected.
func FetchOptions(base spanfetch.Options) spanfetch.Options {
	base.Partition = spanfetch.MonthPartition
	base.MinSpanDays = 31
	return base
}

// FetchRaw returns the raw daily series for [start, end].
func (f *Feed) FetchRaw(ctx context.Context, stockNo string, start, end time.Time) (model.PriceSeries, error) {
	var name string
	res, err := spanfetch.Fetch(ctx, f.fetcher, spanfetch.Request[model.PriceRow]{
		Provider: Provider,
		Dataset:  Dataset,
		Start:    start,
		End:      end,
		Query: func(ctx context.Context, span spanfetch.Span) ([]model.PriceRow, error) {
			monthName, rows, err := f.fetchMonth(ctx, stockNo, span.Start)
			if err != nil {
				return nil, err
			}
			if monthName != "" {
				name = monthName
			}
			kept := rows[:0]
			for _, r := range rows {
				if r.Date >= span.StartISO() && r.Date <= span.EndISO() {
					kept = append(kept, r)
				}
			}
			return kept, nil
		},
		Key:    func(r model.PriceRow) string { return r.Date },
		Prefer: func(_, incoming model.PriceRow) bool { return incoming.HasValidClose() },
	})
	if err != nil {
		return model.PriceSeries{}, err
	}
	if len(res.Items) == 0 {
		return model.PriceSeries{}, fmt.Errorf("%s %s: %w", Provider, stockNo, apperrors.ErrNoData)
	}
	if name == "" {
		name = stockNo
	}

	return model.PriceSeries{
		StockName: name,
		Source:    SourceLabel,
		Rows:      res.Items,
		Requests:  res.Requests,
		Splits:    res.Splits,
	}, nil
}

// fetchMonth requests the report for the month containing month.
// A stat reporting no matching rows yields an empty month, not an error.
func (f *Feed) fetchMonth(ctx context.Context, stockNo string, month time.Time) (string, []model.PriceRow, error) {
	q := url.Values{}
	q.Set("response", "json")
	q.Set("date", month.Format("200601")+"01")
	q.Set("stockNo", stockNo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/exchangeReport/STOCK_DAY?"+q.Encode(), nil)
	if err != nil {
		return "", nil, spanfetch.Permanent(err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, &APIError{StatusCode: resp.StatusCode, Stat: http.StatusText(resp.StatusCode)}
	}

	var body report
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", nil, spanfetch.Permanent(fmt.Errorf("decode twse report: %w", err))
	}
	if body.Stat != statOK {
		if strings.Contains(body.Stat, "沒有符合") {
			return "", nil, nil
		}
		return "", nil, spanfetch.Permanent(&APIError{StatusCode: resp.StatusCode, Stat: body.Stat})
	}

	rows := make([]model.PriceRow, 0, len(body.Data))
	for _, raw := range body.Data {
		if row, ok := parseRow(raw); ok {
			rows = append(rows, row)
		}
	}
	return stockName(body.Title), rows, nil
}

// stockName extracts the name from a title like "113年07月 2330 台積電 各日成交資訊".
func stockName(title string) string {
	parts := strings.Fields(title)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

func parseRow(raw []string) (model.PriceRow, bool) {
	if len(raw) <= colChange {
		return model.PriceRow{}, false
	}
	date, ok := isodate.FromROC(raw[colDate])
	if !ok {
		return model.PriceRow{}, false
	}
	closePrice, _ := record.ParseNumber(raw[colClose])
	open, _ := record.ParseNumber(raw[colOpen])
	high, _ := record.ParseNumber(raw[colHigh])
	low, _ := record.ParseNumber(raw[colLow])
	volume, _ := record.ParseNumber(raw[colVolume])

	row := model.NewRawRow(date, open, high, low, closePrice, volume)
	row.Change, _ = record.ParseNumber(raw[colChange])
	return row, true
}
