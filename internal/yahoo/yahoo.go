package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/apperrors"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

// DefaultBaseURL is the public chart API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// APIError is a non-2xx HTTP response or a chart error object.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("yahoo error: HTTP %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("yahoo error: HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus returns the upstream HTTP status.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// UpstreamMessage returns Yahoo's own description.
func (e *APIError) UpstreamMessage() string { return e.Message }

// FinanceClient provides methods for fetching daily charts from the Yahoo Finance API.
type FinanceClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewFinanceClient creates a new Yahoo Finance client.
// An empty baseURL uses DefaultBaseURL; a nil httpClient uses http.DefaultClient.
func NewFinanceClient(baseURL string, httpClient *http.Client) *FinanceClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &FinanceClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// QuerySymbolByDateRange fetches daily bars for a symbol within [startDate, endDate].
// The adjusted close series is requested alongside the raw quotes.
//
// Parameters:
//   - ctx: Cancels the HTTP request
//   - symbol: Yahoo ticker (e.g., "2330.TW")
//   - startDate: Beginning of date range (inclusive)
//   - endDate: End of date range (inclusive)
//
// Returns:
//   - Response: Raw API response
//   - error: *APIError for HTTP and chart errors; permanent errors for
//     unknown symbols and malformed payloads
func (c *FinanceClient) QuerySymbolByDateRange(ctx context.Context, symbol string, startDate, endDate time.Time) (Response, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	q.Set("includeAdjustedClose", "true")
	q.Set("period1", fmt.Sprintf("%d", isodate.Truncate(startDate).Unix()))
	// period2 is exclusive.
	q.Set("period2", fmt.Sprintf("%d", isodate.AddDays(isodate.Truncate(endDate), 1).Unix()))

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())
	result, err := c.queryYahoo(ctx, endpoint)
	if err != nil {
		return Response{}, err
	}
	if len(result.Chart.Result) == 0 {
		return Response{}, spanfetch.Permanent(fmt.Errorf("symbol %s: %w", symbol, apperrors.ErrNoData))
	}
	return result, nil
}

// ParseChart converts a raw response into a PriceChart.
//
// Bars whose adjusted close or open is null are dropped. Dates are shifted by
// the exchange gmtoffset so the bar lands on its local trading day.
func (c *FinanceClient) ParseChart(yahooResult Response) (PriceChart, error) {
	if len(yahooResult.Chart.Result) == 0 {
		return PriceChart{}, fmt.Errorf("no results returned")
	}
	result := yahooResult.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return PriceChart{}, fmt.Errorf("no price data returned")
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return PriceChart{}, fmt.Errorf("no close prices returned")
	}
	quote := result.Indicators.Quote[0]
	if len(quote.Close) != len(result.Timestamp) {
		return PriceChart{}, fmt.Errorf("mismatched data lengths")
	}
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	indicators := make([]Indicators, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		adjClose := at(adj, i)
		open := at(quote.Open, i)
		if adjClose == nil || open == nil {
			continue
		}
		ind := Indicators{
			Date:      isodate.Format(time.Unix(ts+result.Meta.GmtOffset, 0)),
			PriceOpen: *open,
			AdjClose:  *adjClose,
		}
		if v := at(quote.Close, i); v != nil {
			ind.PriceClose = *v
		}
		if v := at(quote.High, i); v != nil {
			ind.PriceHigh = *v
		}
		if v := at(quote.Low, i); v != nil {
			ind.PriceLow = *v
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			ind.Volume = *quote.Volume[i]
		}
		indicators = append(indicators, ind)
	}

	return PriceChart{
		Symbol:       result.Meta.Symbol,
		Currency:     result.Meta.Currency,
		ExchangeName: result.Meta.ExchangeName,
		LongName:     result.Meta.LongName,
		Shortname:    result.Meta.Shortname,
		Indicators:   indicators,
	}, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

// queryYahoo executes one chart request.
//
// The method sets required headers:
//   - User-Agent: Mimics a browser to avoid API blocking
//   - Accept: Requests JSON response format
func (c *FinanceClient) queryYahoo(ctx context.Context, endpoint string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Response{}, spanfetch.Permanent(err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	var response Response
	decodeErr := json.Unmarshal(data, &response)

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if decodeErr == nil && response.Chart.Error != nil {
			apiErr.Code = response.Chart.Error.Code
			apiErr.Message = response.Chart.Error.Description
		}
		if resp.StatusCode == http.StatusNotFound {
			return Response{}, spanfetch.Permanent(apiErr)
		}
		return Response{}, apiErr
	}
	if decodeErr != nil {
		return Response{}, spanfetch.Permanent(fmt.Errorf("decode yahoo response: %w", decodeErr))
	}
	if response.Chart.Error != nil {
		return response, spanfetch.Permanent(&APIError{
			StatusCode: resp.StatusCode,
			Code:       response.Chart.Error.Code,
			Message:    response.Chart.Error.Description,
		})
	}

	return response, nil
}
