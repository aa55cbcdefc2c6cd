// Package finmind is the fundamentals provider: raw and adjusted daily
// prices plus dividend-result and split-price corporate-action datasets
// from the FinMind v4 data API.
package finmind

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
	"github.com/ndewijer/Adjusted-Price-Engine/internal/record"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

// DefaultBaseURL is the FinMind v4 data endpoint.
const DefaultBaseURL = "https://api.finmindtrade.com/api/v4/data"

// Provider is the label used in diagnostics and metrics.
const Provider = "FinMind"

// Datasets served by the fundamentals provider.
const (
	DatasetPrice          = "TaiwanStockPrice"
	DatasetPriceAdj       = "TaiwanStockPriceAdj"
	DatasetDividendResult = "TaiwanStockDividendResult"
	DatasetSplitPrice     = "TaiwanStockSplitPrice"
)

// APIError is a FinMind failure: a non-2xx HTTP response or a payload whose
// status field is not 200.
type APIError struct {
	Dataset    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("finmind %s: status %d: %s", e.Dataset, e.StatusCode, e.Message)
}

// HTTPStatus returns the upstream status.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// UpstreamMessage returns the provider's own message.
func (e *APIError) UpstreamMessage() string { return e.Message }

type envelope struct {
	Msg    string          `json:"msg"`
	Status int             `json:"status"`
	Data   []record.Record `json:"data"`
}

// Client queries the FinMind data API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a FinMind client. An empty baseURL uses DefaultBaseURL;
// a nil httpClient uses http.DefaultClient.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
	}
}

// TokenPresent reports whether an API token is configured.
func (c *Client) TokenPresent() bool {
	return c.token != ""
}

// Query fetches one dataset for dataID over [start, end].
//
// Numbers in the returned records are json.Number so the record package can
// clean and parse them uniformly. Missing credentials, rejected parameters
// and account-level refusals are permanent; 408, 429 and 5xx are left for
// the span fetcher to retry or split.
func (c *Client) Query(ctx context.Context, dataset, dataID string, start, end time.Time) ([]record.Record, error) {
	if !c.TokenPresent() {
		return nil, spanfetch.Permanent(fmt.Errorf("finmind %s: %w", dataset, apperrors.ErrMissingToken))
	}

	q := url.Values{}
	q.Set("dataset", dataset)
	q.Set("data_id", dataID)
	q.Set("start_date", isodate.Format(start))
	q.Set("end_date", isodate.Format(end))
	q.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, spanfetch.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body envelope
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	decodeErr := dec.Decode(&body)

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && body.Msg != "" {
			msg = body.Msg
		}
		return nil, classify(&APIError{Dataset: dataset, StatusCode: resp.StatusCode, Message: rewriteMessage(dataset, msg)})
	}
	if decodeErr != nil {
		return nil, spanfetch.Permanent(fmt.Errorf("decode finmind %s: %w", dataset, decodeErr))
	}
	if body.Status != 0 && body.Status != http.StatusOK {
		return nil, classify(&APIError{Dataset: dataset, StatusCode: body.Status, Message: rewriteMessage(dataset, body.Msg)})
	}
	return body.Data, nil
}

// classify marks client-side rejections as permanent.
func classify(err *APIError) error {
	code := err.StatusCode
	if code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
		return spanfetch.Permanent(err)
	}
	return err
}

// rewriteMessage replaces the terse account-level refusal with actionable text.
func rewriteMessage(dataset, msg string) string {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "your level is register") || strings.Contains(lower, "level is free") {
		return fmt.Sprintf("FinMind account level cannot access %s; upgrade to a Backer or Sponsor plan (upstream: %s)", dataset, msg)
	}
	return msg
}
