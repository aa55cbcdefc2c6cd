// Package outcome maps a provider response (status code + message) onto the
// fixed ProviderOutcome taxonomy. Matching is done on lowercase wording
// groups so the diagnostics stay stable when a provider rephrases its errors.
package outcome

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

type patternGroup struct {
	status   model.OutcomeStatus
	patterns []string
}

// Evaluated in order; the first group with a matching pattern wins.
var groups = []patternGroup{
	{model.StatusPermissionDenied, []string{
		"permission", "subscription", "subscribe", "your level", "level is register",
		"sponsor", "upgrade", "forbidden", "not allowed", "upper limit", "quota", "權限", "等級",
	}},
	{model.StatusTokenInvalid, []string{
		"token", "unauthorized", "authorization", "authenticat", "api key", "apikey", "login",
	}},
	{model.StatusParameterError, []string{
		"parameter", "param", "invalid date", "date format", "start_date", "end_date",
		"field", "dataset", "data_id", "參數", "日期",
	}},
	{model.StatusNoData, []string{
		"no data", "not found", "empty", "沒有符合", "查無", "無資料",
	}},
	{model.StatusNetworkError, []string{
		"timeout", "timed out", "deadline exceeded", "network", "fetch failed",
		"socket hang up", "econnreset", "econnrefused", "connection", "aborted", "eof",
	}},
	{model.StatusServerError, []string{
		"server error", "internal error", "bad gateway", "service unavailable",
		"gateway timeout", "upstream",
	}},
}

// Classify maps a provider response to a ProviderOutcome. It is total: every
// input yields one of the defined statuses.
//
// Decision order:
//  1. no credential → missingToken
//  2. HTTP 401/403 → permissionDenied
//  3. message wording groups (permission, token, parameter, no data, network, server)
//  4. HTTP ≥ 500 → serverError
//  5. dataCount ≤ 0 → noData
//  6. success
func Classify(tokenPresent bool, dataset string, statusCode int, message string, dataCount int) model.ProviderOutcome {
	out := model.ProviderOutcome{
		TokenPresent: tokenPresent,
		Dataset:      dataset,
		StatusCode:   statusCode,
		Message:      message,
		DataCount:    dataCount,
	}
	out.Status = status(tokenPresent, statusCode, message, dataCount)
	out.Hint = Hint(out.Status)
	return out
}

func status(tokenPresent bool, statusCode int, message string, dataCount int) model.OutcomeStatus {
	if !tokenPresent {
		return model.StatusMissingToken
	}
	if statusCode == 401 || statusCode == 403 {
		return model.StatusPermissionDenied
	}

	lower := strings.ToLower(strings.TrimSpace(message))
	if lower != "" && lower != "success" {
		for _, g := range groups {
			for _, p := range g.patterns {
				if strings.Contains(lower, p) {
					return g.status
				}
			}
		}
	}

	if statusCode >= 500 {
		return model.StatusServerError
	}
	if dataCount <= 0 {
		return model.StatusNoData
	}
	return model.StatusSuccess
}

type upstreamMessager interface {
	UpstreamMessage() string
}

// FromError classifies a finished provider call. A nil err counts as an
// HTTP 200 "success" response. The upstream message is preferred over the
// wrapped error text, and a failing span's bounds are carried over.
func FromError(tokenPresent bool, dataset string, err error, dataCount int) model.ProviderOutcome {
	if err == nil {
		return Classify(tokenPresent, dataset, http.StatusOK, "success", dataCount)
	}

	msg := err.Error()
	var um upstreamMessager
	if errors.As(err, &um) {
		msg = um.UpstreamMessage()
	}
	out := Classify(tokenPresent, dataset, spanfetch.StatusCode(err), msg, dataCount)
	if se, ok := spanfetch.AsSpanError(err); ok {
		out.SpanStart = se.Span.StartISO()
		out.SpanEnd = se.Span.EndISO()
	}
	return out
}

// Hint returns the operator-facing remediation text for a status.
func Hint(status model.OutcomeStatus) string {
	switch status {
	case model.StatusMissingToken:
		return "Set FINMIND_TOKEN so the fundamentals provider can be queried."
	case model.StatusPermissionDenied:
		return "The account level does not cover this dataset; upgrade the plan or wait for the quota to reset."
	case model.StatusTokenInvalid:
		return "The provider rejected the credential; verify FINMIND_TOKEN has not expired."
	case model.StatusParameterError:
		return "The provider rejected the request parameters; check the security identifier and date range."
	case model.StatusNoData:
		return "The provider returned no rows for this security and range."
	case model.StatusNetworkError:
		return "The provider could not be reached in time; retry later."
	case model.StatusServerError:
		return "The provider reported an internal error; retry later."
	default:
		return ""
	}
}

// Succeeded reports whether the outcome counts as a usable response.
func Succeeded(o model.ProviderOutcome) bool {
	return o.Status == model.StatusSuccess
}
