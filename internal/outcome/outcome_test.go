package outcome_test

import (
	"errors"
	"testing"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/outcome"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

// TestClassify tests the decision order of the provider outcome classifier.
//
// WHY: operator diagnostics must not depend on the exact (and unstable)
// phrasing of upstream errors, and every input must map to a known status.
func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		token      bool
		statusCode int
		message    string
		count      int
		want       model.OutcomeStatus
	}{
		{"missing token beats everything", false, 403, "forbidden", 10, model.StatusMissingToken},
		{"403 regardless of message", true, 403, "no data found", 0, model.StatusPermissionDenied},
		{"401 regardless of message", true, 401, "timeout", 0, model.StatusPermissionDenied},
		{"account level wording", true, 400, "Your level is register", 0, model.StatusPermissionDenied},
		{"token wording", true, 400, "Token is invalid", 0, model.StatusTokenInvalid},
		{"parameter wording", true, 422, "parameter start_date error", 0, model.StatusParameterError},
		{"no data wording", true, 200, "No data found", 0, model.StatusNoData},
		{"network wording", true, 0, "context deadline exceeded", 0, model.StatusNetworkError},
		{"server wording", true, 200, "Bad Gateway", 0, model.StatusServerError},
		{"5xx without wording", true, 503, "", 0, model.StatusServerError},
		{"empty result", true, 200, "success", 0, model.StatusNoData},
		{"success", true, 200, "success", 5, model.StatusSuccess},
		{"success without message", true, 0, "", 1, model.StatusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outcome.Classify(tt.token, "TaiwanStockDividendResult", tt.statusCode, tt.message, tt.count)
			if got.Status != tt.want {
				t.Errorf("Classify() status = %s, want %s", got.Status, tt.want)
			}
			if got.Dataset != "TaiwanStockDividendResult" {
				t.Errorf("Expected dataset to be carried through, got %q", got.Dataset)
			}
		})
	}
}

func TestClassify_Totality(t *testing.T) {
	messages := []string{"", "success", "???", "Forbidden", "查無資料", "EOF", "upstream connect error"}
	codes := []int{0, 200, 400, 401, 402, 403, 404, 429, 500, 502, 598}

	for _, token := range []bool{true, false} {
		for _, code := range codes {
			for _, msg := range messages {
				for _, count := range []int{-1, 0, 3} {
					got := outcome.Classify(token, "ds", code, msg, count)
					if got.Status == "" {
						t.Fatalf("empty status for token=%v code=%d msg=%q count=%d", token, code, msg, count)
					}
					if token && code == 403 && got.Status != model.StatusPermissionDenied {
						t.Fatalf("403 yielded %s for msg=%q", got.Status, msg)
					}
				}
			}
		}
	}
}

func TestHint(t *testing.T) {
	statuses := []model.OutcomeStatus{
		model.StatusMissingToken, model.StatusPermissionDenied, model.StatusTokenInvalid,
		model.StatusParameterError, model.StatusNoData, model.StatusNetworkError, model.StatusServerError,
	}
	for _, s := range statuses {
		if outcome.Hint(s) == "" {
			t.Errorf("Expected a hint for %s", s)
		}
	}
	if outcome.Hint(model.StatusSuccess) != "" {
		t.Error("Expected no hint for success")
	}
}

type upstreamErr struct {
	code int
	msg  string
}

func (e *upstreamErr) Error() string           { return "wrapped: " + e.msg }
func (e *upstreamErr) HTTPStatus() int         { return e.code }
func (e *upstreamErr) UpstreamMessage() string { return e.msg }

func TestFromError(t *testing.T) {
	t.Run("nil error is success", func(t *testing.T) {
		got := outcome.FromError(true, "ds", nil, 3)
		if got.Status != model.StatusSuccess || got.StatusCode != 200 {
			t.Errorf("unexpected outcome %+v", got)
		}
	})

	t.Run("nil error without rows is no data", func(t *testing.T) {
		if got := outcome.FromError(true, "ds", nil, 0); got.Status != model.StatusNoData {
			t.Errorf("Expected noData, got %s", got.Status)
		}
	})

	t.Run("span error carries bounds and upstream message", func(t *testing.T) {
		span := spanfetch.NewSpan(isodate.MustParse("2024-01-01"), isodate.MustParse("2024-01-31"))
		err := &spanfetch.SpanError{
			Provider: "FinMind",
			Dataset:  "ds",
			Span:     span,
			Attempts: 3,
			Err:      spanfetch.Permanent(&upstreamErr{code: 402, msg: "Requests reach the upper limit"}),
		}

		got := outcome.FromError(true, "ds", err, 0)
		if got.Status != model.StatusPermissionDenied {
			t.Errorf("Expected permissionDenied, got %s", got.Status)
		}
		if got.StatusCode != 402 || got.Message != "Requests reach the upper limit" {
			t.Errorf("Expected upstream status and message, got %d %q", got.StatusCode, got.Message)
		}
		if got.SpanStart != "2024-01-01" || got.SpanEnd != "2024-01-31" {
			t.Errorf("Expected span bounds, got %s~%s", got.SpanStart, got.SpanEnd)
		}
	})

	t.Run("plain error uses its text", func(t *testing.T) {
		got := outcome.FromError(true, "ds", errors.New("dial tcp: i/o timeout"), 0)
		if got.Status != model.StatusNetworkError {
			t.Errorf("Expected networkError, got %s", got.Status)
		}
	})
}
