package validation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/api/request"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/apperrors"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/validation"
)

var today = isodate.MustParse("2024-08-01")

func TestValidateAdjustedPrice(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		got, err := validation.ValidateAdjustedPrice(request.AdjustedPriceRequest{
			StockNo:   " 2330 ",
			StartDate: "113/07/10",
			EndDate:   "2024/7/12",
			Market:    "otc",
			Split:     "on",
		}, today)
		if err != nil {
			t.Fatalf("ValidateAdjustedPrice() returned unexpected error: %v", err)
		}
		if got.StockNo != "2330" || got.Market != model.MarketTPEX {
			t.Errorf("unexpected request %+v", got)
		}
		if isodate.Format(got.Start) != "2024-07-10" || isodate.Format(got.End) != "2024-07-12" {
			t.Errorf("unexpected range %s..%s", isodate.Format(got.Start), isodate.Format(got.End))
		}
		if !got.Split || got.Dividend || !got.RawSemantics() {
			t.Errorf("unexpected flags %+v", got)
		}
	})

	t.Run("future end is clamped to today", func(t *testing.T) {
		got, err := validation.ValidateAdjustedPrice(request.AdjustedPriceRequest{
			StockNo: "2330", StartDate: "2024-07-01", EndDate: "2030-01-01",
		}, today)
		if err != nil {
			t.Fatalf("ValidateAdjustedPrice() returned unexpected error: %v", err)
		}
		if isodate.Format(got.End) != "2024-08-01" {
			t.Errorf("Expected end clamped to today, got %s", isodate.Format(got.End))
		}
		if got.Market != model.MarketTWSE {
			t.Errorf("Expected default market TWSE, got %s", got.Market)
		}
	})

	tests := []struct {
		name     string
		req      request.AdjustedPriceRequest
		field    string
		sentinel error
	}{
		{
			name:     "missing stockNo",
			req:      request.AdjustedPriceRequest{StartDate: "2024-07-01", EndDate: "2024-07-10"},
			field:    "stockNo",
			sentinel: apperrors.ErrMissingStockNo,
		},
		{
			name:     "stockNo with query characters",
			req:      request.AdjustedPriceRequest{StockNo: "2330&x=1", StartDate: "2024-07-01", EndDate: "2024-07-10"},
			field:    "stockNo",
			sentinel: apperrors.ErrMissingStockNo,
		},
		{
			name:     "impossible calendar day",
			req:      request.AdjustedPriceRequest{StockNo: "2330", StartDate: "2024-02-30", EndDate: "2024-07-10"},
			field:    "startDate",
			sentinel: apperrors.ErrInvalidDate,
		},
		{
			name:     "missing end date",
			req:      request.AdjustedPriceRequest{StockNo: "2330", StartDate: "2024-07-01"},
			field:    "endDate",
			sentinel: apperrors.ErrInvalidDate,
		},
		{
			name:     "start after end",
			req:      request.AdjustedPriceRequest{StockNo: "2330", StartDate: "2024-07-10", EndDate: "2024-07-01"},
			field:    "startDate",
			sentinel: apperrors.ErrInvalidDateRange,
		},
		{
			name:     "start in the future",
			req:      request.AdjustedPriceRequest{StockNo: "2330", StartDate: "2025-01-01", EndDate: "2025-02-01"},
			field:    "startDate",
			sentinel: apperrors.ErrInvalidDateRange,
		},
		{
			name:     "unknown market",
			req:      request.AdjustedPriceRequest{StockNo: "2330", StartDate: "2024-07-01", EndDate: "2024-07-10", Market: "NYSE"},
			field:    "market",
			sentinel: apperrors.ErrInvalidMarket,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validation.ValidateAdjustedPrice(tt.req, today)
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("Expected %v, got %v", tt.sentinel, err)
			}
			var verr *validation.Error
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *validation.Error, got %T", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("Expected field %s in %v", tt.field, verr.Fields)
			}
		})
	}
}

// TestError_Message verifies field messages render in a stable order.
func TestError_Message(t *testing.T) {
	err := &validation.Error{Fields: map[string]string{
		"stockNo":   "stockNo is required",
		"endDate":   "endDate must be a valid date",
		"startDate": "startDate must be a valid date",
	}}
	want := "endDate: endDate must be a valid date; startDate: startDate must be a valid date; stockNo: stockNo is required"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !strings.Contains(err.Error(), "stockNo") {
		t.Error("Expected stockNo in message")
	}
}
