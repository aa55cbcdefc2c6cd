package request_test

import (
	"net/url"
	"testing"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/api/request"
)

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  request.AdjustedPriceRequest
	}{
		{
			name:  "primary names",
			query: "stockNo=2330&startDate=2024-07-10&endDate=2024-07-12&market=TWSE&split=1&dividend=yes",
			want:  request.AdjustedPriceRequest{StockNo: "2330", StartDate: "2024-07-10", EndDate: "2024-07-12", Market: "TWSE", Split: "1", Dividend: "yes"},
		},
		{
			name:  "aliases",
			query: "stockNo=6488&start=2024-01-01&end=2024-02-01&marketType=OTC&enableSplit=true&dividendAdjustment=on",
			want:  request.AdjustedPriceRequest{StockNo: "6488", StartDate: "2024-01-01", EndDate: "2024-02-01", Market: "OTC", Split: "true", Dividend: "on"},
		},
		{
			name:  "blank primary falls through to alias",
			query: "stockNo=2330&startDate=&start=2024-01-01&split=&splitAdjustment=1",
			want:  request.AdjustedPriceRequest{StockNo: "2330", StartDate: "2024-01-01", Split: "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("bad query: %v", err)
			}
			if got := request.FromQuery(q); got != tt.want {
				t.Errorf("FromQuery() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	for _, token := range []string{"1", "true", "TRUE", "on", "Yes", " yes "} {
		if !request.Truthy(token) {
			t.Errorf("Truthy(%q) = false, want true", token)
		}
	}
	for _, token := range []string{"", "0", "false", "off", "no", "enabled"} {
		if request.Truthy(token) {
			t.Errorf("Truthy(%q) = true, want false", token)
		}
	}
}
