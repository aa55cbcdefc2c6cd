package twse_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/apperrors"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/testutil"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/twse"
)

func newFeed(baseURL string) *twse.Feed {
	fetcher := testutil.NewFetcher(twse.FetchOptions(spanfetch.Options{Attempts: 2}))
	return twse.NewFeed(baseURL, nil, fetcher)
}

func report(title string, rows ...[]string) map[string]any {
	return map[string]any{
		"stat":   "OK",
		"title":  title,
		"fields": []string{"日期", "成交股數", "成交金額", "開盤價", "最高價", "最低價", "收盤價", "漲跌價差", "成交筆數"},
		"data":   rows,
	}
}

func TestFeed_FetchRaw(t *testing.T) {
	srv := testutil.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exchangeReport/STOCK_DAY" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("date") {
		case "20240601":
			testutil.WriteJSON(t, w, http.StatusOK, report("113年06月 2330 台積電 各日成交資訊",
				[]string{"113/06/27", "30,000,000", "0", "940.00", "950.00", "935.00", "945.00", "+5.00", "1"},
				[]string{"113/06/28", "25,000,000", "0", "945.00", "955.00", "940.00", "950.00", "+5.00", "1"},
			))
		case "20240701":
			testutil.WriteJSON(t, w, http.StatusOK, report("113年07月 2330 台積電 各日成交資訊",
				[]string{"113/07/01", "20,000,000", "0", "950.00", "960.00", "948.00", "955.00", "X0.00", "1"},
				[]string{"113/07/02", "21,000,000", "0", "955.00", "958.00", "950.00", "952.00", "-3.00", "1"},
			))
		default:
			t.Errorf("unexpected month %s", r.URL.Query().Get("date"))
		}
	})

	series, err := newFeed(srv.URL).FetchRaw(context.Background(), "2330",
		isodate.MustParse("2024-06-28"), isodate.MustParse("2024-07-01"))
	if err != nil {
		t.Fatalf("FetchRaw() returned unexpected error: %v", err)
	}

	if srv.Count() != 2 {
		t.Errorf("Expected one request per month, got %d", srv.Count())
	}
	if len(series.Rows) != 2 {
		t.Fatalf("Expected rows filtered to the range, got %d", len(series.Rows))
	}
	if series.Rows[0].Date != "2024-06-28" || series.Rows[1].Date != "2024-07-01" {
		t.Errorf("unexpected dates %s, %s", series.Rows[0].Date, series.Rows[1].Date)
	}
	first := series.Rows[0]
	if first.Close != 950 || first.RawClose != 950 || first.Volume != 25000000 || first.Change != 5 {
		t.Errorf("unexpected row %+v", first)
	}
	if series.Rows[1].Change != 0 {
		t.Errorf("Expected annotated change X0.00 to parse as 0, got %v", series.Rows[1].Change)
	}
	if series.StockName != "台積電" {
		t.Errorf("Expected name from title, got %q", series.StockName)
	}
	if series.Adjusted {
		t.Error("Expected a raw series")
	}
}

func TestFeed_FetchRaw_Errors(t *testing.T) {
	t.Run("no matching rows yields ErrNoData", func(t *testing.T) {
		srv := testutil.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			testutil.WriteJSON(t, w, http.StatusOK, map[string]any{"stat": "很抱歉，沒有符合條件的資料!"})
		})

		_, err := newFeed(srv.URL).FetchRaw(context.Background(), "9999",
			isodate.MustParse("2024-01-01"), isodate.MustParse("2024-02-29"))
		if !errors.Is(err, apperrors.ErrNoData) {
			t.Errorf("Expected ErrNoData, got %v", err)
		}
		if srv.Count() != 2 {
			t.Errorf("Expected both months to be queried, got %d", srv.Count())
		}
	})

	t.Run("unexpected stat is permanent", func(t *testing.T) {
		srv := testutil.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			testutil.WriteJSON(t, w, http.StatusOK, map[string]any{"stat": "查詢日期小於81年1月4日，請重新查詢!"})
		})

		_, err := newFeed(srv.URL).FetchRaw(context.Background(), "2330",
			isodate.MustParse("2024-01-01"), isodate.MustParse("2024-01-31"))
		var apiErr *twse.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Expected *twse.APIError, got %v", err)
		}
		if !spanfetch.IsPermanent(err) || srv.Count() != 1 {
			t.Errorf("Expected a single permanent failure, got %d requests", srv.Count())
		}
	})

	t.Run("server errors retry within the month", func(t *testing.T) {
		srv := testutil.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := newFeed(srv.URL).FetchRaw(context.Background(), "2330",
			isodate.MustParse("2024-01-01"), isodate.MustParse("2024-01-31"))
		if spanfetch.StatusCode(err) != http.StatusBadGateway {
			t.Errorf("Expected 502 to surface, got %v", err)
		}
		se, ok := spanfetch.AsSpanError(err)
		if !ok {
			t.Fatalf("Expected *SpanError, got %T", err)
		}
		if se.Span.StartISO() != "2024-01-01" || se.Span.EndISO() != "2024-01-31" {
			t.Errorf("unexpected span %s", se.Span)
		}
		if srv.Count() != 2 {
			t.Errorf("Expected 2 attempts for an unsplittable month, got %d", srv.Count())
		}
	})
}
