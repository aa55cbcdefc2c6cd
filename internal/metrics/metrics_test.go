package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/metrics"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

// counterValue sums every sample of a counter family whose labels include want.
func counterValue(t *testing.T, r *metrics.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() returned unexpected error: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m, want) {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func matches(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

// TestRegistry_Observer verifies the span fetcher callbacks land on the right series.
func TestRegistry_Observer(t *testing.T) {
	r := metrics.New()

	r.ObserveRequest("FinMind", "TaiwanStockPrice", nil)
	r.ObserveRequest("FinMind", "TaiwanStockPrice", errors.New("HTTP 503"))
	r.ObserveRequest("FinMind", "TaiwanStockPrice", spanfetch.Permanent(errors.New("bad token")))
	r.ObserveRequest("TWSE", "STOCK_DAY", context.DeadlineExceeded)
	r.ObserveRetry("FinMind", "TaiwanStockPrice")
	r.ObserveSplit("FinMind", "TaiwanStockPrice")
	r.ObserveSplit("FinMind", "TaiwanStockPrice")

	tests := []struct {
		name   string
		metric string
		labels map[string]string
		want   float64
	}{
		{"ok", "adjusted_price_provider_requests_total", map[string]string{"provider": "FinMind", "result": metrics.ResultOK}, 1},
		{"error", "adjusted_price_provider_requests_total", map[string]string{"provider": "FinMind", "result": metrics.ResultError}, 1},
		{"permanent", "adjusted_price_provider_requests_total", map[string]string{"result": metrics.ResultPermanent}, 1},
		{"cancelled", "adjusted_price_provider_requests_total", map[string]string{"provider": "TWSE", "result": metrics.ResultCancelled}, 1},
		{"retries", "adjusted_price_span_retries_total", map[string]string{"provider": "FinMind"}, 1},
		{"splits", "adjusted_price_span_splits_total", map[string]string{"dataset": "TaiwanStockPrice"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := counterValue(t, r, tt.metric, tt.labels); got != tt.want {
				t.Errorf("%s%v = %v, want %v", tt.metric, tt.labels, got, tt.want)
			}
		})
	}
}

func TestRegistry_ObserveComposition(t *testing.T) {
	r := metrics.New()

	r.ObserveComposition("Yahoo Finance (adjusted)", 0, nil, 120*time.Millisecond)
	r.ObserveComposition("TWSE STOCK_DAY", 2, nil, time.Second)
	r.ObserveComposition("", 0, errors.New("all providers failed"), 3*time.Second)

	if got := counterValue(t, r, "adjusted_price_compositions_total", map[string]string{"result": metrics.ResultOK}); got != 2 {
		t.Errorf("ok compositions = %v, want 2", got)
	}
	if got := counterValue(t, r, "adjusted_price_compositions_total", map[string]string{"price_source": "none", "result": metrics.ResultError}); got != 1 {
		t.Errorf("failed compositions = %v, want 1", got)
	}
	if got := counterValue(t, r, "adjusted_price_adjustments_applied_total", nil); got != 2 {
		t.Errorf("applied adjustments = %v, want 2", got)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := metrics.New()
	r.ObserveSplit("TWSE", "STOCK_DAY")

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), `adjusted_price_span_splits_total{dataset="STOCK_DAY",provider="TWSE"} 1`) {
		t.Errorf("Expected split counter in exposition, got:\n%s", body)
	}
}

// TestRegistry_Isolated verifies two registries do not share series.
func TestRegistry_Isolated(t *testing.T) {
	a, b := metrics.New(), metrics.New()
	a.ObserveRetry("TWSE", "STOCK_DAY")

	if got := counterValue(t, b, "adjusted_price_span_retries_total", nil); got != 0 {
		t.Errorf("Expected a fresh registry to be empty, got %v", got)
	}
}
