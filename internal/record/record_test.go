package record_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/record"
)

func TestVariants(t *testing.T) {
	got := record.Variants("before_price")
	want := []string{"before_price", "beforePrice", "BeforePrice", "before-price"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Variants() = %v, want %v", got, want)
	}

	if got := record.Variants("close"); !reflect.DeepEqual(got, []string{"close", "Close"}) {
		t.Errorf("single word Variants() = %v", got)
	}
}

func TestRecord_Positive(t *testing.T) {
	keys := record.Keys("before_price")

	t.Run("first finite positive alias wins", func(t *testing.T) {
		r := record.Record{
			"before_price": "--",
			"beforePrice":  json.Number("0"),
			"BeforePrice":  "1,234.5",
		}
		v, ok := r.Positive(keys...)
		if !ok || v != 1234.5 {
			t.Errorf("Positive() = %v, %v; want 1234.5, true", v, ok)
		}
	})

	t.Run("missing everywhere", func(t *testing.T) {
		r := record.Record{"after_price": 10.0}
		if _, ok := r.Positive(keys...); ok {
			t.Error("Expected no match when no alias is present")
		}
	})

	t.Run("hyphenated spelling", func(t *testing.T) {
		r := record.Record{"before-price": 55.0}
		if v, ok := r.Positive(keys...); !ok || v != 55 {
			t.Errorf("Positive() = %v, %v; want 55, true", v, ok)
		}
	})
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"1,500", 1500, true},
		{"▲5.5", 5.5, true},
		{"▼2.5", -2.5, true},
		{"-3", -3, true},
		{"X0.00", 0, true},
		{"--", 0, false},
		{"", 0, false},
		{nil, 0, false},
		{json.Number("12.25"), 12.25, true},
		{42.0, 42, true},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := record.ParseNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseNumber(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRecord_String(t *testing.T) {
	r := record.Record{"stock_name": "  ", "stockName": "台積電"}
	if got := r.String(record.Keys("stock_name")...); got != "台積電" {
		t.Errorf("String() = %q, want 台積電", got)
	}
}
