package request

import (
	"net/url"
	"strings"
)

// AdjustedPriceRequest holds the raw query parameters of the adjusted price endpoint.
// Aliased parameter names are resolved by FromQuery; values are validated by the
// validation package.
type AdjustedPriceRequest struct {
	StockNo   string
	StartDate string
	EndDate   string
	Market    string
	Split     string
	Dividend  string
}

// Parameter aliases in lookup order.
var (
	startKeys    = []string{"startDate", "start"}
	endKeys      = []string{"endDate", "end"}
	marketKeys   = []string{"market", "marketType"}
	splitKeys    = []string{"split", "splitAdjustment", "enableSplit"}
	dividendKeys = []string{"dividend", "dividendAdjustment"}
)

// FromQuery extracts an AdjustedPriceRequest from URL query values.
func FromQuery(q url.Values) AdjustedPriceRequest {
	return AdjustedPriceRequest{
		StockNo:   first(q, "stockNo"),
		StartDate: first(q, startKeys...),
		EndDate:   first(q, endKeys...),
		Market:    first(q, marketKeys...),
		Split:     first(q, splitKeys...),
		Dividend:  first(q, dividendKeys...),
	}
}

func first(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// Truthy reports whether a flag token means enabled: 1, true, on or yes.
func Truthy(token string) bool {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
