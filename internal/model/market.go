package model

import "strings"

// Market identifies the exchange a security is listed on.
type Market string

// Supported markets.
const (
	MarketTWSE Market = "TWSE" // Listed (上市)
	MarketTPEX Market = "TPEX" // Over the counter (上櫃)
)

var marketAliases = map[string]Market{
	"TWSE":   MarketTWSE,
	"TSE":    MarketTWSE,
	"LISTED": MarketTWSE,
	"TPEX":   MarketTPEX,
	"OTC":    MarketTPEX,
}

// ParseMarket resolves a market label. An empty label defaults to TWSE.
func ParseMarket(label string) (Market, bool) {
	trimmed := strings.ToUpper(strings.TrimSpace(label))
	if trimmed == "" {
		return MarketTWSE, true
	}
	m, ok := marketAliases[trimmed]
	return m, ok
}
