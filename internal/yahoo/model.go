package yahoo

// Response represents the raw JSON response structure from the Yahoo Finance chart API.
//
// The structure includes:
//   - Chart.Result: Array of result objects (typically contains one element)
//   - Chart.Result[].Meta: Symbol metadata (name, currency, exchange, UTC offset)
//   - Chart.Result[].Timestamp: Unix timestamps for each bar
//   - Chart.Result[].Indicators: Unadjusted quotes plus the adjusted close series
//   - Chart.Error: Optional error object from Yahoo
//
// Every price is a pointer because Yahoo emits null for halted days.
type Response struct {
	Chart Chart `json:"chart"`
}

// Chart is the top-level chart envelope.
type Chart struct {
	Result []Result    `json:"result"`
	Error  *ChartError `json:"error"`
}

// ChartError is the error object Yahoo returns in place of results.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Result is one symbol's chart.
type Result struct {
	Meta       Meta                `json:"meta"`
	Timestamp  []int64             `json:"timestamp"`
	Indicators IndicatorsContainer `json:"indicators"`
}

// Meta holds symbol metadata.
type Meta struct {
	Currency         string `json:"currency"`
	Symbol           string `json:"symbol"`
	ExchangeName     string `json:"exchangeName"`
	FullExchangeName string `json:"fullExchangeName"`
	LongName         string `json:"longName"`
	Shortname        string `json:"shortName"`
	GmtOffset        int64  `json:"gmtoffset"` // Exchange offset from UTC in seconds
}

// IndicatorsContainer holds the per-bar series.
type IndicatorsContainer struct {
	Quote    []Quote    `json:"quote"`
	AdjClose []AdjClose `json:"adjclose"`
}

// Quote is the unadjusted OHLCV series.
type Quote struct {
	Open   []*float64 `json:"open"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
}

// AdjClose is the dividend- and split-adjusted close series.
type AdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

// PriceChart represents a parsed price chart.
// Bars without an adjusted close or an open are dropped during parsing.
type PriceChart struct {
	Currency     string       `json:"currency"`
	Symbol       string       `json:"symbol"`
	ExchangeName string       `json:"exchangeName"`
	LongName     string       `json:"longName"`
	Shortname    string       `json:"shortName"`
	Indicators   []Indicators `json:"indicators"`
}

// Indicators represents a single trading day.
//
// Fields:
//   - Date: Trading day in the exchange's local calendar (YYYY-MM-DD)
//   - PriceOpen/PriceHigh/PriceLow/PriceClose: Unadjusted prices (High/Low may be 0 when absent)
//   - AdjClose: Adjusted close
//   - Volume: Number of shares traded
type Indicators struct {
	Date       string
	PriceOpen  float64
	PriceClose float64
	PriceHigh  float64
	PriceLow   float64
	AdjClose   float64
	Volume     int64
}
