package model

// OutcomeStatus is the fixed taxonomy of provider call results.
type OutcomeStatus string

// Outcome statuses, see outcome.Classify for the decision order.
const (
	StatusSuccess          OutcomeStatus = "success"
	StatusMissingToken     OutcomeStatus = "missingToken"
	StatusPermissionDenied OutcomeStatus = "permissionDenied"
	StatusTokenInvalid     OutcomeStatus = "tokenInvalid"
	StatusParameterError   OutcomeStatus = "parameterError"
	StatusNoData           OutcomeStatus = "noData"
	StatusNetworkError     OutcomeStatus = "networkError"
	StatusServerError      OutcomeStatus = "serverError"
)

// ProviderOutcome describes why a provider call ended the way it did.
type ProviderOutcome struct {
	TokenPresent bool          `json:"tokenPresent"`
	Dataset      string        `json:"dataset"`
	StatusCode   int           `json:"statusCode,omitempty"`
	Message      string        `json:"message,omitempty"`
	Status       OutcomeStatus `json:"status"`
	DataCount    int           `json:"dataCount"`
	SpanStart    string        `json:"spanStart,omitempty"`
	SpanEnd      string        `json:"spanEnd,omitempty"`
	Hint         string        `json:"hint,omitempty"`
}

// Debug step statuses.
const (
	StepSuccess = "success"
	StepWarning = "warning"
	StepError   = "error"
)

// Pipeline stage keys reported in DebugSteps.
const (
	StagePriceFetch             = "priceFetch"
	StageDividendResultFetch    = "dividendResultFetch"
	StageSplitFetch             = "splitFetch"
	StageDividendResultEvents   = "dividendResultEvents"
	StageAdjustmentApply        = "adjustmentApply"
	StageAdjustedSeriesFallback = "adjustedSeriesFallback"
)

// DebugStep is one line of the ordered pipeline summary.
type DebugStep struct {
	Key    string `json:"key"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// ProviderAttempt is one provider call made during a stage.
type ProviderAttempt struct {
	Provider   string        `json:"provider"`
	Dataset    string        `json:"dataset,omitempty"`
	Status     OutcomeStatus `json:"status"`
	Reason     string        `json:"reason,omitempty"`
	Rows       int           `json:"rows"`
	Requests   int           `json:"requests,omitempty"`
	Splits     int           `json:"splits,omitempty"`
	DurationMs int64         `json:"durationMs"`
}

// StageDiagnostics collects the attempts made for one pipeline stage.
type StageDiagnostics struct {
	Attempts []ProviderAttempt `json:"attempts"`
	Selected string            `json:"selected,omitempty"` // Provider that served the stage
	Records  int               `json:"records"`            // Raw records/rows the selected provider returned
	Events   int               `json:"events"`             // Canonical events derived (corporate-action stages only)
}

// FinMindStatus summarizes the fundamentals provider outcomes.
type FinMindStatus struct {
	TokenPresent   bool             `json:"tokenPresent"`
	DividendResult *ProviderOutcome `json:"dividendResult"`
	SplitPrice     *ProviderOutcome `json:"splitPrice"`
}

// Summary is the count section of the response.
type Summary struct {
	PriceRows        int            `json:"priceRows"`
	DividendEvents   int            `json:"dividendEvents"`
	SplitEvents      int            `json:"splitEvents"`
	AdjustmentEvents int            `json:"adjustmentEvents"` // Applied (non-skipped) adjustments
	SkippedEvents    int            `json:"skippedEvents"`
	SkipReasons      map[string]int `json:"skipReasons"`
	Sources          []string       `json:"sources"`
}

// CompositionResult is the full response aggregate.
type CompositionResult struct {
	Version             string              `json:"version"`
	RunID               string              `json:"runId"`
	StockNo             string              `json:"stockNo"`
	Market              string              `json:"market"`
	StockName           string              `json:"stockName"`
	DataSource          string              `json:"dataSource"`
	PriceSource         string              `json:"priceSource"`
	Summary             Summary             `json:"summary"`
	Data                []PriceRow          `json:"data"`
	Adjustments         []AppliedAdjustment `json:"adjustments"`
	DividendEvents      []AdjustmentEvent   `json:"dividendEvents"`
	PriceDiagnostics    StageDiagnostics    `json:"priceDiagnostics"`
	DividendDiagnostics StageDiagnostics    `json:"dividendDiagnostics"`
	SplitDiagnostics    StageDiagnostics    `json:"splitDiagnostics"`
	DebugSteps          []DebugStep         `json:"debugSteps"`
	FinMindStatus       FinMindStatus       `json:"finmindStatus"`
	Warnings            []string            `json:"warnings,omitempty"`
	Error               string              `json:"error,omitempty"`
	Hint                string              `json:"hint,omitempty"`
	Details             map[string]string   `json:"details,omitempty"` // Field errors of a rejected request
}

// NewCompositionResult returns an empty result with non-nil lists.
func NewCompositionResult(version, runID, stockNo, market string) *CompositionResult {
	return &CompositionResult{
		Version:        version,
		RunID:          runID,
		StockNo:        stockNo,
		Market:         market,
		StockName:      stockNo,
		Data:           []PriceRow{},
		Adjustments:    []AppliedAdjustment{},
		DividendEvents: []AdjustmentEvent{},
		DebugSteps:     []DebugStep{},
	}
}
