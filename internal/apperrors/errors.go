package apperrors

import "errors"

// Request validation errors. Handlers map these to 400 before any provider is called.
var (
	// ErrMissingStockNo indicates that the stockNo query parameter is absent.
	ErrMissingStockNo = errors.New("stockNo is required")

	// ErrInvalidDate indicates that a date parameter is missing or not a real calendar day.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidDateRange indicates that the start date is after the end date.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidMarket indicates an unknown market label.
	ErrInvalidMarket = errors.New("invalid market")
)

// Provider and composition errors.
var (
	// ErrMissingToken indicates that a provider needing credentials has none configured.
	ErrMissingToken = errors.New("provider token not configured")

	// ErrNoData indicates that a provider answered successfully but returned no rows.
	ErrNoData = errors.New("no data returned")

	// ErrProviderDisabled indicates a provider that is switched off in configuration.
	ErrProviderDisabled = errors.New("provider disabled")

	// ErrPriceUnavailable indicates that every price provider failed for the request.
	ErrPriceUnavailable = errors.New("price data unavailable from all providers")
)
