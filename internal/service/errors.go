package service

import (
	"fmt"
	"net/http"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/apperrors"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

// CompositionError is returned when a mandatory stage is exhausted on every provider.
// Result holds the diagnostics gathered up to the failure.
type CompositionError struct {
	Stage      string
	StatusCode int
	Outcome    model.ProviderOutcome
	Result     *model.CompositionResult
	Err        error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Outcome.Status, e.Err)
}

// Unwrap exposes both ErrPriceUnavailable and the last provider error.
func (e *CompositionError) Unwrap() []error {
	return []error{apperrors.ErrPriceUnavailable, e.Err}
}

// exhaustedStatus maps the last provider failure to the response status:
// upstream 5xx statuses pass through, everything else is a 500.
func exhaustedStatus(err error) int {
	if code := spanfetch.StatusCode(err); code >= http.StatusInternalServerError && code <= 599 {
		return code
	}
	return http.StatusInternalServerError
}
