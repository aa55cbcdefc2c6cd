package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/api/request"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/api/response"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/service"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/validation"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/version"
)

// AdjustedPriceHandler serves adjusted price compositions
type AdjustedPriceHandler struct {
	service *service.AdjustedPriceService
	today   func() time.Time
}

// NewAdjustedPriceHandler creates a new AdjustedPriceHandler
func NewAdjustedPriceHandler(s *service.AdjustedPriceService) *AdjustedPriceHandler {
	return &AdjustedPriceHandler{
		service: s,
		today:   isodate.Today,
	}
}

// AdjustedPrice handles GET requests composing an adjusted daily series.
//
// Endpoint: GET /api/adjusted-price (alias GET /api/calculate-adjusted-price)
// Query: stockNo, startDate|start, endDate|end, market|marketType,
// split|splitAdjustment|enableSplit, dividend|dividendAdjustment
// Response: 200 OK with the composition result
// Error: 400 Bad Request before any provider call when validation fails;
// the price stage status (default 500) with the partial result when no
// price provider served rows
func (h *AdjustedPriceHandler) AdjustedPrice(w http.ResponseWriter, r *http.Request) {
	req := request.FromQuery(r.URL.Query())

	compose, err := validation.ValidateAdjustedPrice(req, h.today())
	if err != nil {
		body := model.NewCompositionResult(version.Version, "", req.StockNo, req.Market)
		body.Error = err.Error()
		var ve *validation.Error
		if errors.As(err, &ve) {
			body.Details = ve.Fields
		}
		response.RespondJSON(w, http.StatusBadRequest, body)
		return
	}

	result, err := h.service.Compose(r.Context(), compose)
	if err != nil {
		var ce *service.CompositionError
		if errors.As(err, &ce) && ce.Result != nil {
			response.RespondJSON(w, ce.StatusCode, ce.Result)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("composition failed without diagnostics")
		body := model.NewCompositionResult(version.Version, "", compose.StockNo, string(compose.Market))
		body.Error = "failed to compose adjusted prices: " + err.Error()
		response.RespondJSON(w, http.StatusInternalServerError, body)
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
