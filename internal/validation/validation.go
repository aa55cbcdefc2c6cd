package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/api/request"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/apperrors"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
)

// Stock numbers are short alphanumeric codes (2330, 00878, 6488, 2882A).
var stockNoPattern = regexp.MustCompile(`^[0-9A-Za-z]{1,10}$`)

// ValidateAdjustedPrice validates an adjusted price request.
//
// Required fields:
//   - stockNo: Alphanumeric security identifier
//   - startDate/endDate: ISO, slashed, ROC or compact date tokens
//
// Optional fields:
//   - market: TWSE/TSE/listed or TPEX/OTC (default TWSE)
//   - split, dividend: 1, true, on or yes enable explicit adjustment
//
// An end date after today is clamped to today before the range is checked.
// Returns a validation Error wrapping the apperrors sentinel of the first
// failing check.
func ValidateAdjustedPrice(req request.AdjustedPriceRequest, today time.Time) (model.CompositionRequest, error) {
	var out model.CompositionRequest
	errors := make(map[string]string)
	var cause error

	fail := func(field, msg string, sentinel error) {
		errors[field] = msg
		if cause == nil {
			cause = sentinel
		}
	}

	stockNo := strings.ToUpper(strings.TrimSpace(req.StockNo))
	switch {
	case stockNo == "":
		fail("stockNo", "stockNo is required", apperrors.ErrMissingStockNo)
	case !stockNoPattern.MatchString(stockNo):
		fail("stockNo", "stockNo must be alphanumeric", apperrors.ErrMissingStockNo)
	}
	out.StockNo = stockNo

	start, ok := isodate.Parse(req.StartDate)
	if !ok {
		fail("startDate", "startDate must be a valid date", apperrors.ErrInvalidDate)
	}
	end, endOK := isodate.Parse(req.EndDate)
	if !endOK {
		fail("endDate", "endDate must be a valid date", apperrors.ErrInvalidDate)
	}
	if ok && endOK {
		if today = isodate.Truncate(today); end.After(today) {
			end = today
		}
		if start.After(end) {
			fail("startDate", "startDate must not be after endDate", apperrors.ErrInvalidDateRange)
		}
	}
	out.Start, out.End = start, end

	market, ok := model.ParseMarket(req.Market)
	if !ok {
		fail("market", "market must be TWSE or TPEX", apperrors.ErrInvalidMarket)
	}
	out.Market = market

	out.Split = request.Truthy(req.Split)
	out.Dividend = request.Truthy(req.Dividend)

	if len(errors) > 0 {
		return model.CompositionRequest{}, &Error{Fields: errors, Err: cause}
	}
	return out, nil
}
