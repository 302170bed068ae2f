package api

import (
	"errors"
	"net/http"

	"GammaDesk/internal/domain/models"
	xhttp "GammaDesk/pkg/http"
)

// toAppError maps the domain error taxonomy onto HTTP errors. Internal details never leave the process.
func toAppError(err error) *xhttp.AppError {
	var ih *models.InsufficientHistoryError
	switch {
	case errors.As(err, &ih):
		return xhttp.NewAppError("ERR_INSUFFICIENT_HISTORY", "", "not enough dates with positions data", http.StatusNotFound).
			WithParam("available", ih.Available).
			WithParam("required", ih.Required).
			WithError(err)
	case errors.Is(err, models.ErrNoSpotPrice):
		return xhttp.NewAppError("ERR_NO_SPOT_PRICE", "ticker", "spot price unavailable", http.StatusNotFound).WithError(err)
	case errors.Is(err, models.ErrNoPositionsData):
		return xhttp.NewAppError("ERR_NO_POSITIONS", "", "no positions data for ticker and expiration", http.StatusNotFound).WithError(err)
	case errors.Is(err, models.ErrNoGreeksData):
		return xhttp.NewAppError("ERR_NO_GREEKS", "", "no option greeks for ticker and expiration", http.StatusNotFound).WithError(err)
	case errors.Is(err, models.ErrInsufficientHistory):
		return xhttp.NewAppError("ERR_INSUFFICIENT_HISTORY", "", "not enough price history", http.StatusNotFound).WithError(err)
	case errors.Is(err, models.ErrUnknownExpiration):
		return xhttp.NewAppError("ERR_UNKNOWN_EXPIRATION", "expiration_code", "unknown expiration code", http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrInvalidSymbol):
		return xhttp.NewAppError("ERR_INVALID_SYMBOL", "ticker", "invalid ticker", http.StatusBadRequest).WithError(err)
	default:
		return xhttp.InternalError("analysis failed").WithError(err)
	}
}
