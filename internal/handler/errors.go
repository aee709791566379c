package handler

import (
	"errors"
	"net/http"

	"backend/internal/service"
)

// statusFor maps service sentinel errors onto HTTP status codes. Referential
// failures inside a reconciliation (unknown project in an actuals list) are
// client errors; the transaction already rolled back by the time we get here.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrProjectNotFound):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrScheduleNotFound), errors.Is(err, service.ErrDocumentNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
