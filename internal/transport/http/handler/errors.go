package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/immunopass-go/internal/domain"
)

// statusFor maps domain errors to HTTP status codes. Order matters: the
// specific workflow errors are checked before the generic categories.
var statusFor = []struct {
	err    error
	status int
}{
	{domain.ErrAccountNotFound, http.StatusNotFound},
	{domain.ErrOTPNotFound, http.StatusNotFound},
	{domain.ErrNotLinked, http.StatusForbidden},
	{domain.ErrOrgInactive, http.StatusForbidden},
	{domain.ErrRetryExhausted, http.StatusTooManyRequests},
	{domain.ErrAttemptsExhausted, http.StatusTooManyRequests},
	{domain.ErrOTPExpired, http.StatusGone},
	{domain.ErrOTPWrongState, http.StatusConflict},
	{domain.ErrIncorrectCode, http.StatusUnauthorized},
	{domain.ErrDeliveryFailed, http.StatusBadGateway},
	{domain.ErrUploadFailed, http.StatusBadGateway},
	{domain.ErrQuotaExceeded, http.StatusUnprocessableEntity},
	{domain.ErrEmptyUpload, http.StatusBadRequest},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrBadRequest, http.StatusBadRequest},
}

// httpError writes err with the status its domain sentinel maps to.
// Unknown errors become 500 without leaking their text.
func httpError(w http.ResponseWriter, err error) {
	if domain.IsValidation(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			writeError(w, m.status, err.Error())
			return
		}
	}
	slog.Error("unhandled error", "err", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
