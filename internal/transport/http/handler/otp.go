package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/immunopass-go/internal/application/otp"
	"github.com/immunopass-go/internal/pkg/validate"
)

// OTPHandler serves the login OTP endpoints.
type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler { return &OTPHandler{svc: svc} }

func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req otp.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.svc.Send(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OTPSentEnvelope{
		Message:    "OTP sent.",
		ValidTill:  rec.ValidTill.Format(time.RFC3339),
		RetryCount: rec.RetryCount,
	})
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req otp.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: res.AccessToken, Account: res.Account})
}
