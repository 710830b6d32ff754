package handler

import (
	"encoding/json"
	"net/http"

	"github.com/immunopass-go/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// OTPSentEnvelope acknowledges an issued or resent OTP. The code itself is never returned.
type OTPSentEnvelope struct {
	Message    string `json:"message"`
	ValidTill  string `json:"valid_till"`
	RetryCount int    `json:"retry_count"`
}

// AuthEnvelope wraps a successful OTP verification.
type AuthEnvelope struct {
	AccessToken string          `json:"access_token"`
	Account     *domain.Account `json:"account"`
}

// OrderEnvelope wraps voucher order responses.
type OrderEnvelope struct {
	Order *domain.VoucherOrder `json:"order"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}
