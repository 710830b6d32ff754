package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const serviceName = "immunopass"

// HealthEnvelope is returned by the liveness check.
type HealthEnvelope struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthHandler answers load-balancer liveness checks.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

// Check answers /health-check/ping; any other action is a 404.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "action") != "ping" {
		writeError(w, http.StatusNotFound, "unknown health-check action")
		return
	}
	writeJSON(w, http.StatusOK, HealthEnvelope{Status: "pong", Service: serviceName})
}
