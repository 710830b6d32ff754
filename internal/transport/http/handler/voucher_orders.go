package handler

import (
	"net/http"

	"github.com/immunopass-go/internal/application/voucher"
	"github.com/immunopass-go/internal/transport/http/middleware"
)

const maxUploadBytes = 10 << 20

// VoucherOrderHandler accepts beneficiary CSV uploads.
type VoucherOrderHandler struct {
	svc voucher.Service
}

func NewVoucherOrderHandler(svc voucher.Service) *VoucherOrderHandler {
	return &VoucherOrderHandler{svc: svc}
}

func (h *VoucherOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer f.Close()

	order, err := h.svc.CreateOrder(r.Context(), claims.AccountContext(), f)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, OrderEnvelope{Order: order})
}
