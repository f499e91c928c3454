package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/common"
)

// Handler exposes POST /api/bills.
type Handler struct {
	Svc *Service
	// Idem guards the route against double submission when set.
	Idem *common.Idem
}

// Routes mounts the checkout endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	if h.Idem != nil {
		r.With(h.Idem.Middleware).Post("/", h.Create)
		return
	}
	r.Post("/", h.Create)
}

// Create handles POST /api/bills.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload billing.BillPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	out, err := h.Svc.Create(r.Context(), payload)
	if err != nil {
		common.WriteError(w, err, "Failed to save bill")
		return
	}
	common.JSON(w, http.StatusCreated, out)
}
