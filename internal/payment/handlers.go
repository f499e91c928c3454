package payment

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-billing/internal/common"
	"github.com/noah-isme/toko-billing/internal/export"
	"github.com/noah-isme/toko-billing/internal/model"
)

// Handler exposes /api/payments and /api/transactions.
type Handler struct {
	Svc  *Service
	Idem *common.Idem
}

// PaymentRoutes mounts POST /api/payments.
func (h *Handler) PaymentRoutes(r chi.Router) {
	if h.Idem != nil {
		r.With(h.Idem.Middleware).Post("/", h.Create)
		return
	}
	r.Post("/", h.Create)
}

// TransactionRoutes mounts the ledger reads.
func (h *Handler) TransactionRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/export", h.Export)
}

// Create handles POST /api/payments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var p model.Payment
	if err := common.DecodeJSON(r, &p); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	out, err := h.Svc.Record(r.Context(), p)
	if err != nil {
		common.WriteError(w, err, "Failed to record payment")
		return
	}
	common.JSON(w, http.StatusCreated, out)
}

// List handles GET /api/transactions?customerId=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Svc.Transactions(r.Context(), r.URL.Query().Get("customerId"))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch transactions")
		return
	}
	page, limit := common.ParsePagination(r, 0)
	common.JSON(w, http.StatusOK, common.Paginate(txs, page, limit))
}

// Export handles GET /api/transactions/export?customerId=.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Svc.Transactions(r.Context(), r.URL.Query().Get("customerId"))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch transactions")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	_ = export.Transactions(w, txs)
}
