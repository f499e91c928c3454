package bill

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-billing/internal/common"
	"github.com/noah-isme/toko-billing/internal/export"
)

// Handler exposes bill history under /api/bills.
type Handler struct {
	Service *Service
}

// Routes mounts the read endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/export", h.Export)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/receipt", h.Receipt)
}

func query(r *http.Request) Query {
	q := r.URL.Query()
	return Query{Status: q.Get("status"), CustomerID: q.Get("customerId"), Text: q.Get("q")}
}

// List handles GET /api/bills[?status=][&q=][&page=&limit=]. Without a
// limit every matching bill is returned.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	bills, err := h.Service.List(r.Context(), query(r))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch bills")
		return
	}
	page, limit := common.ParsePagination(r, 0)
	common.JSON(w, http.StatusOK, common.Paginate(bills, page, limit))
}

// Get handles GET /api/bills/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch bill details")
		return
	}
	common.JSON(w, http.StatusOK, b)
}

// Receipt handles GET /api/bills/{id}/receipt.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Service.Receipt(r.Context(), &buf, chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err, "Failed to fetch bill details")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Export handles GET /api/bills/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	bills, err := h.Service.List(r.Context(), query(r))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch bills")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="bills.csv"`)
	_ = export.Bills(w, bills)
}
