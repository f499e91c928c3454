package customer

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-billing/internal/common"
	"github.com/noah-isme/toko-billing/internal/export"
	"github.com/noah-isme/toko-billing/internal/model"
)

// Handler exposes the /api/customers endpoints.
type Handler struct {
	Service *Service
}

// Routes mounts the customer endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/export", h.Export)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /api/customers[?q=].
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Service.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch customers")
		return
	}
	common.JSON(w, http.StatusOK, customers)
}

// Get handles GET /api/customers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch customer")
		return
	}
	common.JSON(w, http.StatusOK, c)
}

// Create handles POST /api/customers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var c model.Customer
	if err := common.DecodeJSON(r, &c); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	created, err := h.Service.Create(r.Context(), c)
	if err != nil {
		common.WriteError(w, err, "Failed to save customer")
		return
	}
	common.JSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/customers/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var c model.Customer
	if err := common.DecodeJSON(r, &c); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	updated, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		common.WriteError(w, err, "Failed to save customer")
		return
	}
	common.JSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/customers/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err, "Failed to delete customer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/customers/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Service.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch customers")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="customers.csv"`)
	_ = export.Customers(w, customers)
}
