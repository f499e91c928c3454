package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-billing/internal/common"
	"github.com/noah-isme/toko-billing/internal/model"
)

// Handler exposes the /api/items endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Routes mounts the item endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /api/items[?q=].
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch items")
		return
	}
	common.JSON(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch item")
		return
	}
	common.JSON(w, http.StatusOK, item)
}

// Create handles POST /api/items.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var item model.Item
	if err := common.DecodeJSON(r, &item); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	created, err := h.service.Create(r.Context(), item)
	if err != nil {
		common.WriteError(w, err, "Failed to save item")
		return
	}
	common.JSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/items/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var item model.Item
	if err := common.DecodeJSON(r, &item); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), item)
	if err != nil {
		common.WriteError(w, err, "Failed to save item")
		return
	}
	common.JSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err, "Failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
