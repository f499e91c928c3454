package report

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-billing/internal/common"
	"github.com/noah-isme/toko-billing/internal/export"
	"github.com/noah-isme/toko-billing/internal/model"
)

// Handler exposes the /api/reports endpoints.
type Handler struct {
	Svc *Service
}

// Routes mounts the report endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/sales", h.Sales)
	r.Get("/sales/summary", h.Summary)
	r.Get("/sales/export", h.Export)
}

func request(r *http.Request) Request {
	q := r.URL.Query()
	return Request{
		Period:    model.ReportPeriod(q.Get("period")),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}
}

// Sales handles GET /api/reports/sales.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Svc.Sales(r.Context(), request(r))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch sales report")
		return
	}
	common.JSON(w, http.StatusOK, rows)
}

// Summary handles GET /api/reports/sales/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Svc.Summary(r.Context(), request(r))
	if err != nil {
		common.WriteError(w, err, "Failed to fetch sales report")
		return
	}
	common.JSON(w, http.StatusOK, summary)
}

// Export handles GET /api/reports/sales/export?format=csv|xlsx.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Format must be csv or xlsx", map[string]string{"field": "format"})
		return
	}
	req := request(r)
	rows, err := h.Svc.Sales(r.Context(), req)
	if err != nil {
		common.WriteError(w, err, "Failed to fetch sales report")
		return
	}
	period := req.Period
	if period == "" {
		period = model.PeriodDaily
	}
	name := "sales-report-" + string(period)
	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.xlsx"`)
		_ = export.SalesXLSX(w, period, rows)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
	_ = export.Sales(w, period, rows)
}
