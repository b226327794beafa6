package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/allevapp/allevapp/internal/reports"
	"github.com/go-chi/chi/v5"
)

type ReportStore interface {
	Create(ctx context.Context, rep reports.Report) (reports.Report, error)
	Get(ctx context.Context, id int64) (reports.Report, error)
	List(ctx context.Context, f reports.Filter) ([]reports.Report, error)
	Update(ctx context.Context, id int64, c reports.Changes) (reports.Report, error)
	UpdateStatus(ctx context.Context, id int64, to reports.Status) (reports.Report, error)
	Delete(ctx context.Context, id int64) error
}

type ReportsHandler struct {
	Store ReportStore
}

func (h *ReportsHandler) Register(r chi.Router) {
	r.Get("/reports", h.list)
	r.Get("/reports/export.xlsx", h.export)
	r.Get("/reports/{id}", h.get)

	r.Group(func(r chi.Router) {
		r.Use(fieldStaff)
		r.Post("/reports", h.create)
		r.Patch("/reports/{id}", h.update)
		r.Post("/reports/{id}/status", h.updateStatus)
	})
	r.With(managers).Delete("/reports/{id}", h.delete)
}

func reportFilter(r *http.Request) (reports.Filter, error) {
	q := r.URL.Query()
	f := reports.Filter{Status: reports.Status(q.Get("status")), Urgency: reports.Urgency(q.Get("urgency"))}
	if f.Status != "" && !f.Status.Valid() {
		return f, badRequest("invalid status")
	}
	if f.Urgency != "" && !f.Urgency.Valid() {
		return f, badRequest("invalid urgency")
	}
	var err error
	if f.FarmID, err = queryInt64(r, "farm_id"); err != nil {
		return f, err
	}
	if f.Limit, f.Offset, err = page(r); err != nil {
		return f, err
	}
	return f, nil
}

func (h *ReportsHandler) list(w http.ResponseWriter, r *http.Request) {
	f, err := reportFilter(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.List(ctx, f)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ReportsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rep, err := h.Store.Get(ctx, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type CreateReportReq struct {
	FarmID      int64           `json:"farm_id"`
	EquipmentID *int64          `json:"equipment_id"`
	FacilityID  *int64          `json:"facility_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Urgency     reports.Urgency `json:"urgency"`
}

func (h *ReportsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateReportReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.FarmID <= 0 || strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "farm_id and title are required")
		return
	}
	if req.Urgency == "" {
		req.Urgency = reports.UrgencyMedium
	}
	if !req.Urgency.Valid() {
		writeError(w, http.StatusBadRequest, "invalid urgency")
		return
	}
	reporter := ""
	if c, ok := claimsFrom(r.Context()); ok {
		reporter = c.Email
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rep, err := h.Store.Create(ctx, reports.Report{
		FarmID:      req.FarmID,
		EquipmentID: req.EquipmentID,
		FacilityID:  req.FacilityID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Urgency:     req.Urgency,
		ReportedBy:  reporter,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

type UpdateReportReq struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Urgency     *reports.Urgency `json:"urgency"`
	EquipmentID *int64           `json:"equipment_id"`
	FacilityID  *int64           `json:"facility_id"`
}

func (h *ReportsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var req UpdateReportReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.Urgency != nil && !req.Urgency.Valid() {
		writeError(w, http.StatusBadRequest, "invalid urgency")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rep, err := h.Store.Update(ctx, id, reports.Changes{
		Title: req.Title, Description: req.Description, Urgency: req.Urgency,
		EquipmentID: req.EquipmentID, FacilityID: req.FacilityID,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type ReportStatusReq struct {
	Status reports.Status `json:"status"`
}

func (h *ReportsHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var req ReportStatusReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rep, err := h.Store.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *ReportsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.Delete(ctx, id); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
