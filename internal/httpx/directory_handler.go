package httpx

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/allevapp/allevapp/internal/farms"
	"github.com/go-chi/chi/v5"
)

type FarmStore interface {
	Create(ctx context.Context, f farms.Farm) (farms.Farm, error)
	Get(ctx context.Context, id int64) (farms.Farm, error)
	List(ctx context.Context, f farms.Filter) ([]farms.Farm, error)
	Update(ctx context.Context, id int64, c farms.FarmChanges) (farms.Farm, error)
	Delete(ctx context.Context, id int64) error
	SetCompanyPrefix(ctx context.Context, company, prefix string) error
}

type SupplierStore interface {
	Create(ctx context.Context, s farms.Supplier) (farms.Supplier, error)
	Get(ctx context.Context, id int64) (farms.Supplier, error)
	List(ctx context.Context, activeOnly bool, f farms.Filter) ([]farms.Supplier, error)
	Update(ctx context.Context, id int64, c farms.SupplierChanges) (farms.Supplier, error)
	Delete(ctx context.Context, id int64) error
}

type AssetStore interface {
	Create(ctx context.Context, a farms.Asset) (farms.Asset, error)
	Get(ctx context.Context, id int64) (farms.Asset, error)
	List(ctx context.Context, f farms.Filter) ([]farms.Asset, error)
	Update(ctx context.Context, id int64, c farms.AssetChanges) (farms.Asset, error)
	Delete(ctx context.Context, id int64) error
	CompleteMaintenance(ctx context.Context, id int64, done time.Time, next *time.Time) (farms.Asset, error)
}

type MaintenanceStore interface {
	ListScheduledMaintenance(ctx context.Context, until time.Time) ([]farms.MaintenanceItem, error)
}

type DirectoryHandler struct {
	Farms       FarmStore
	Suppliers   SupplierStore
	Equipment   AssetStore
	Facilities  AssetStore
	Maintenance MaintenanceStore
}

func (h *DirectoryHandler) Register(r chi.Router) {
	r.Get("/farms", h.listFarms)
	r.Get("/farms/{id}", h.getFarm)
	r.Get("/suppliers", h.listSuppliers)
	r.Get("/suppliers/{id}", h.getSupplier)
	r.Get("/maintenance/upcoming", h.upcoming)

	r.Group(func(r chi.Router) {
		r.Use(managers)
		r.Post("/farms", h.createFarm)
		r.Patch("/farms/{id}", h.updateFarm)
		r.Delete("/farms/{id}", h.deleteFarm)
		r.Put("/companies/{name}/prefix", h.setPrefix)
		r.Post("/suppliers", h.createSupplier)
		r.Patch("/suppliers/{id}", h.updateSupplier)
		r.Delete("/suppliers/{id}", h.deleteSupplier)
	})

	h.assetRoutes(r, "/equipment", h.Equipment)
	h.assetRoutes(r, "/facilities", h.Facilities)
}

func (h *DirectoryHandler) listFarms(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Farms.List(ctx, farms.Filter{Limit: limit, Offset: offset})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *DirectoryHandler) getFarm(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f, err := h.Farms.Get(ctx, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type FarmReq struct {
	Name      *string  `json:"name"`
	Company   *string  `json:"company"`
	Address   *string  `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func validCoords(lat, lng *float64) bool {
	return (lat == nil || (*lat >= -90 && *lat <= 90)) && (lng == nil || (*lng >= -180 && *lng <= 180))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (h *DirectoryHandler) createFarm(w http.ResponseWriter, r *http.Request) {
	var req FarmReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if deref(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !validCoords(req.Latitude, req.Longitude) {
		writeError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f, err := h.Farms.Create(ctx, farms.Farm{
		Name: deref(req.Name), Company: deref(req.Company), Address: deref(req.Address),
		Latitude: req.Latitude, Longitude: req.Longitude,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *DirectoryHandler) updateFarm(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var req FarmReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.Name != nil && deref(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if !validCoords(req.Latitude, req.Longitude) {
		writeError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f, err := h.Farms.Update(ctx, id, farms.FarmChanges{
		Name: req.Name, Company: req.Company, Address: req.Address, Latitude: req.Latitude, Longitude: req.Longitude,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *DirectoryHandler) deleteFarm(w http.ResponseWriter, r *http.Request) {
	h.deleteBy(w, r, h.Farms.Delete)
}

func (h *DirectoryHandler) deleteBy(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := del(ctx, id); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type PrefixReq struct {
	Prefix string `json:"prefix"`
}

func (h *DirectoryHandler) setPrefix(w http.ResponseWriter, r *http.Request) {
	company := strings.TrimSpace(chi.URLParam(r, "name"))
	var req PrefixReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	prefix := strings.ToUpper(strings.TrimSpace(req.Prefix))
	if company == "" || len(prefix) > 10 || strings.ContainsAny(prefix, " -") {
		writeError(w, http.StatusBadRequest, "prefix must be at most 10 characters without spaces or dashes")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Farms.SetCompanyPrefix(ctx, company, prefix); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"company": company, "prefix": prefix})
}

func (h *DirectoryHandler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Suppliers.List(ctx, activeOnly, farms.Filter{Limit: limit, Offset: offset})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *DirectoryHandler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Suppliers.Get(ctx, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type SupplierReq struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Category *string `json:"category"`
	Active   *bool   `json:"active"`
}

func validAddress(s string) bool {
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " <>")
}

func (h *DirectoryHandler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req SupplierReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if deref(req.Name) == "" || !validAddress(deref(req.Email)) {
		writeError(w, http.StatusBadRequest, "name and a valid email are required")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Suppliers.Create(ctx, farms.Supplier{
		Name: deref(req.Name), Email: deref(req.Email), Phone: deref(req.Phone), Category: deref(req.Category), Active: active,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *DirectoryHandler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var req SupplierReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.Email != nil && !validAddress(deref(req.Email)) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Suppliers.Update(ctx, id, farms.SupplierChanges{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Category: req.Category, Active: req.Active,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *DirectoryHandler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	h.deleteBy(w, r, h.Suppliers.Delete)
}

// assetRoutes mounts the shared equipment/facility endpoints on prefix.
func (h *DirectoryHandler) assetRoutes(r chi.Router, prefix string, store AssetStore) {
	a := &assetHandler{store: store}
	r.Get(prefix, a.list)
	r.Get(prefix+"/{id}", a.get)
	r.With(fieldStaff).Post(prefix+"/{id}/maintenance", a.completeMaintenance)
	r.Group(func(r chi.Router) {
		r.Use(managers)
		r.Post(prefix, a.create)
		r.Patch(prefix+"/{id}", a.update)
		r.Delete(prefix+"/{id}", func(w http.ResponseWriter, r *http.Request) { h.deleteBy(w, r, store.Delete) })
	})
}

type assetHandler struct{ store AssetStore }

func (a *assetHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	farmID, err := queryInt64(r, "farm_id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := a.store.List(ctx, farms.Filter{FarmID: farmID, Limit: limit, Offset: offset})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *assetHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := a.store.Get(ctx, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type AssetReq struct {
	FarmID              int64   `json:"farm_id"`
	Name                *string `json:"name"`
	Type                *string `json:"type"`
	Status              *string `json:"status"`
	LastMaintenanceDate *Date   `json:"last_maintenance_date"`
	NextMaintenanceDate *Date   `json:"next_maintenance_date"`
	Notes               *string `json:"notes"`
}

func (a *assetHandler) create(w http.ResponseWriter, r *http.Request) {
	var req AssetReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.FarmID <= 0 || deref(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "farm_id and name are required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := a.store.Create(ctx, farms.Asset{
		FarmID:              req.FarmID,
		Name:                deref(req.Name),
		Type:                deref(req.Type),
		Status:              deref(req.Status),
		LastMaintenanceDate: req.LastMaintenanceDate.Ptr(),
		NextMaintenanceDate: req.NextMaintenanceDate.Ptr(),
		Notes:               deref(req.Notes),
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (a *assetHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var req AssetReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := a.store.Update(ctx, id, farms.AssetChanges{
		Name: req.Name, Type: req.Type, Status: req.Status,
		NextMaintenanceDate: req.NextMaintenanceDate.Ptr(), Notes: req.Notes,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type MaintenanceReq struct {
	Date                *Date `json:"date"`
	NextMaintenanceDate *Date `json:"next_maintenance_date"`
}

func (a *assetHandler) completeMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var req MaintenanceReq
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	done := time.Now().UTC().Truncate(24 * time.Hour)
	if d := req.Date.Ptr(); d != nil {
		done = *d
	}
	next := req.NextMaintenanceDate.Ptr()
	if next != nil && next.Before(done) {
		writeError(w, http.StatusBadRequest, "next_maintenance_date must not be before date")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := a.store.CompleteMaintenance(ctx, id, done, next)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DirectoryHandler) upcoming(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 365 {
			writeError(w, http.StatusBadRequest, "days must be between 0 and 365")
			return
		}
		days = n
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	until := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, days)
	items, err := h.Maintenance.ListScheduledMaintenance(ctx, until)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
