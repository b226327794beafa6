package httpx

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/allevapp/allevapp/internal/farms"
	"github.com/allevapp/allevapp/internal/redisx"
	"github.com/allevapp/allevapp/internal/reports"
	"github.com/go-chi/chi/v5"
)

type DashboardStore interface {
	CountActiveByUrgency(ctx context.Context) (map[reports.Urgency]int, error)
	CountPendingQuotes(ctx context.Context) (int, error)
	CountOrdersSince(ctx context.Context, since time.Time) (int, error)
	ListScheduledMaintenance(ctx context.Context, until time.Time) ([]farms.MaintenanceItem, error)
}

type Dashboard struct {
	OpenReports     map[reports.Urgency]int `json:"open_reports"`
	PendingQuotes   int                     `json:"pending_quotes"`
	MaintenanceDue  int                     `json:"maintenance_due"`
	OrdersThisMonth int                     `json:"orders_this_month"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

type DashboardHandler struct {
	Store DashboardStore
	Cache Cache
	Now   func() time.Time
}

func (h *DashboardHandler) Register(r chi.Router) {
	r.Get("/dashboard", h.get)
}

func (h *DashboardHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var d Dashboard
	if h.Cache != nil {
		if ok, err := h.Cache.GetJSON(ctx, redisx.KeyDashboard, &d); err == nil && ok {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}

	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}
	today := now.Truncate(24 * time.Hour)
	d = Dashboard{GeneratedAt: now}

	var err error
	if d.OpenReports, err = h.Store.CountActiveByUrgency(ctx); err != nil {
		writeErr(w, r, err)
		return
	}
	if d.PendingQuotes, err = h.Store.CountPendingQuotes(ctx); err != nil {
		writeErr(w, r, err)
		return
	}
	items, err := h.Store.ListScheduledMaintenance(ctx, today.AddDate(0, 0, 7))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	d.MaintenanceDue = len(items)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if d.OrdersThisMonth, err = h.Store.CountOrdersSince(ctx, monthStart); err != nil {
		writeErr(w, r, err)
		return
	}

	if h.Cache != nil {
		if err := h.Cache.SetJSON(ctx, redisx.KeyDashboard, d, redisx.TTLDashboard); err != nil {
			log.Printf("dashboard cache: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, d)
}
