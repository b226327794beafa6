package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/allevapp/allevapp/internal/graph"
	"github.com/allevapp/allevapp/internal/notify"
	"github.com/go-chi/chi/v5"
)

// Functions is the notify service as seen by the HTTP layer.
type Functions interface {
	SendQuoteEmail(ctx context.Context, req notify.QuoteEmailRequest) error
	SendPasswordEmail(ctx context.Context, req notify.PasswordEmailRequest) error
	CreateCalendarEvent(ctx context.Context, req notify.EventRequest) (*graph.CreatedEvent, error)
	SendDailySummary(ctx context.Context, force bool) (*notify.SummaryResult, error)
}

type FunctionsHandler struct {
	Notify Functions
}

func (h *FunctionsHandler) Register(r chi.Router) {
	r.Route("/functions", func(r chi.Router) {
		r.Use(managers)
		r.Post("/send-quote-email", h.sendQuoteEmail)
		r.Post("/send-password-email", h.sendPasswordEmail)
		r.Post("/create-calendar-event", h.createCalendarEvent)
		r.Post("/send-daily-summary", h.sendDailySummary)
	})
}

func (h *FunctionsHandler) sendQuoteEmail(w http.ResponseWriter, r *http.Request) {
	var req notify.QuoteEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	if err := h.Notify.SendQuoteEmail(ctx, req); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *FunctionsHandler) sendPasswordEmail(w http.ResponseWriter, r *http.Request) {
	var req notify.PasswordEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	if err := h.Notify.SendPasswordEmail(ctx, req); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *FunctionsHandler) createCalendarEvent(w http.ResponseWriter, r *http.Request) {
	var req notify.EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	ev, err := h.Notify.CreateCalendarEvent(ctx, req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "event": ev})
}

func (h *FunctionsHandler) sendDailySummary(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	res, err := h.Notify.SendDailySummary(ctx, force)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
