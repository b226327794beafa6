package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/allevapp/allevapp/internal/notify"
	"github.com/go-chi/chi/v5"
)

type EmailLogStore interface {
	Recent(ctx context.Context, limit, offset int) ([]notify.LogEntry, error)
}

type EmailLogHandler struct {
	Store EmailLogStore
}

func (h *EmailLogHandler) Register(r chi.Router) {
	r.With(managers).Get("/email-log", h.list)
}

func (h *EmailLogHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.Recent(ctx, limit, offset)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
