package httpx

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/allevapp/allevapp/internal/farms"
	"github.com/allevapp/allevapp/internal/graph"
	"github.com/allevapp/allevapp/internal/notify"
	"github.com/allevapp/allevapp/internal/orders"
	"github.com/allevapp/allevapp/internal/reports"
	"github.com/allevapp/allevapp/internal/users"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

// writeErr maps domain errors to status codes.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		cfgErr *graph.ConfigError
		tokErr *graph.TokenError
		apiErr *graph.APIError
	)
	switch {
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, reports.ErrNotFound),
		errors.Is(err, farms.ErrNotFound), errors.Is(err, users.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, reports.ErrInvalidTransition),
		errors.Is(err, orders.ErrAlreadyAccepted), errors.Is(err, orders.ErrLocked),
		errors.Is(err, farms.ErrInUse), errors.Is(err, users.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errBadRequest), errors.Is(err, orders.ErrAmountRequired),
		errors.Is(err, orders.ErrNoSuppliers), errors.Is(err, farms.ErrInvalidStatus),
		errors.Is(err, users.ErrInvalidRole), errors.Is(err, notify.ErrInvalidRequest),
		errors.Is(err, orders.ErrUnknownReference), errors.Is(err, reports.ErrUnknownReference),
		errors.Is(err, farms.ErrUnknownFarm):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cfgErr):
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &tokErr):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: tokErr.Error(), Code: tokErr.Code,
			Hint: "check MICROSOFT_CLIENT_ID and MICROSOFT_CLIENT_SECRET"})
	case errors.As(err, &apiErr):
		writeJSON(w, apiErr.Status, errorBody{Error: apiErr.Error(), Code: apiErr.Code, Hint: apiErr.Hint})
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout")
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
