package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// API groups the handlers mounted under /api.
type API struct {
	Auth      *Auth
	Users     *UsersHandler
	Quotes    *QuotesHandler
	Reports   *ReportsHandler
	Directory *DirectoryHandler
	Functions *FunctionsHandler
	Dashboard *DashboardHandler
	EmailLog  *EmailLogHandler
}

func (a *API) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		a.Users.RegisterPublic(r)
		r.Group(func(r chi.Router) {
			r.Use(a.Auth.Middleware)
			a.Users.Register(r)
			a.Quotes.Register(r)
			a.Reports.Register(r)
			a.Directory.Register(r)
			a.Functions.Register(r)
			a.Dashboard.Register(r)
			if a.EmailLog != nil {
				a.EmailLog.Register(r)
			}
		})
	})
}
