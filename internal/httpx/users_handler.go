package httpx

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/allevapp/allevapp/internal/notify"
	"github.com/allevapp/allevapp/internal/users"
	"github.com/go-chi/chi/v5"
)

type UserStore interface {
	Create(ctx context.Context, u users.User) (users.User, error)
	Get(ctx context.Context, id string) (users.User, error)
	GetByEmail(ctx context.Context, email string) (users.User, error)
	List(ctx context.Context, limit, offset int) ([]users.User, error)
	Update(ctx context.Context, id string, c users.Changes) (users.User, error)
	SetPassword(ctx context.Context, id, hash string) error
}

type PasswordMailer interface {
	SendPasswordEmail(ctx context.Context, req notify.PasswordEmailRequest) error
}

type UsersHandler struct {
	Store  UserStore
	Tokens users.Tokens
	Mailer PasswordMailer
}

// RegisterPublic mounts the routes that need no token.
func (h *UsersHandler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.login)
}

func (h *UsersHandler) Register(r chi.Router) {
	r.Get("/auth/me", h.me)
	r.Post("/auth/password", h.changePassword)
	r.Group(func(r chi.Router) {
		r.Use(adminOnly)
		r.Get("/users", h.list)
		r.Post("/users", h.create)
		r.Patch("/users/{id}", h.update)
		r.Post("/users/{id}/reset-password", h.resetPassword)
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResp struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        users.User `json:"user"`
}

func (h *UsersHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Store.GetByEmail(ctx, req.Email)
	if errors.Is(err, users.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, users.ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := users.CheckPassword(u.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if !u.Active {
		writeError(w, http.StatusForbidden, "account is disabled")
		return
	}
	tok, exp, err := h.Tokens.Issue(u, time.Now())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResp{AccessToken: tok, TokenType: "Bearer", ExpiresAt: exp, User: u})
}

func (h *UsersHandler) me(w http.ResponseWriter, r *http.Request) {
	c, _ := claimsFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Store.Get(ctx, c.UserID())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type ChangePasswordReq struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

func (h *UsersHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	c, _ := claimsFrom(r.Context())
	var req ChangePasswordReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Store.Get(ctx, c.UserID())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := users.CheckPassword(u.PasswordHash, req.Current); err != nil {
		writeError(w, http.StatusUnauthorized, "current password is wrong")
		return
	}
	hash, err := users.HashPassword(req.New)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Store.SetPassword(ctx, u.ID, hash); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.List(ctx, limit, offset)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type CreateUserReq struct {
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Role     users.Role `json:"role"`
	Password string     `json:"password"`
}

type CreateUserResp struct {
	User      users.User `json:"user"`
	EmailSent bool       `json:"email_sent"`
	// only set when the welcome email could not be delivered
	TempPassword string `json:"temp_password,omitempty"`
	EmailError   string `json:"email_error,omitempty"`
}

// create stores the user. Without a password one is generated and emailed.
func (h *UsersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if !validAddress(strings.TrimSpace(req.Email)) {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "role must be admin, manager or technician")
		return
	}
	generated := req.Password == ""
	plain := req.Password
	if generated {
		var err error
		if plain, err = users.GeneratePassword(12); err != nil {
			writeErr(w, r, err)
			return
		}
	}
	hash, err := users.HashPassword(plain)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	u, err := h.Store.Create(ctx, users.User{Email: req.Email, FullName: strings.TrimSpace(req.FullName), Role: req.Role, PasswordHash: hash})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	resp := CreateUserResp{User: u}
	if generated {
		resp.EmailSent, resp.EmailError = h.sendPassword(ctx, u, plain)
		if !resp.EmailSent {
			resp.TempPassword = plain
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *UsersHandler) sendPassword(ctx context.Context, u users.User, plain string) (bool, string) {
	if h.Mailer == nil {
		return false, "mail is not configured"
	}
	err := h.Mailer.SendPasswordEmail(ctx, notify.PasswordEmailRequest{To: u.Email, FullName: u.FullName, TempPassword: plain})
	if err != nil {
		log.Printf("password email to %s: %v", u.Email, err)
		return false, err.Error()
	}
	return true, ""
}

type UpdateUserReq struct {
	FullName *string     `json:"full_name"`
	Role     *users.Role `json:"role"`
	Active   *bool       `json:"active"`
}

func (h *UsersHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateUserReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if c, ok := claimsFrom(r.Context()); ok && c.UserID() == id {
		if (req.Active != nil && !*req.Active) || (req.Role != nil && *req.Role != users.RoleAdmin) {
			writeError(w, http.StatusConflict, "you cannot demote or disable your own account")
			return
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Store.Update(ctx, id, users.Changes{FullName: req.FullName, Role: req.Role, Active: req.Active})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	u, err := h.Store.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	plain, err := users.GeneratePassword(12)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	hash, err := users.HashPassword(plain)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.Store.SetPassword(ctx, u.ID, hash); err != nil {
		writeErr(w, r, err)
		return
	}
	resp := CreateUserResp{User: u}
	resp.EmailSent, resp.EmailError = h.sendPassword(ctx, u, plain)
	if !resp.EmailSent {
		resp.TempPassword = plain
	}
	writeJSON(w, http.StatusOK, resp)
}
