package httpx

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/allevapp/allevapp/internal/users"
)

type ctxKey string

const ctxClaimsKey ctxKey = "allevapp_claims"

type Auth struct {
	Tokens users.Tokens
	// Users, when set, is consulted on every request so deactivated accounts lose access
	// before their token expires.
	Users interface {
		Get(ctx context.Context, id string) (users.User, error)
	}
}

// Middleware rejects requests without a valid bearer token.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := a.Tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if a.Users != nil {
			u, err := a.Users.Get(r.Context(), claims.UserID())
			switch {
			case errors.Is(err, users.ErrNotFound):
				writeError(w, http.StatusUnauthorized, "unknown user")
				return
			case err != nil:
				log.Printf("auth: load user %s: %v", claims.UserID(), err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			case !u.Active:
				writeError(w, http.StatusForbidden, "account is deactivated")
				return
			}
			claims.Role = u.Role
		}
		ctx := context.WithValue(r.Context(), ctxClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) (*users.Claims, bool) {
	c, ok := ctx.Value(ctxClaimsKey).(*users.Claims)
	return c, ok
}

// requireRole lets admins through plus the listed roles.
func requireRole(roles ...users.Role) func(http.Handler) http.Handler {
	allowed := map[users.Role]bool{users.RoleAdmin: true}
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := claimsFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !allowed[c.Role] {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	adminOnly  = requireRole()
	managers   = requireRole(users.RoleManager)
	fieldStaff = requireRole(users.RoleManager, users.RoleTechnician)
)
