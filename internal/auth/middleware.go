package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/openwheels/openwheels-be/internal/models"
)

// Identity is the authenticated requester attached to the request context.
type Identity struct {
	ID          string
	Username    string
	IsSuperuser bool
}

type contextKey string

// IdentityKey is the context key for the authenticated identity.
const IdentityKey = contextKey("identity")

// TokenAuthenticator resolves a bearer token key to the account it belongs to.
type TokenAuthenticator interface {
	UserForToken(key string) (models.User, error)
}

// FromContext returns the authenticated identity, or nil for anonymous
// requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(IdentityKey).(*Identity)
	return id
}

// Middleware authenticates requests carrying "Authorization: Bearer <key>".
// Routes mounted behind it reject requests without a valid token; public
// routes are simply not mounted behind it.
func Middleware(tokens TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var key string
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && (parts[0] == "Bearer" || parts[0] == "Token") {
					key = strings.TrimSpace(parts[1])
				}
			}

			if key == "" {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}

			user, err := tokens.UserForToken(key)
			if err != nil {
				http.Error(w, "Invalid auth token", http.StatusUnauthorized)
				return
			}

			identity := &Identity{ID: user.ID, Username: user.Username, IsSuperuser: user.IsSuperuser}
			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
