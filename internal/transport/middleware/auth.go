package middleware

import (
	"net/http"

	"github.com/frahmantamala/policy-register/internal/access"
	"github.com/frahmantamala/policy-register/pkg/logger"
)

// UserContext tags the request logger with the authenticated caller. It runs after
// the auth middleware; anonymous requests pass through untouched.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := access.CallerFromContext(r.Context())
		if caller.Anonymous() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "userID", caller.UserID, "username", caller.Username, "role", string(caller.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
