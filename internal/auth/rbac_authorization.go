package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/access"
	"github.com/frahmantamala/policy-register/internal/transport"
)

// RBACAuthorization guards routes by capability. It runs after AuthMiddleware.
type RBACAuthorization struct {
	*transport.BaseHandler
	logger *slog.Logger
}

func NewRBACAuthorization(baseHandler *transport.BaseHandler, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: baseHandler,
		logger:      logger,
	}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, cap access.Capability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := access.CallerFromContext(r.Context())
		if caller.Anonymous() {
			ra.logger.Warn("authorization check failed: caller not found in context", "path", r.URL.Path)
			ra.HandleServiceError(w, r, internal.NewUnauthorizedError("Not authenticated", internal.ErrCodeInvalidToken))
			return
		}

		if !caller.Has(cap) {
			ra.logger.WarnContext(r.Context(), "access denied: insufficient capability",
				"user_id", caller.UserID,
				"role", caller.Role,
				"required_capability", cap)
			ra.HandleServiceError(w, r, internal.ErrForbidden)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (ra *RBACAuthorization) Require(cap access.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, cap)
	}
}

func (ra *RBACAuthorization) RequireRead() func(http.Handler) http.Handler {
	return ra.Require(access.CapRead)
}

func (ra *RBACAuthorization) RequireWrite() func(http.Handler) http.Handler {
	return ra.Require(access.CapWrite)
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.Require(access.CapAdmin)
}
