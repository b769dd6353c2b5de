package auth

import (
	"context"
	"net/http"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/access"
	"github.com/frahmantamala/policy-register/internal/transport"
	"github.com/frahmantamala/policy-register/internal/user"
	"github.com/frahmantamala/policy-register/pkg/logger"
)

type ctxKey string

const contextUserKey ctxKey = "user"

// UserFromContext returns the account resolved by AuthMiddleware.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(contextUserKey).(*user.User)
	return u, ok && u != nil
}

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*user.User, error)
	Authenticate(ctx context.Context, dto LoginDTO) (*LoginResponse, error)
	ResolveToken(ctx context.Context, token string) (*user.User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service    ServiceAPI
	Authorizer *access.Authorizer
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, authorizer *access.Authorizer) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
		Authorizer:  authorizer,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	u, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	resp, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("authentication failed", "username", dto.Username, "error", err)
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrInvalidToken)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// AuthMiddleware resolves the bearer token into a caller. Requests without a valid
// token for an account in good standing are answered 401.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.HandleServiceError(w, r, internal.NewUnauthorizedError("Not authenticated", internal.ErrCodeInvalidToken))
			return
		}

		u, err := h.Service.ResolveToken(r.Context(), token)
		if err != nil {
			logger.From(r.Context()).Debug("token rejected", "error", err)
			h.HandleServiceError(w, r, err)
			return
		}

		caller := h.Authorizer.NewCaller(u.ID, u.Username, u.AccessRole(), u.GroupIDs)
		ctx := access.WithCaller(r.Context(), caller)
		ctx = internal.ContextWithActor(ctx, u.ID, u.Username)
		ctx = context.WithValue(ctx, contextUserKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
