package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/policy-register/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, includeDeleted bool) ([]*User, error)
	Get(ctx context.Context, id string) (*User, error)
	Approve(ctx context.Context, id string) (*User, error)
	Suspend(ctx context.Context, id string) (*User, error)
	Restore(ctx context.Context, id string) (*User, error)
	Delete(ctx context.Context, id string) error
	ChangeRole(ctx context.Context, id, role string) (*User, error)
	Update(ctx context.Context, id string, dto UpdateUserDTO) (*User, error)
	AssignGroups(ctx context.Context, id string, dto AssignGroupsDTO) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// List handles GET /users
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.List(r.Context(), transport.QueryBool(r, "include_deleted", "show_deleted"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "User approved successfully")(h.Service.Approve(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "User suspended successfully")(h.Service.Suspend(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "User restored successfully")(h.Service.Restore(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// ChangeRole handles PATCH /users/{id}/role. The role comes from ?role= or a JSON body.
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		var dto ChangeRoleDTO
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		role = dto.Role
	}
	h.respond(w, r, "User role updated successfully")(h.Service.ChangeRole(r.Context(), chi.URLParam(r, "id"), role))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var dto UpdateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.respond(w, r, "User updated successfully")(h.Service.Update(r.Context(), chi.URLParam(r, "id"), dto))
}

func (h *Handler) AssignGroups(w http.ResponseWriter, r *http.Request) {
	var dto AssignGroupsDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.respond(w, r, "User groups updated successfully")(h.Service.AssignGroups(r.Context(), chi.URLParam(r, "id"), dto))
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, message string) func(*User, error) {
	return func(u *User, err error) {
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"message": message,
			"user":    u,
		})
	}
}
