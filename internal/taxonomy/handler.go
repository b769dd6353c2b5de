package taxonomy

import (
	"context"
	"fmt"
	"net/http"

	"github.com/frahmantamala/policy-register/internal/access"
	"github.com/frahmantamala/policy-register/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Kind() Kind
	List(ctx context.Context, includeDeleted bool) ([]*Term, error)
	Get(ctx context.Context, id string) (*Term, error)
	Create(ctx context.Context, dto CreateTermDTO) (*Term, error)
	Update(ctx context.Context, id string, dto UpdateTermDTO) (*Term, error)
	Delete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) (*Term, error)
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

// List honours include_deleted for callers allowed to manage the taxonomy.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller := access.CallerFromContext(r.Context())
	includeDeleted := caller.Has(access.CapWrite) && transport.QueryBool(r, "include_deleted", "show_deleted")

	terms, err := h.Service.List(r.Context(), includeDeleted)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, terms)
}

// PublicList serves the unauthenticated surface: usable terms only.
func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	terms, err := h.Service.List(r.Context(), false)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, terms)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	term, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	caller := access.CallerFromContext(r.Context())
	if !term.Usable() && !caller.Has(access.CapWrite) {
		h.HandleServiceError(w, r, h.Service.Kind().NotFound)
		return
	}
	h.WriteJSON(w, http.StatusOK, term)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateTermDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	term, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, term)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var dto UpdateTermDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	term, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, term)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s deleted successfully", h.Service.Kind().Name),
	})
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	term, err := h.Service.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("%s restored successfully", h.Service.Kind().Name),
		"item":    term,
	})
}
