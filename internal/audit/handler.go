package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, q Query) ([]*Event, error)
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := Query{
		EntityID:  params.Get("entity_id"),
		EventType: params.Get("event_type"),
	}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			h.HandleServiceError(w, r, internal.NewValidationFieldError("limit", "limit must be a non-negative integer", internal.ErrCodeValidationFailed))
			return
		}
		q.Limit = limit
	}

	evts, err := h.Service.List(r.Context(), q)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, evts)
}
