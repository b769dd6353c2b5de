// Package audit keeps an append-only trail of document lifecycle events.
package audit

import (
	"encoding/json"
	"time"

	auditDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/audit"
)

type Event struct {
	ID         string                 `json:"id"`
	EventType  string                 `json:"event_type"`
	EntityID   string                 `json:"entity_id"`
	Actor      string                 `json:"actor"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}

func FromDataModel(e *auditDatamodel.Event) *Event {
	out := &Event{
		ID:         e.ID,
		EventType:  e.EventType,
		EntityID:   e.EntityID,
		Actor:      e.Actor,
		OccurredAt: e.OccurredAt,
		Payload:    map[string]interface{}{},
	}
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &out.Payload)
	}
	return out
}
