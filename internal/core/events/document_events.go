package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	DocumentCreated           = "document.created"
	DocumentUpdated           = "document.updated"
	DocumentVisibilityChanged = "document.visibility_changed"
	DocumentDeleted           = "document.deleted"
	DocumentRestored          = "document.restored"
	DocumentVersionReplaced   = "document.version_replaced"
)

// DocumentEventTypes lists every lifecycle event, used to wire subscribers.
var DocumentEventTypes = []string{
	DocumentCreated,
	DocumentUpdated,
	DocumentVisibilityChanged,
	DocumentDeleted,
	DocumentRestored,
	DocumentVersionReplaced,
}

type DocumentEvent struct {
	BaseEvent
	DocumentID     string `json:"document_id"`
	DocumentNumber string `json:"document_number"`
	Actor          string `json:"actor"`
}

func NewDocumentEvent(eventType, documentID, documentNumber, actor string, data map[string]interface{}) DocumentEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["document_id"] = documentID
	data["document_number"] = documentNumber
	data["actor"] = actor

	return DocumentEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data:      data,
		},
		DocumentID:     documentID,
		DocumentNumber: documentNumber,
		Actor:          actor,
	}
}
