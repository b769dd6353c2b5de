package audit

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/policy-register/internal/core/events"
)

type EventHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewEventHandler(service *Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

func (h *EventHandler) HandleDocumentEvent(ctx context.Context, event events.Event) error {
	if err := h.service.Record(ctx, event); err != nil {
		h.logger.Error("failed to record audit event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"error", err)
		return err
	}

	h.logger.Debug("audit event recorded",
		"event_type", event.EventType(),
		"event_id", event.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	for _, eventType := range events.DocumentEventTypes {
		eventBus.Subscribe(eventType, h.HandleDocumentEvent)
	}

	h.logger.Info("audit event handlers registered", "handlers", events.DocumentEventTypes)
}
