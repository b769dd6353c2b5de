package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/policy-register/internal"
	auditDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/audit"
	"github.com/frahmantamala/policy-register/internal/core/events"
	"gorm.io/datatypes"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

type Query struct {
	EntityID  string
	EventType string
	Limit     int
}

type RepositoryAPI interface {
	Create(ctx context.Context, event *auditDatamodel.Event) error
	// List returns the newest events first.
	List(ctx context.Context, q Query) ([]*auditDatamodel.Event, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record persists one bus event. Events without an entity are stored with an empty entity id.
func (s *Service) Record(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to encode payload of %s: %w", event.EventType(), err)
	}

	row := &auditDatamodel.Event{
		ID:         event.EventID(),
		EventType:  event.EventType(),
		OccurredAt: event.OccurredAt(),
		Payload:    datatypes.JSON(payload),
	}
	if de, ok := event.(events.DocumentEvent); ok {
		row.EntityID = de.DocumentID
		row.Actor = de.Actor
	}

	if err := s.repo.Create(ctx, row); err != nil {
		return fmt.Errorf("failed to persist audit event %s: %w", event.EventID(), err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, q Query) ([]*Event, error) {
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("failed to list audit events", "error", err)
		return nil, internal.NewInternalError("failed to list audit events", err)
	}

	out := make([]*Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}
