package postgres

import (
	"context"

	"github.com/frahmantamala/policy-register/internal/audit"
	auditDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.RepositoryAPI {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, event *auditDatamodel.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *AuditRepository) List(ctx context.Context, q audit.Query) ([]*auditDatamodel.Event, error) {
	db := r.db.WithContext(ctx)
	if q.EntityID != "" {
		db = db.Where("entity_id = ?", q.EntityID)
	}
	if q.EventType != "" {
		db = db.Where("event_type = ?", q.EventType)
	}

	var rows []*auditDatamodel.Event
	err := db.Order("occurred_at DESC").Limit(q.Limit).Find(&rows).Error
	return rows, err
}
