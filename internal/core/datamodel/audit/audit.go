package audit

import (
	"time"

	"gorm.io/datatypes"
)

type Event struct {
	ID         string         `gorm:"primaryKey;type:uuid"`
	EventType  string         `gorm:"column:event_type;index;not null"`
	EntityID   string         `gorm:"column:entity_id;index"`
	Actor      string         `gorm:"column:actor"`
	OccurredAt time.Time      `gorm:"column:occurred_at;index;not null"`
	Payload    datatypes.JSON `gorm:"column:payload"`
}

func (Event) TableName() string {
	return "audit_events"
}
