package group

import "time"

type UserGroup struct {
	ID          string    `gorm:"primaryKey;type:uuid"`
	Name        string    `gorm:"column:name;not null"`
	Code        string    `gorm:"column:code;index;not null"`
	Description string    `gorm:"column:description"`
	Department  string    `gorm:"column:department"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	IsDeleted   bool      `gorm:"column:is_deleted;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	ModifiedAt  time.Time `gorm:"column:modified_at"`
}

func (UserGroup) TableName() string {
	return "user_groups"
}
