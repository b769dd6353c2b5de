package taxonomy

import "time"

const (
	TableCategories  = "categories"
	TablePolicyTypes = "policy_types"
)

// Term is the row shape shared by the categories and policy_types tables.
type Term struct {
	ID          string    `gorm:"primaryKey;type:uuid"`
	Name        string    `gorm:"column:name;not null"`
	Code        string    `gorm:"column:code;index;not null"`
	Description string    `gorm:"column:description"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	IsDeleted   bool      `gorm:"column:is_deleted;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	ModifiedAt  time.Time `gorm:"column:modified_at"`
}
