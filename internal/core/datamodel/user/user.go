package user

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;type:uuid"`
	Username     string    `gorm:"column:username;index;not null"`
	Email        string    `gorm:"column:email;index;not null"`
	FullName     string    `gorm:"column:full_name;not null"`
	Role         string    `gorm:"column:role;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	IsApproved   bool      `gorm:"column:is_approved;not null"`
	IsActive     bool      `gorm:"column:is_active;not null"`
	IsSuspended  bool      `gorm:"column:is_suspended;not null"`
	IsDeleted    bool      `gorm:"column:is_deleted;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// GroupMember is one row of the user to user-group membership set.
type GroupMember struct {
	UserID  string `gorm:"column:user_id;primaryKey;type:uuid"`
	GroupID string `gorm:"column:group_id;primaryKey;type:uuid"`
}

func (GroupMember) TableName() string {
	return "user_group_members"
}
