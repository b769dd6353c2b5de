package user

import (
	"time"

	"github.com/frahmantamala/policy-register/internal/access"
	userDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/user"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	GroupIDs     []string  `json:"group_ids"`
	PasswordHash string    `json:"-"`
	IsApproved   bool      `json:"is_approved"`
	IsActive     bool      `json:"is_active"`
	IsSuspended  bool      `json:"is_suspended"`
	IsDeleted    bool      `json:"is_deleted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanSignIn reports whether the account state admits a login or a token.
func (u *User) CanSignIn() bool {
	return u.IsApproved && u.IsActive && !u.IsSuspended && !u.IsDeleted
}

func (u *User) AccessRole() access.Role {
	return access.Role(u.Role)
}

func (u *User) Suspend() {
	u.IsSuspended = true
}

// Restore clears suspension and deletion and reactivates the account.
func (u *User) Restore() {
	u.IsSuspended = false
	u.IsDeleted = false
	u.IsActive = true
}

func (u *User) MarkDeleted() {
	u.IsDeleted = true
	u.IsActive = false
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		IsApproved:   u.IsApproved,
		IsActive:     u.IsActive,
		IsSuspended:  u.IsSuspended,
		IsDeleted:    u.IsDeleted,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         u.Role,
		GroupIDs:     []string{},
		PasswordHash: u.PasswordHash,
		IsApproved:   u.IsApproved,
		IsActive:     u.IsActive,
		IsSuspended:  u.IsSuspended,
		IsDeleted:    u.IsDeleted,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModelWithGroups(u *userDatamodel.User, groupIDs []string) *User {
	domainUser := FromDataModel(u)
	if groupIDs != nil {
		domainUser.GroupIDs = groupIDs
	}
	return domainUser
}
