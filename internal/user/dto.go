package user

import (
	"encoding/json"
	"strings"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/access"
	"github.com/frahmantamala/policy-register/internal/core/common/validation"
)

// UpdateUserDTO is the admin bulk patch. Nil fields are left alone.
type UpdateUserDTO struct {
	Email       *string `json:"email"`
	FullName    *string `json:"full_name"`
	Role        *string `json:"role"`
	IsApproved  *bool   `json:"is_approved"`
	IsActive    *bool   `json:"is_active"`
	IsSuspended *bool   `json:"is_suspended"`
}

func (d UpdateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Email != nil {
		v.Field("email", *d.Email).Required().Email()
	}
	if d.FullName != nil {
		v.Field("full_name", *d.FullName).Required().MaxLength(200)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	if d.Role != nil {
		return ValidateRole(*d.Role)
	}
	return nil
}

func (d UpdateUserDTO) Empty() bool {
	return d.Email == nil && d.FullName == nil && d.Role == nil &&
		d.IsApproved == nil && d.IsActive == nil && d.IsSuspended == nil
}

type ChangeRoleDTO struct {
	Role string `json:"role"`
}

// AssignGroupsDTO accepts either a bare JSON array of ids or {"group_ids": [...]}.
type AssignGroupsDTO struct {
	GroupIDs []string `json:"group_ids"`
}

func (d *AssignGroupsDTO) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &d.GroupIDs)
	}
	type plain AssignGroupsDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	d.GroupIDs = p.GroupIDs
	return nil
}

// Normalized drops blanks and duplicates, keeping first-seen order.
func (d AssignGroupsDTO) Normalized() []string {
	out := make([]string, 0, len(d.GroupIDs))
	seen := make(map[string]bool, len(d.GroupIDs))
	for _, id := range d.GroupIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func ValidateRole(role string) *internal.AppError {
	roles := make([]string, 0, len(access.Roles))
	for _, r := range access.Roles {
		roles = append(roles, string(r))
	}
	v := validation.NewValidator()
	v.Field("role", role).Required().OneOf(internal.ErrCodeInvalidRole, roles...)
	return v.Validate()
}
