// Package group manages user groups. Groups grant their members visibility of
// documents that are otherwise hidden from regular users.
package group

import (
	"strings"
	"time"

	groupDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/group"
)

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Department  string    `json:"department"`
	IsActive    bool      `json:"is_active"`
	IsDeleted   bool      `json:"is_deleted"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// Assignable reports whether users may be placed in the group.
func (g *Group) Assignable() bool {
	return g.IsActive && !g.IsDeleted
}

func (g *Group) MarkDeleted(now time.Time) {
	g.IsDeleted = true
	g.IsActive = false
	g.ModifiedAt = now
}

func (g *Group) Restore(now time.Time) {
	g.IsDeleted = false
	g.IsActive = true
	g.ModifiedAt = now
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ToDataModel(g *Group) *groupDatamodel.UserGroup {
	return &groupDatamodel.UserGroup{
		ID:          g.ID,
		Name:        g.Name,
		Code:        g.Code,
		Description: g.Description,
		Department:  g.Department,
		IsActive:    g.IsActive,
		IsDeleted:   g.IsDeleted,
		CreatedAt:   g.CreatedAt,
		ModifiedAt:  g.ModifiedAt,
	}
}

func FromDataModel(g *groupDatamodel.UserGroup) *Group {
	return &Group{
		ID:          g.ID,
		Name:        g.Name,
		Code:        g.Code,
		Description: g.Description,
		Department:  g.Department,
		IsActive:    g.IsActive,
		IsDeleted:   g.IsDeleted,
		CreatedAt:   g.CreatedAt,
		ModifiedAt:  g.ModifiedAt,
	}
}
