// Package taxonomy manages the reference data documents are filed under:
// categories and policy types. Both share one shape and one lifecycle.
package taxonomy

import (
	"strings"
	"time"

	"github.com/frahmantamala/policy-register/internal"
	taxonomyDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/taxonomy"
)

// Kind tells a service which table it manages and how to name it in errors.
type Kind struct {
	Name     string
	Table    string
	NotFound *internal.AppError
}

var (
	CategoryKind = Kind{
		Name:     "category",
		Table:    taxonomyDatamodel.TableCategories,
		NotFound: internal.ErrCategoryNotFound,
	}
	PolicyTypeKind = Kind{
		Name:     "policy type",
		Table:    taxonomyDatamodel.TablePolicyTypes,
		NotFound: internal.ErrPolicyTypeAbsent,
	}
)

type Term struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	IsDeleted   bool      `json:"is_deleted"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// Usable reports whether documents may reference the term.
func (t *Term) Usable() bool {
	return t.IsActive && !t.IsDeleted
}

func (t *Term) MarkDeleted(now time.Time) {
	t.IsDeleted = true
	t.IsActive = false
	t.ModifiedAt = now
}

func (t *Term) Restore(now time.Time) {
	t.IsDeleted = false
	t.IsActive = true
	t.ModifiedAt = now
}

// Builtin is a term seeded at boot.
type Builtin struct {
	Name        string
	Code        string
	Description string
}

var PolicyTypeBuiltins = []Builtin{
	{Name: "Policy", Code: "P", Description: "Organizational policy"},
	{Name: "Procedure", Code: "PR", Description: "Standard operating procedure"},
	{Name: "Guideline", Code: "G", Description: "Guideline or recommendation"},
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ToDataModel(t *Term) *taxonomyDatamodel.Term {
	return &taxonomyDatamodel.Term{
		ID:          t.ID,
		Name:        t.Name,
		Code:        t.Code,
		Description: t.Description,
		IsActive:    t.IsActive,
		IsDeleted:   t.IsDeleted,
		CreatedAt:   t.CreatedAt,
		ModifiedAt:  t.ModifiedAt,
	}
}

func FromDataModel(t *taxonomyDatamodel.Term) *Term {
	return &Term{
		ID:          t.ID,
		Name:        t.Name,
		Code:        t.Code,
		Description: t.Description,
		IsActive:    t.IsActive,
		IsDeleted:   t.IsDeleted,
		CreatedAt:   t.CreatedAt,
		ModifiedAt:  t.ModifiedAt,
	}
}
