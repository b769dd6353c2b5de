package document

import (
	"io"
	"slices"
	"strings"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/core/common/validation"
)

// Upload is an accepted multipart file.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type CreateDocumentDTO struct {
	Title            string
	DocumentType     string
	CategoryID       string
	PolicyTypeID     string
	DateIssued       string
	OwnerDepartment  string
	PolicyNumber     string
	ChangeSummary    string
	Description      string
	Tags             []string
	IsVisibleToUsers *bool
}

func (d CreateDocumentDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(300)
	v.Field("category_id", d.CategoryID).Required()
	v.Field("date_issued", d.DateIssued).Required()
	v.Field("document_type", d.DocumentType).OneOf(internal.ErrCodeInvalidType, Types...)
	v.Field("owner_department", d.OwnerDepartment).MaxLength(200)
	v.Field("policy_number", d.PolicyNumber).MaxLength(100)
	v.Field("change_summary", d.ChangeSummary).MaxLength(1000)
	return v.Validate()
}

// UpdateDocumentDTO is the JSON partial patch. Nil fields are left alone; an empty
// policy_type_id clears the reference.
type UpdateDocumentDTO struct {
	Title            *string   `json:"title"`
	CategoryID       *string   `json:"category_id"`
	PolicyTypeID     *string   `json:"policy_type_id"`
	DateIssued       *string   `json:"date_issued"`
	OwnerDepartment  *string   `json:"owner_department"`
	Status           *string   `json:"status"`
	IsVisibleToUsers *bool     `json:"is_visible_to_users"`
	VisibleToGroups  *[]string `json:"visible_to_groups"`
	Description      *string   `json:"description"`
	Tags             *[]string `json:"tags"`
}

func (d UpdateDocumentDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Title != nil {
		v.Field("title", *d.Title).Required().MaxLength(300)
	}
	if d.CategoryID != nil {
		v.Field("category_id", *d.CategoryID).Required()
	}
	if d.Status != nil {
		v.Field("status", *d.Status).Required().OneOf(internal.ErrCodeInvalidStatus, Statuses...)
	}
	if d.OwnerDepartment != nil {
		v.Field("owner_department", *d.OwnerDepartment).MaxLength(200)
	}
	if d.VisibleToGroups != nil {
		v.Field("visible_to_groups", normalizeIDs(*d.VisibleToGroups)).IDs()
	}
	return v.Validate()
}

func (d UpdateDocumentDTO) Empty() bool {
	return d.Title == nil && d.CategoryID == nil && d.PolicyTypeID == nil && d.DateIssued == nil &&
		d.OwnerDepartment == nil && d.Status == nil && d.IsVisibleToUsers == nil &&
		d.VisibleToGroups == nil && d.Description == nil && d.Tags == nil
}

type VisibilityDTO struct {
	IsVisibleToUsers *bool     `json:"is_visible_to_users"`
	VisibleToGroups  *[]string `json:"visible_to_groups"`
}

func (d VisibilityDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.VisibleToGroups != nil {
		v.Field("visible_to_groups", normalizeIDs(*d.VisibleToGroups)).IDs()
	}
	return v.Validate()
}

func (d VisibilityDTO) Empty() bool {
	return d.IsVisibleToUsers == nil && d.VisibleToGroups == nil
}

// ReadOptions selects the surface and the widening flags of a read.
type ReadOptions struct {
	Public         bool
	IncludeHidden  bool
	IncludeDeleted bool
}

type ListQuery struct {
	ReadOptions
	Search       string
	Status       string
	CategoryID   string
	DocumentType string
}

func (q ListQuery) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("status", q.Status).OneOf(internal.ErrCodeInvalidStatus, Statuses...)
	v.Field("document_type", q.DocumentType).OneOf(internal.ErrCodeInvalidType, Types...)
	return v.Validate()
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func normalizeTags(tags []string) []string {
	out := []string{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
