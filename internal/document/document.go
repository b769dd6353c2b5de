// Package document is the register itself: numbered, versioned files with
// lifecycle metadata and access controls. Policies are documents of type policy.
package document

import (
	"slices"
	"time"

	"github.com/frahmantamala/policy-register/internal/access"
	documentDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/document"
)

const (
	TypePolicy    = "policy"
	TypeMemo      = "memo"
	TypeDocument  = "document"
	TypeProcedure = "procedure"
	TypeGuideline = "guideline"
	TypeNotice    = "notice"
)

var Types = []string{TypePolicy, TypeMemo, TypeDocument, TypeProcedure, TypeGuideline, TypeNotice}

var Statuses = []string{access.StatusActive, access.StatusArchived, access.StatusHidden, access.StatusDeleted}

const (
	DefaultInitialSummary = "Initial version"
	DefaultReplaceSummary = "Document updated"
)

type Document struct {
	ID               string    `json:"id"`
	DocumentNumber   string    `json:"document_number"`
	PolicyNumber     string    `json:"policy_number,omitempty"`
	Title            string    `json:"title"`
	DocumentType     string    `json:"document_type"`
	CategoryID       string    `json:"category_id"`
	PolicyTypeID     *string   `json:"policy_type_id"`
	DateIssued       time.Time `json:"date_issued"`
	Version          int       `json:"version"`
	Status           string    `json:"status"`
	OwnerDepartment  string    `json:"owner_department"`
	FileURL          string    `json:"file_url"`
	FileName         string    `json:"file_name"`
	BlobKey          string    `json:"-"`
	IsVisibleToUsers bool      `json:"is_visible_to_users"`
	VisibleToGroups  []string  `json:"visible_to_groups"`
	VersionHistory   []Version `json:"version_history"`
	Description      string    `json:"description"`
	Tags             []string  `json:"tags"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	ModifiedBy       string    `json:"modified_by"`
	ModifiedAt       time.Time `json:"modified_at"`
}

// Version is one append-only history entry.
type Version struct {
	VersionNumber int       `json:"version_number"`
	UploadDate    time.Time `json:"upload_date"`
	UploadedBy    string    `json:"uploaded_by"`
	ChangeSummary string    `json:"change_summary"`
	FileURL       string    `json:"file_url"`
	FileName      string    `json:"file_name"`
	Checksum      string    `json:"checksum"`
	Size          int64     `json:"size"`
	BlobKey       string    `json:"-"`
}

func (d *Document) Subject() access.Subject {
	return access.Subject{
		Status:           d.Status,
		IsVisibleToUsers: d.IsVisibleToUsers,
		GroupIDs:         d.VisibleToGroups,
	}
}

func (d *Document) Touch(actor string, now time.Time) {
	d.ModifiedBy = actor
	d.ModifiedAt = now
}

func ValidType(t string) bool {
	return slices.Contains(Types, t)
}

func ValidStatus(s string) bool {
	return slices.Contains(Statuses, s)
}

func ToDataModel(d *Document) *documentDatamodel.Document {
	return &documentDatamodel.Document{
		ID:               d.ID,
		DocumentNumber:   d.DocumentNumber,
		Title:            d.Title,
		DocumentType:     d.DocumentType,
		CategoryID:       d.CategoryID,
		PolicyTypeID:     d.PolicyTypeID,
		DateIssued:       d.DateIssued,
		Version:          d.Version,
		Status:           d.Status,
		OwnerDepartment:  d.OwnerDepartment,
		FileURL:          d.FileURL,
		FileName:         d.FileName,
		BlobKey:          d.BlobKey,
		IsVisibleToUsers: d.IsVisibleToUsers,
		Description:      d.Description,
		Tags:             d.Tags,
		CreatedBy:        d.CreatedBy,
		CreatedAt:        d.CreatedAt,
		ModifiedBy:       d.ModifiedBy,
		ModifiedAt:       d.ModifiedAt,
	}
}

func VersionToDataModel(documentID, id string, v Version) *documentDatamodel.Version {
	return &documentDatamodel.Version{
		ID:            id,
		DocumentID:    documentID,
		VersionNumber: v.VersionNumber,
		UploadDate:    v.UploadDate,
		UploadedBy:    v.UploadedBy,
		ChangeSummary: v.ChangeSummary,
		FileURL:       v.FileURL,
		FileName:      v.FileName,
		BlobKey:       v.BlobKey,
		Checksum:      v.Checksum,
		Size:          v.Size,
	}
}

func VersionFromDataModel(v *documentDatamodel.Version) Version {
	return Version{
		VersionNumber: v.VersionNumber,
		UploadDate:    v.UploadDate,
		UploadedBy:    v.UploadedBy,
		ChangeSummary: v.ChangeSummary,
		FileURL:       v.FileURL,
		FileName:      v.FileName,
		Checksum:      v.Checksum,
		Size:          v.Size,
		BlobKey:       v.BlobKey,
	}
}

// FromDataModel assembles a document from its row, history rows and group grants.
func FromDataModel(d *documentDatamodel.Document, versions []*documentDatamodel.Version, groupIDs []string) *Document {
	doc := &Document{
		ID:               d.ID,
		DocumentNumber:   d.DocumentNumber,
		Title:            d.Title,
		DocumentType:     d.DocumentType,
		CategoryID:       d.CategoryID,
		PolicyTypeID:     d.PolicyTypeID,
		DateIssued:       d.DateIssued,
		Version:          d.Version,
		Status:           d.Status,
		OwnerDepartment:  d.OwnerDepartment,
		FileURL:          d.FileURL,
		FileName:         d.FileName,
		BlobKey:          d.BlobKey,
		IsVisibleToUsers: d.IsVisibleToUsers,
		VisibleToGroups:  []string{},
		VersionHistory:   make([]Version, 0, len(versions)),
		Description:      d.Description,
		Tags:             []string{},
		CreatedBy:        d.CreatedBy,
		CreatedAt:        d.CreatedAt,
		ModifiedBy:       d.ModifiedBy,
		ModifiedAt:       d.ModifiedAt,
	}
	if d.DocumentType == TypePolicy {
		doc.PolicyNumber = d.DocumentNumber
	}
	if groupIDs != nil {
		doc.VisibleToGroups = groupIDs
	}
	if d.Tags != nil {
		doc.Tags = []string(d.Tags)
	}
	for _, v := range versions {
		doc.VersionHistory = append(doc.VersionHistory, VersionFromDataModel(v))
	}
	slices.SortFunc(doc.VersionHistory, func(a, b Version) int {
		return a.VersionNumber - b.VersionNumber
	})
	return doc
}
