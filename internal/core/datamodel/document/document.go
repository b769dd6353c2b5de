package document

import (
	"time"

	"gorm.io/datatypes"
)

type Document struct {
	ID               string                      `gorm:"primaryKey;type:uuid"`
	DocumentNumber   string                      `gorm:"column:document_number;uniqueIndex;not null"`
	Title            string                      `gorm:"column:title;not null"`
	DocumentType     string                      `gorm:"column:document_type;index;not null"`
	CategoryID       string                      `gorm:"column:category_id;index;not null"`
	PolicyTypeID     *string                     `gorm:"column:policy_type_id"`
	DateIssued       time.Time                   `gorm:"column:date_issued;not null"`
	Version          int                         `gorm:"column:version;not null"`
	Status           string                      `gorm:"column:status;index;not null"`
	OwnerDepartment  string                      `gorm:"column:owner_department"`
	FileURL          string                      `gorm:"column:file_url"`
	FileName         string                      `gorm:"column:file_name"`
	BlobKey          string                      `gorm:"column:blob_key"`
	IsVisibleToUsers bool                        `gorm:"column:is_visible_to_users;not null"`
	Description      string                      `gorm:"column:description"`
	Tags             datatypes.JSONSlice[string] `gorm:"column:tags"`
	CreatedBy        string                      `gorm:"column:created_by"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime"`
	ModifiedBy       string                      `gorm:"column:modified_by"`
	ModifiedAt       time.Time                   `gorm:"column:modified_at"`
}

func (Document) TableName() string {
	return "documents"
}

// Version is one entry of a document's append-only history.
type Version struct {
	ID            string    `gorm:"primaryKey;type:uuid"`
	DocumentID    string    `gorm:"column:document_id;uniqueIndex:idx_document_versions_number;not null"`
	VersionNumber int       `gorm:"column:version_number;uniqueIndex:idx_document_versions_number;not null"`
	UploadDate    time.Time `gorm:"column:upload_date;not null"`
	UploadedBy    string    `gorm:"column:uploaded_by"`
	ChangeSummary string    `gorm:"column:change_summary"`
	FileURL       string    `gorm:"column:file_url"`
	FileName      string    `gorm:"column:file_name"`
	BlobKey       string    `gorm:"column:blob_key"`
	Checksum      string    `gorm:"column:checksum"`
	Size          int64     `gorm:"column:size"`
}

func (Version) TableName() string {
	return "document_versions"
}

type GroupGrant struct {
	DocumentID string `gorm:"column:document_id;primaryKey;type:uuid"`
	GroupID    string `gorm:"column:group_id;primaryKey;type:uuid"`
}

func (GroupGrant) TableName() string {
	return "document_group_grants"
}

// Counter holds the last allocated sequence per category and year.
type Counter struct {
	CategoryID string `gorm:"column:category_id;primaryKey;type:uuid"`
	Year       int    `gorm:"column:year;primaryKey"`
	Seq        int    `gorm:"column:seq;not null"`
}

func (Counter) TableName() string {
	return "document_counters"
}
