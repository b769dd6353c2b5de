package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/access"
	documentDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/document"
	"github.com/frahmantamala/policy-register/internal/document"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

var _ document.RepositoryAPI = (*DocumentRepository)(nil)

func (r *DocumentRepository) Transaction(ctx context.Context, fn func(tx document.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DocumentRepository{db: tx})
	})
}

func (r *DocumentRepository) NextSequence(ctx context.Context, categoryID string, year int) (int, error) {
	db := r.db.WithContext(ctx)
	counter := documentDatamodel.Counter{CategoryID: categoryID, Year: year, Seq: 1}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category_id"}, {Name: "year"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"seq": gorm.Expr("document_counters.seq + 1")}),
	}).Create(&counter).Error
	if err != nil {
		return 0, err
	}

	var seq int
	err = db.Model(&documentDatamodel.Counter{}).
		Where("category_id = ? AND year = ?", categoryID, year).
		Pluck("seq", &seq).Error
	return seq, err
}

func (r *DocumentRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&documentDatamodel.Document{}).
		Where("document_number = ?", number).
		Count(&count).Error
	return count > 0, err
}

func (r *DocumentRepository) Create(ctx context.Context, doc *documentDatamodel.Document, first *documentDatamodel.Version) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(doc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return internal.NewConflictError(fmt.Sprintf("Document number %s already exists", doc.DocumentNumber), internal.ErrCodeDuplicateNumber)
		}
		return err
	}
	return db.Create(first).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string, q document.Query) (*documentDatamodel.Document, error) {
	var doc documentDatamodel.Document
	err := r.query(ctx, q).Where("documents.id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, filter document.ListFilter) ([]*documentDatamodel.Document, error) {
	q := r.query(ctx, filter.Query)
	if filter.Status != "" {
		q = q.Where("documents.status = ?", filter.Status)
	}
	if filter.CategoryID != "" {
		q = q.Where("documents.category_id = ?", filter.CategoryID)
	}
	if filter.Search != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(filter.Search)) + "%"
		q = q.Where(
			`LOWER(documents.title) LIKE ? ESCAPE '\' OR LOWER(documents.document_number) LIKE ? ESCAPE '\' OR `+
				`LOWER(documents.owner_department) LIKE ? ESCAPE '\' OR LOWER(documents.description) LIKE ? ESCAPE '\' OR `+
				`LOWER(CAST(documents.tags AS TEXT)) LIKE ? ESCAPE '\'`,
			like, like, like, like, like,
		)
	}

	var docs []*documentDatamodel.Document
	err := q.Order("documents.created_at DESC").Find(&docs).Error
	return docs, err
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *DocumentRepository) query(ctx context.Context, q document.Query) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&documentDatamodel.Document{})
	if q.DocumentType != "" {
		db = db.Where("documents.document_type = ?", q.DocumentType)
	}
	return applyScope(db, q.Scope)
}

// applyScope renders access.Scope as SQL; it must agree with Scope.Allows.
func applyScope(db *gorm.DB, s access.Scope) *gorm.DB {
	if len(s.Statuses) > 0 {
		db = db.Where("documents.status IN ?", s.Statuses)
	}
	if len(s.ExcludeStatuses) > 0 {
		db = db.Where("documents.status NOT IN ?", s.ExcludeStatuses)
	}

	switch s.Visibility {
	case access.VisibilityListed:
		db = db.Where("(documents.is_visible_to_users = ? OR documents.status IN ?)", true, access.ListedStatuses)
	case access.VisibilityPublic:
		db = db.Where("documents.is_visible_to_users = ?", true)
	case access.VisibilityPublicOrGroups:
		if len(s.GroupIDs) == 0 {
			db = db.Where("documents.is_visible_to_users = ?", true)
			break
		}
		db = db.Where(
			"(documents.is_visible_to_users = ? OR EXISTS (SELECT 1 FROM document_group_grants g WHERE g.document_id = documents.id AND g.group_id IN ?))",
			true, s.GroupIDs,
		)
	}
	return db
}

func (r *DocumentRepository) Versions(ctx context.Context, documentIDs []string) (map[string][]*documentDatamodel.Version, error) {
	out := make(map[string][]*documentDatamodel.Version, len(documentIDs))
	if len(documentIDs) == 0 {
		return out, nil
	}

	var versions []*documentDatamodel.Version
	err := r.db.WithContext(ctx).
		Where("document_id IN ?", documentIDs).
		Order("document_id, version_number ASC").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		out[v.DocumentID] = append(out[v.DocumentID], v)
	}
	return out, nil
}

func (r *DocumentRepository) Grants(ctx context.Context, documentIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(documentIDs))
	if len(documentIDs) == 0 {
		return out, nil
	}

	var grants []documentDatamodel.GroupGrant
	err := r.db.WithContext(ctx).
		Where("document_id IN ?", documentIDs).
		Order("group_id").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	for _, g := range grants {
		out[g.DocumentID] = append(out[g.DocumentID], g.GroupID)
	}
	return out, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *documentDatamodel.Document) error {
	return r.db.WithContext(ctx).Model(&documentDatamodel.Document{}).
		Where("id = ?", doc.ID).
		Updates(map[string]interface{}{
			"title":               doc.Title,
			"category_id":         doc.CategoryID,
			"policy_type_id":      doc.PolicyTypeID,
			"date_issued":         doc.DateIssued,
			"status":              doc.Status,
			"owner_department":    doc.OwnerDepartment,
			"is_visible_to_users": doc.IsVisibleToUsers,
			"description":         doc.Description,
			"tags":                doc.Tags,
			"modified_by":         doc.ModifiedBy,
			"modified_at":         doc.ModifiedAt,
		}).Error
}

func (r *DocumentRepository) ReplaceGrants(ctx context.Context, documentID string, groupIDs []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("document_id = ?", documentID).Delete(&documentDatamodel.GroupGrant{}).Error; err != nil {
		return err
	}
	if len(groupIDs) == 0 {
		return nil
	}

	grants := make([]documentDatamodel.GroupGrant, 0, len(groupIDs))
	for _, id := range groupIDs {
		grants = append(grants, documentDatamodel.GroupGrant{DocumentID: documentID, GroupID: id})
	}
	return db.Create(&grants).Error
}

func (r *DocumentRepository) AppendVersion(ctx context.Context, doc *documentDatamodel.Document, expectedVersion int, v *documentDatamodel.Version) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&documentDatamodel.Document{}).
		Where("id = ? AND version = ?", doc.ID, expectedVersion).
		Updates(map[string]interface{}{
			"version":     doc.Version,
			"file_url":    doc.FileURL,
			"file_name":   doc.FileName,
			"blob_key":    doc.BlobKey,
			"modified_by": doc.ModifiedBy,
			"modified_at": doc.ModifiedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrVersionConflict
	}

	if err := db.Create(v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return internal.ErrVersionConflict
		}
		return err
	}
	return nil
}

// VersionPage walks every history row in id order, limit rows at a time.
func (r *DocumentRepository) VersionPage(ctx context.Context, afterID string, limit int) ([]*documentDatamodel.Version, error) {
	var versions []*documentDatamodel.Version
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&versions).Error
	return versions, err
}
