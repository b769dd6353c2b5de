package postgres

import (
	"context"
	"errors"
	"strings"

	taxonomyDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/taxonomy"
	"github.com/frahmantamala/policy-register/internal/taxonomy"
	"gorm.io/gorm"
)

// TermRepository serves one taxonomy table; categories and policy types each get an instance.
type TermRepository struct {
	db    *gorm.DB
	table string
}

func NewTermRepository(db *gorm.DB, kind taxonomy.Kind) taxonomy.RepositoryAPI {
	return &TermRepository{db: db, table: kind.Table}
}

func (r *TermRepository) q(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

func (r *TermRepository) List(ctx context.Context, includeUnusable bool) ([]*taxonomyDatamodel.Term, error) {
	var terms []*taxonomyDatamodel.Term
	q := r.q(ctx)
	if !includeUnusable {
		q = q.Where("is_active = ? AND is_deleted = ?", true, false)
	}
	err := q.Order("name ASC").Find(&terms).Error
	return terms, err
}

func (r *TermRepository) GetByID(ctx context.Context, id string) (*taxonomyDatamodel.Term, error) {
	var term taxonomyDatamodel.Term
	err := r.q(ctx).Where("id = ?", id).First(&term).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &term, nil
}

func (r *TermRepository) GetByCode(ctx context.Context, code string, includeDeleted bool) (*taxonomyDatamodel.Term, error) {
	var term taxonomyDatamodel.Term
	q := r.q(ctx).Where("UPPER(code) = ?", strings.ToUpper(code))
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	err := q.Order("created_at ASC").First(&term).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &term, nil
}

func (r *TermRepository) Create(ctx context.Context, term *taxonomyDatamodel.Term) error {
	return r.q(ctx).Create(term).Error
}

func (r *TermRepository) Update(ctx context.Context, term *taxonomyDatamodel.Term) error {
	return r.q(ctx).Where("id = ?", term.ID).Updates(map[string]interface{}{
		"name":        term.Name,
		"code":        term.Code,
		"description": term.Description,
		"is_active":   term.IsActive,
		"is_deleted":  term.IsDeleted,
		"modified_at": term.ModifiedAt,
	}).Error
}
