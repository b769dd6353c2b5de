package postgres

import (
	"context"
	"errors"
	"strings"

	groupDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/group"
	"github.com/frahmantamala/policy-register/internal/group"
	"gorm.io/gorm"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) group.RepositoryAPI {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) List(ctx context.Context, includeDeleted bool) ([]*groupDatamodel.UserGroup, error) {
	var groups []*groupDatamodel.UserGroup
	q := r.db.WithContext(ctx)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	err := q.Order("name ASC").Find(&groups).Error
	return groups, err
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (*groupDatamodel.UserGroup, error) {
	var g groupDatamodel.UserGroup
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepository) GetByIDs(ctx context.Context, ids []string) ([]*groupDatamodel.UserGroup, error) {
	var groups []*groupDatamodel.UserGroup
	if len(ids) == 0 {
		return groups, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&groups).Error
	return groups, err
}

// GetByCode only considers live groups; deleted groups release their code.
func (r *GroupRepository) GetByCode(ctx context.Context, code string) (*groupDatamodel.UserGroup, error) {
	var g groupDatamodel.UserGroup
	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ? AND is_deleted = ?", strings.ToUpper(code), false).
		First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepository) Create(ctx context.Context, g *groupDatamodel.UserGroup) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *GroupRepository) Update(ctx context.Context, g *groupDatamodel.UserGroup) error {
	return r.db.WithContext(ctx).Model(&groupDatamodel.UserGroup{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
		"name":        g.Name,
		"code":        g.Code,
		"description": g.Description,
		"department":  g.Department,
		"is_active":   g.IsActive,
		"is_deleted":  g.IsDeleted,
		"modified_at": g.ModifiedAt,
	}).Error
}
