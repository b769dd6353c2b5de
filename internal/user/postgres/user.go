package postgres

import (
	"context"
	"errors"
	"strings"

	userDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/user"
	"github.com/frahmantamala/policy-register/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) List(ctx context.Context, includeDeleted bool) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	q := r.db.WithContext(ctx)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	err := q.Order("created_at ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("LOWER(email) = ? AND is_deleted = ? AND id <> ?", strings.ToLower(email), false, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Update(ctx context.Context, u *userDatamodel.User) error {
	return r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
		"email":        u.Email,
		"full_name":    u.FullName,
		"role":         u.Role,
		"is_approved":  u.IsApproved,
		"is_active":    u.IsActive,
		"is_suspended": u.IsSuspended,
		"is_deleted":   u.IsDeleted,
		"updated_at":   u.UpdatedAt,
	}).Error
}

func (r *UserRepository) GroupIDs(ctx context.Context, userIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []userDatamodel.GroupMember
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Order("group_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.GroupID)
	}
	return out, nil
}

func (r *UserRepository) ReplaceGroups(ctx context.Context, userID string, groupIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&userDatamodel.GroupMember{}).Error; err != nil {
			return err
		}
		if len(groupIDs) == 0 {
			return nil
		}
		members := make([]userDatamodel.GroupMember, 0, len(groupIDs))
		for _, gid := range groupIDs {
			members = append(members, userDatamodel.GroupMember{UserID: userID, GroupID: gid})
		}
		return tx.Create(&members).Error
	})
}
