package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/frahmantamala/policy-register/internal/auth"
	userDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.RepositoryAPI {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("username = ? AND is_deleted = ?", username, false).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) AccountTaken(ctx context.Context, username, email string) (bool, bool, error) {
	var rows []userDatamodel.User
	err := r.db.WithContext(ctx).
		Select("username", "email").
		Where("is_deleted = ? AND (username = ? OR LOWER(email) = ?)", false, username, strings.ToLower(email)).
		Find(&rows).Error
	if err != nil {
		return false, false, err
	}

	var usernameTaken, emailTaken bool
	for _, row := range rows {
		if row.Username == username {
			usernameTaken = true
		}
		if strings.EqualFold(row.Email, email) {
			emailTaken = true
		}
	}
	return usernameTaken, emailTaken, nil
}

func (r *Repository) CountByRole(ctx context.Context, role string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("role = ? AND is_deleted = ?", role, false).
		Count(&count).Error
	return count, err
}

func (r *Repository) Create(ctx context.Context, u *userDatamodel.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repository) GroupIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&userDatamodel.GroupMember{}).
		Where("user_id = ?", userID).
		Order("group_id ASC").
		Pluck("group_id", &ids).Error
	return ids, err
}
