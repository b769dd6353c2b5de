package user

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/user"
)

type RepositoryAPI interface {
	List(ctx context.Context, includeDeleted bool) ([]*userDatamodel.User, error)
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	// EmailTaken reports whether a non-deleted user other than excludeID holds email.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	Update(ctx context.Context, u *userDatamodel.User) error
	GroupIDs(ctx context.Context, userIDs []string) (map[string][]string, error)
	// ReplaceGroups swaps the whole membership set atomically.
	ReplaceGroups(ctx context.Context, userID string, groupIDs []string) error
}

// GroupValidator is satisfied by the user group service.
type GroupValidator interface {
	ValidateActive(ctx context.Context, ids []string) error
}

type Service struct {
	repo   RepositoryAPI
	groups GroupValidator
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, groups GroupValidator, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		groups: groups,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context, includeDeleted bool) ([]*User, error) {
	rows, err := s.repo.List(ctx, includeDeleted)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, internal.NewInternalError("failed to list users", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	memberships, err := s.repo.GroupIDs(ctx, ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to load group memberships", err)
	}

	users := make([]*User, 0, len(rows))
	for _, row := range rows {
		users = append(users, FromDataModelWithGroups(row, memberships[row.ID]))
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if !validation.IsID(id) {
		return nil, internal.ErrUserNotFound
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if row == nil {
		return nil, internal.ErrUserNotFound
	}
	memberships, err := s.repo.GroupIDs(ctx, []string{id})
	if err != nil {
		return nil, internal.NewInternalError("failed to load group memberships", err)
	}
	return FromDataModelWithGroups(row, memberships[id]), nil
}

func (s *Service) Approve(ctx context.Context, id string) (*User, error) {
	return s.mutate(ctx, id, "approve", func(u *User) error {
		u.IsApproved = true
		return nil
	})
}

func (s *Service) Suspend(ctx context.Context, id string) (*User, error) {
	return s.mutate(ctx, id, "suspend", func(u *User) error {
		u.Suspend()
		return nil
	})
}

func (s *Service) Restore(ctx context.Context, id string) (*User, error) {
	return s.mutate(ctx, id, "restore", func(u *User) error {
		u.Restore()
		return nil
	})
}

// Delete soft-deletes the account. Admins cannot delete themselves.
func (s *Service) Delete(ctx context.Context, id string) error {
	if actorID, _ := internal.ActorFromContext(ctx); actorID != "" && actorID == id {
		return internal.NewValidationError("You cannot delete your own account", internal.ErrCodeSelfDelete)
	}
	_, err := s.mutate(ctx, id, "delete", func(u *User) error {
		u.MarkDeleted()
		return nil
	})
	return err
}

func (s *Service) ChangeRole(ctx context.Context, id, role string) (*User, error) {
	if err := ValidateRole(role); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "change role", func(u *User) error {
		u.Role = role
		return nil
	})
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.Empty() {
		return s.Get(ctx, id)
	}

	return s.mutate(ctx, id, "update", func(u *User) error {
		if dto.Email != nil {
			email := strings.TrimSpace(*dto.Email)
			if !strings.EqualFold(email, u.Email) {
				taken, err := s.repo.EmailTaken(ctx, email, u.ID)
				if err != nil {
					return internal.NewInternalError("failed to check email", err)
				}
				if taken {
					return internal.NewConflictError("Email already registered", internal.ErrCodeDuplicateAccount)
				}
			}
			u.Email = email
		}
		if dto.FullName != nil {
			u.FullName = strings.TrimSpace(*dto.FullName)
		}
		if dto.Role != nil {
			u.Role = *dto.Role
		}
		if dto.IsApproved != nil {
			u.IsApproved = *dto.IsApproved
		}
		if dto.IsActive != nil {
			u.IsActive = *dto.IsActive
		}
		if dto.IsSuspended != nil {
			u.IsSuspended = *dto.IsSuspended
		}
		return nil
	})
}

// AssignGroups replaces the user's memberships. Every group must be active; on any
// invalid id nothing changes.
func (s *Service) AssignGroups(ctx context.Context, id string, dto AssignGroupsDTO) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	groupIDs := dto.Normalized()
	if err := s.groups.ValidateActive(ctx, groupIDs); err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceGroups(ctx, id, groupIDs); err != nil {
		s.logger.Error("failed to assign groups", "user_id", id, "error", err)
		return nil, internal.NewInternalError("failed to assign groups", err)
	}
	u.GroupIDs = groupIDs

	s.logger.Info("user groups assigned", "user_id", id, "groups", len(groupIDs))
	return u, nil
}

func (s *Service) mutate(ctx context.Context, id, op string, apply func(u *User) error) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, ToDataModel(u)); err != nil {
		s.logger.Error("failed to update user", "op", op, "user_id", id, "error", err)
		return nil, internal.NewInternalError("failed to "+op+" user", err)
	}

	_, actor := internal.ActorFromContext(ctx)
	s.logger.Info("user updated", "op", op, "user_id", id, "actor", actor)
	return u, nil
}
