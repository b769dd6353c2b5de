package group

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/core/common/validation"
	groupDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/group"
	"github.com/google/uuid"
)

type RepositoryAPI interface {
	List(ctx context.Context, includeDeleted bool) ([]*groupDatamodel.UserGroup, error)
	GetByID(ctx context.Context, id string) (*groupDatamodel.UserGroup, error)
	GetByIDs(ctx context.Context, ids []string) ([]*groupDatamodel.UserGroup, error)
	GetByCode(ctx context.Context, code string) (*groupDatamodel.UserGroup, error)
	Create(ctx context.Context, g *groupDatamodel.UserGroup) error
	Update(ctx context.Context, g *groupDatamodel.UserGroup) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context, includeDeleted bool) ([]*Group, error) {
	rows, err := s.repo.List(ctx, includeDeleted)
	if err != nil {
		s.logger.Error("failed to list user groups", "error", err)
		return nil, internal.NewInternalError("failed to list user groups", err)
	}

	groups := make([]*Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, FromDataModel(row))
	}
	return groups, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Group, error) {
	if !validation.IsID(id) {
		return nil, internal.ErrGroupNotFound
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user group", err)
	}
	if row == nil {
		return nil, internal.ErrGroupNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(ctx context.Context, dto CreateGroupDTO) (*Group, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	code := NormalizeCode(dto.Code)
	if err := s.ensureCodeFree(ctx, code, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	g := &Group{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(dto.Name),
		Code:        code,
		Description: dto.Description,
		Department:  dto.Department,
		IsActive:    true,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	if err := s.repo.Create(ctx, ToDataModel(g)); err != nil {
		s.logger.Error("failed to create user group", "code", code, "error", err)
		return nil, internal.NewInternalError("failed to create user group", err)
	}

	s.logger.Info("user group created", "id", g.ID, "code", g.Code)
	return g, nil
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateGroupDTO) (*Group, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.Empty() {
		return g, nil
	}

	if dto.Code != nil {
		code := NormalizeCode(*dto.Code)
		if code != g.Code {
			if err := s.ensureCodeFree(ctx, code, g.ID); err != nil {
				return nil, err
			}
			g.Code = code
		}
	}
	if dto.Name != nil {
		g.Name = strings.TrimSpace(*dto.Name)
	}
	if dto.Description != nil {
		g.Description = *dto.Description
	}
	if dto.Department != nil {
		g.Department = *dto.Department
	}
	if dto.IsActive != nil {
		g.IsActive = *dto.IsActive
	}
	g.ModifiedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, ToDataModel(g)); err != nil {
		s.logger.Error("failed to update user group", "id", id, "error", err)
		return nil, internal.NewInternalError("failed to update user group", err)
	}
	return g, nil
}

// Delete soft-deletes the group. Memberships and document grants are left in place.
func (s *Service) Delete(ctx context.Context, id string) error {
	g, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if g.IsDeleted {
		return nil
	}

	g.MarkDeleted(time.Now().UTC())
	if err := s.repo.Update(ctx, ToDataModel(g)); err != nil {
		return internal.NewInternalError("failed to delete user group", err)
	}
	s.logger.Info("user group deleted", "id", id, "code", g.Code)
	return nil
}

func (s *Service) Restore(ctx context.Context, id string) (*Group, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.IsDeleted {
		if err := s.ensureCodeFree(ctx, g.Code, g.ID); err != nil {
			return nil, err
		}
	}

	g.Restore(time.Now().UTC())
	if err := s.repo.Update(ctx, ToDataModel(g)); err != nil {
		return nil, internal.NewInternalError("failed to restore user group", err)
	}
	s.logger.Info("user group restored", "id", id, "code", g.Code)
	return g, nil
}

// ValidateActive checks that every id names an active, non-deleted group.
// The error names the first offending id in input order.
func (s *Service) ValidateActive(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	lookup := make([]string, 0, len(ids))
	for _, id := range ids {
		if validation.IsID(id) {
			lookup = append(lookup, id)
		}
	}
	found := make(map[string]*Group, len(lookup))
	if len(lookup) > 0 {
		rows, err := s.repo.GetByIDs(ctx, lookup)
		if err != nil {
			return internal.NewInternalError("failed to load user groups", err)
		}
		for _, row := range rows {
			found[row.ID] = FromDataModel(row)
		}
	}

	for _, id := range ids {
		g, ok := found[id]
		if !ok || !g.Assignable() {
			return internal.NewNotFoundError(fmt.Sprintf("user group %s not found", id), internal.ErrCodeGroupNotFound)
		}
	}
	return nil
}

func (s *Service) ensureCodeFree(ctx context.Context, code, selfID string) error {
	existing, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return internal.NewInternalError("failed to check user group code", err)
	}
	if existing != nil && existing.ID != selfID {
		return internal.NewConflictError(fmt.Sprintf("user group code %s already exists", code), internal.ErrCodeDuplicateCode)
	}
	return nil
}
