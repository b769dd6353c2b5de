package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/core/common/validation"
	taxonomyDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/taxonomy"
	"github.com/google/uuid"
)

type RepositoryAPI interface {
	List(ctx context.Context, includeUnusable bool) ([]*taxonomyDatamodel.Term, error)
	GetByID(ctx context.Context, id string) (*taxonomyDatamodel.Term, error)
	// GetByCode matches case-insensitively, optionally ignoring deleted rows.
	GetByCode(ctx context.Context, code string, includeDeleted bool) (*taxonomyDatamodel.Term, error)
	Create(ctx context.Context, term *taxonomyDatamodel.Term) error
	Update(ctx context.Context, term *taxonomyDatamodel.Term) error
}

type Service struct {
	kind   Kind
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(kind Kind, repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		kind:   kind,
		repo:   repo,
		logger: logger.With("taxonomy", kind.Name),
	}
}

func (s *Service) Kind() Kind {
	return s.kind
}

// List returns usable terms, or every term when includeDeleted is set.
func (s *Service) List(ctx context.Context, includeDeleted bool) ([]*Term, error) {
	rows, err := s.repo.List(ctx, includeDeleted)
	if err != nil {
		s.logger.Error("failed to list terms", "error", err)
		return nil, internal.NewInternalError(fmt.Sprintf("failed to list %s entries", s.kind.Name), err)
	}

	terms := make([]*Term, 0, len(rows))
	for _, row := range rows {
		terms = append(terms, FromDataModel(row))
	}
	return terms, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Term, error) {
	if !validation.IsID(id) {
		return nil, s.kind.NotFound
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError(fmt.Sprintf("failed to load %s", s.kind.Name), err)
	}
	if row == nil {
		return nil, s.kind.NotFound
	}
	return FromDataModel(row), nil
}

// Resolve returns a term documents may reference. Missing, inactive and deleted
// terms all answer NotFound.
func (s *Service) Resolve(ctx context.Context, id string) (*Term, error) {
	if strings.TrimSpace(id) == "" {
		return nil, s.kind.NotFound
	}
	term, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !term.Usable() {
		return nil, s.kind.NotFound
	}
	return term, nil
}

func (s *Service) Create(ctx context.Context, dto CreateTermDTO) (*Term, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	code := NormalizeCode(dto.Code)
	if err := s.ensureCodeFree(ctx, code, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	term := &Term{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(dto.Name),
		Code:        code,
		Description: dto.Description,
		IsActive:    true,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	if dto.IsActive != nil {
		term.IsActive = *dto.IsActive
	}

	if err := s.repo.Create(ctx, ToDataModel(term)); err != nil {
		s.logger.Error("failed to create term", "code", code, "error", err)
		return nil, internal.NewInternalError(fmt.Sprintf("failed to create %s", s.kind.Name), err)
	}

	s.logger.Info("term created", "id", term.ID, "code", term.Code)
	return term, nil
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateTermDTO) (*Term, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	term, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.Empty() {
		return term, nil
	}

	if dto.Code != nil {
		code := NormalizeCode(*dto.Code)
		if code != term.Code {
			if err := s.ensureCodeFree(ctx, code, term.ID); err != nil {
				return nil, err
			}
			term.Code = code
		}
	}
	if dto.Name != nil {
		term.Name = strings.TrimSpace(*dto.Name)
	}
	if dto.Description != nil {
		term.Description = *dto.Description
	}
	if dto.IsActive != nil {
		term.IsActive = *dto.IsActive
	}
	term.ModifiedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, ToDataModel(term)); err != nil {
		s.logger.Error("failed to update term", "id", id, "error", err)
		return nil, internal.NewInternalError(fmt.Sprintf("failed to update %s", s.kind.Name), err)
	}
	return term, nil
}

// Delete soft-deletes a term. Documents referencing it keep the reference.
func (s *Service) Delete(ctx context.Context, id string) error {
	term, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if term.IsDeleted {
		return nil
	}

	term.MarkDeleted(time.Now().UTC())
	if err := s.repo.Update(ctx, ToDataModel(term)); err != nil {
		return internal.NewInternalError(fmt.Sprintf("failed to delete %s", s.kind.Name), err)
	}
	s.logger.Info("term deleted", "id", id, "code", term.Code)
	return nil
}

// Restore reverses Delete. It refuses when another live term took the code meanwhile.
func (s *Service) Restore(ctx context.Context, id string) (*Term, error) {
	term, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if term.IsDeleted {
		if err := s.ensureCodeFree(ctx, term.Code, term.ID); err != nil {
			return nil, err
		}
	}

	term.Restore(time.Now().UTC())
	if err := s.repo.Update(ctx, ToDataModel(term)); err != nil {
		return nil, internal.NewInternalError(fmt.Sprintf("failed to restore %s", s.kind.Name), err)
	}
	s.logger.Info("term restored", "id", id, "code", term.Code)
	return term, nil
}

// EnsureBuiltins creates each builtin whose code has never been used.
func (s *Service) EnsureBuiltins(ctx context.Context, builtins []Builtin) (int, error) {
	created := 0
	for _, b := range builtins {
		existing, err := s.repo.GetByCode(ctx, NormalizeCode(b.Code), true)
		if err != nil {
			return created, fmt.Errorf("failed to look up builtin %s: %w", b.Code, err)
		}
		if existing != nil {
			continue
		}
		if _, err := s.Create(ctx, CreateTermDTO{Name: b.Name, Code: b.Code, Description: b.Description}); err != nil {
			return created, fmt.Errorf("failed to seed builtin %s: %w", b.Code, err)
		}
		created++
	}
	return created, nil
}

func (s *Service) ensureCodeFree(ctx context.Context, code, selfID string) error {
	existing, err := s.repo.GetByCode(ctx, code, false)
	if err != nil {
		return internal.NewInternalError(fmt.Sprintf("failed to check %s code", s.kind.Name), err)
	}
	if existing != nil && existing.ID != selfID {
		return internal.NewConflictError(fmt.Sprintf("%s code %s already exists", s.kind.Name, code), internal.ErrCodeDuplicateCode)
	}
	return nil
}
