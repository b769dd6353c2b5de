package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/access"
	userDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/user"
	"github.com/frahmantamala/policy-register/internal/user"
	"github.com/google/uuid"
)

// RepositoryAPI is the credential side of the users table. Lookups only see
// non-deleted accounts.
type RepositoryAPI interface {
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	AccountTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	CountByRole(ctx context.Context, role string) (int64, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	GroupIDs(ctx context.Context, userID string) ([]string, error)
}

// Service is the main auth service with dependencies
type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGenerator
	hasher         PasswordHasher
	logger         *slog.Logger
}

func NewService(repo RepositoryAPI, tokenGen TokenGenerator, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		hasher:         hasher,
		logger:         logger,
	}
}

// Register creates a pending account with the user role.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(dto.Username)
	email := strings.TrimSpace(dto.Email)

	usernameTaken, emailTaken, err := s.repo.AccountTaken(ctx, username, email)
	if err != nil {
		return nil, internal.NewInternalError("failed to check account", err)
	}
	if usernameTaken {
		return nil, internal.NewConflictError("Username already registered", internal.ErrCodeDuplicateAccount)
	}
	if emailTaken {
		return nil, internal.NewConflictError("Email already registered", internal.ErrCodeDuplicateAccount)
	}

	u, err := s.createAccount(ctx, username, email, strings.TrimSpace(dto.FullName), dto.Password, access.RoleUser, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Authenticate validates credentials and account state, then issues an access token.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByUsername(ctx, strings.TrimSpace(dto.Username))
	if err != nil {
		return nil, internal.NewInternalError("failed to load account", err)
	}
	if row == nil {
		return nil, internal.ErrInvalidCredentials
	}
	if err := s.hasher.Verify(row.PasswordHash, dto.Password); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	u, err := s.withGroups(ctx, row)
	if err != nil {
		return nil, err
	}
	if !u.IsApproved {
		return nil, internal.ErrUserNotApproved
	}
	if !u.CanSignIn() {
		return nil, internal.ErrUserInactive
	}

	token, expiresAt, err := s.tokenGenerator.GenerateAccessToken(u.Username)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	s.logger.Info("user logged in", "user_id", u.ID, "username", u.Username)
	return &LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        u,
	}, nil
}

// ResolveToken maps a bearer token to the account it was issued for.
func (s *Service) ResolveToken(ctx context.Context, token string) (*user.User, error) {
	claims, err := s.tokenGenerator.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.GetByUsername(ctx, claims.Username())
	if err != nil {
		return nil, internal.NewInternalError("failed to load account", err)
	}
	if row == nil {
		return nil, internal.ErrInvalidToken
	}

	u, err := s.withGroups(ctx, row)
	if err != nil {
		return nil, err
	}
	if !u.CanSignIn() {
		return nil, internal.ErrUserInactive
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap administrator when no admin account exists.
func (s *Service) EnsureAdmin(ctx context.Context, admin BootstrapAdmin) (bool, error) {
	count, err := s.repo.CountByRole(ctx, string(access.RoleAdmin))
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	u, err := s.createAccount(ctx, admin.Username, admin.Email, admin.FullName, admin.Password, access.RoleAdmin, true)
	if err != nil {
		return false, err
	}
	s.logger.Info("default admin created", "username", u.Username)
	return true, nil
}

func (s *Service) createAccount(ctx context.Context, username, email, fullName, password string, role access.Role, approved bool) (*user.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := time.Now().UTC()
	u := &user.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Role:         string(role),
		GroupIDs:     []string{},
		PasswordHash: hash,
		IsApproved:   approved,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user.ToDataModel(u)); err != nil {
		s.logger.Error("failed to create account", "username", username, "error", err)
		return nil, internal.NewInternalError("failed to create account", err)
	}
	return u, nil
}

func (s *Service) withGroups(ctx context.Context, row *userDatamodel.User) (*user.User, error) {
	groupIDs, err := s.repo.GroupIDs(ctx, row.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load group memberships", err)
	}
	return user.FromDataModelWithGroups(row, groupIDs), nil
}
