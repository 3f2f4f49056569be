package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "gymsync/internal/errors"
	"gymsync/internal/model"
	"gymsync/internal/repository"
)

// ResourceKind scopes an ownership check to a user-shaped resource.
type ResourceKind string

const (
	ResourceUser    ResourceKind = "user"
	ResourceMember  ResourceKind = "member"
	ResourceTrainer ResourceKind = "trainer"
)

// Matches reports whether u is the kind of record the route addresses.
func (k ResourceKind) Matches(u *model.User) bool {
	switch k {
	case ResourceMember:
		return u.Role == model.RoleMember
	case ResourceTrainer:
		return u.Role == model.RoleTrainer
	default:
		return true
	}
}

// UserService exposes account lookups and the access policy used by the
// authorization chain.
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	// EnsureApproved re-reads the live record and fails with Forbidden unless
	// the account is approved.
	EnsureApproved(ctx context.Context, userID uuid.UUID) error
	// Authorize fails with Forbidden unless the caller may access resourceID.
	Authorize(ctx context.Context, caller Actor, kind ResourceKind, resourceID uuid.UUID) error
}

type userService struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

// NewUserService builds a UserService. Lookups always hit the store since
// approval state must never be served stale.
func NewUserService(repo repository.UserRepository, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{repo: repo, logger: logger}
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Internal(fmt.Errorf("find user: %w", err))
	}
	return user, nil
}

func (s *userService) EnsureApproved(ctx context.Context, userID uuid.UUID) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Forbidden("account no longer exists").WithCode("ACCOUNT_NOT_FOUND")
		}
		return apperrors.Internal(fmt.Errorf("find user: %w", err))
	}
	if !user.IsApproved {
		return apperrors.ErrPendingApproval
	}
	return nil
}

func (s *userService) Authorize(ctx context.Context, caller Actor, kind ResourceKind, resourceID uuid.UUID) error {
	if caller.Role == model.RoleSuperAdmin {
		return nil
	}
	if caller.ID == resourceID && kind.Matches(&model.User{Role: caller.Role}) {
		return nil
	}

	target, err := s.repo.FindByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A missing resource must look the same as a forbidden one.
			return apperrors.ErrNotOwner
		}
		return apperrors.Internal(fmt.Errorf("find resource owner: %w", err))
	}
	if !kind.Matches(target) {
		return apperrors.ErrNotOwner
	}

	if allowed(caller, target) {
		return nil
	}
	s.logger.Debug("ownership check denied",
		zap.String("caller_id", caller.ID.String()),
		zap.String("caller_role", caller.Role.String()),
		zap.String("resource_id", resourceID.String()),
		zap.String("kind", string(kind)),
	)
	return apperrors.ErrNotOwner
}

// allowed applies the role-specific relational rules.
func allowed(caller Actor, target *model.User) bool {
	switch caller.Role {
	case model.RoleTrainer:
		return target.Role == model.RoleMember && sameID(target.AssignedTrainer, caller.ID)
	case model.RoleGymOwner:
		return (target.Role == model.RoleMember || target.Role == model.RoleTrainer) && sameID(target.CreatedBy, caller.ID)
	default:
		return false
	}
}

func sameID(ref *uuid.UUID, id uuid.UUID) bool {
	return ref != nil && *ref == id
}
