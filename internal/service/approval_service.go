package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "gymsync/internal/errors"
	"gymsync/internal/model"
	"gymsync/internal/repository"
)

var (
	// ErrGymOwnerNotFound is returned when an approval targets a missing user.
	ErrGymOwnerNotFound = apperrors.NotFound("gym owner not found").WithCode("GYM_OWNER_NOT_FOUND")
	// ErrNotGymOwner is returned when an approval targets a non gym owner.
	ErrNotGymOwner = apperrors.InvalidInput("user is not a gym owner").WithCode("NOT_GYM_OWNER")
	// ErrInvalidTransition is returned when the approval lifecycle forbids a move.
	ErrInvalidTransition = apperrors.InvalidInput("invalid approval state transition").WithCode("INVALID_TRANSITION")
	// ErrRejectionReasonRequired is returned when rejecting without a reason.
	ErrRejectionReasonRequired = apperrors.InvalidInput("a rejection reason is required").WithCode("REJECTION_REASON_REQUIRED")
	// ErrSuperAdminRequired is returned when a non super admin acts on approvals.
	ErrSuperAdminRequired = apperrors.Forbidden("super admin privileges required").WithCode("SUPER_ADMIN_REQUIRED")
)

// Actor identifies who triggered a transition.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

// ApprovalStats counts gym owners per approval status.
type ApprovalStats struct {
	Total    int64 `json:"total_owners"`
	Pending  int64 `json:"pending_owners"`
	Approved int64 `json:"approved_owners"`
	Rejected int64 `json:"rejected_owners"`
}

// ApprovalService drives the gym owner approval lifecycle.
type ApprovalService interface {
	Approve(ctx context.Context, actor Actor, ownerID uuid.UUID) (*model.User, error)
	Reject(ctx context.Context, actor Actor, ownerID uuid.UUID, reason string) (*model.User, error)
	Reset(ctx context.Context, actor Actor, ownerID uuid.UUID) (*model.User, error)
	ListGymOwners(ctx context.Context, status *model.ApprovalStatus) ([]model.User, error)
	Stats(ctx context.Context) (*ApprovalStats, error)
}

// approvalTransitions lists the allowed moves; anything else is rejected.
var approvalTransitions = map[model.ApprovalStatus]map[model.ApprovalStatus]struct{}{
	model.StatusPending: {
		model.StatusApproved: {},
		model.StatusRejected: {},
	},
	model.StatusApproved: {
		model.StatusRejected: {},
		model.StatusPending:  {},
	},
	model.StatusRejected: {
		model.StatusApproved: {},
		model.StatusPending:  {},
	},
}

// CanTransition reports whether the approval lifecycle allows from -> to.
func CanTransition(from, to model.ApprovalStatus) bool {
	allowed, ok := approvalTransitions[from]
	if !ok {
		return false
	}
	_, exists := allowed[to]
	return exists
}

type approvalService struct {
	users    repository.UserRepository
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

// NewApprovalService creates the approval state machine. notifier may be nil.
func NewApprovalService(users repository.UserRepository, notifier Notifier, logger *zap.Logger) ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &approvalService{users: users, notifier: notifier, now: time.Now, logger: logger}
}

func (s *approvalService) Approve(ctx context.Context, actor Actor, ownerID uuid.UUID) (*model.User, error) {
	return s.transition(ctx, actor, ownerID, model.StatusApproved, nil, func(u *model.User) {
		now := s.now().UTC()
		approver := actor.ID
		u.ApprovedBy = &approver
		u.ApprovedAt = &now
		u.RejectionReason = ""
	})
}

func (s *approvalService) Reject(ctx context.Context, actor Actor, ownerID uuid.UUID, reason string) (*model.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectionReasonRequired
	}
	reasonChanged := func(u *model.User) bool { return u.RejectionReason != reason }
	return s.transition(ctx, actor, ownerID, model.StatusRejected, reasonChanged, func(u *model.User) {
		u.ApprovedBy = nil
		u.ApprovedAt = nil
		u.RejectionReason = reason
	})
}

func (s *approvalService) Reset(ctx context.Context, actor Actor, ownerID uuid.UUID) (*model.User, error) {
	return s.transition(ctx, actor, ownerID, model.StatusPending, nil, func(u *model.User) {
		u.ApprovedBy = nil
		u.ApprovedAt = nil
		u.RejectionReason = ""
	})
}

// transition locks the owner row, validates and applies the move, commits,
// and only then sends the best-effort notification. A move to the current
// state is a no-op unless stale reports that the record still needs apply.
func (s *approvalService) transition(ctx context.Context, actor Actor, ownerID uuid.UUID, target model.ApprovalStatus, stale func(*model.User) bool, apply func(*model.User)) (*model.User, error) {
	if actor.Role != model.RoleSuperAdmin {
		return nil, ErrSuperAdminRequired
	}

	var (
		updated *model.User
		from    model.ApprovalStatus
		changed bool
	)
	err := s.users.WithTransaction(ctx, func(ctx context.Context, repo repository.UserRepository) error {
		user, err := repo.FindByIDForUpdate(ctx, ownerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGymOwnerNotFound
			}
			return apperrors.Internal(fmt.Errorf("find gym owner: %w", err))
		}
		if user.Role != model.RoleGymOwner {
			return ErrNotGymOwner
		}

		from = user.Status
		updated = user
		if from == target {
			if stale == nil || !stale(user) {
				return nil
			}
		} else if !CanTransition(from, target) {
			return ErrInvalidTransition.WithCode(fmt.Sprintf("INVALID_TRANSITION_%s_TO_%s", strings.ToUpper(string(from)), strings.ToUpper(string(target))))
		}

		user.SetStatus(target)
		apply(user)
		if err := repo.UpdateApproval(ctx, user); err != nil {
			return apperrors.Internal(fmt.Errorf("update approval: %w", err))
		}
		changed = true
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Internal(err)
	}

	if changed {
		s.logger.Info("gym owner approval changed",
			zap.String("user_id", updated.ID.String()),
			zap.String("actor_id", actor.ID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(target)),
		)
		s.notify(ctx, actor, updated)
	}
	return updated, nil
}

func (s *approvalService) notify(ctx context.Context, actor Actor, owner *model.User) {
	if s.notifier == nil {
		return
	}
	sender := actor.ID
	in := CreateNotificationInput{
		Recipient: owner.ID,
		Sender:    &sender,
		EntityID:  &owner.ID,
		Data:      map[string]any{"status": string(owner.Status)},
	}
	switch owner.Status {
	case model.StatusApproved:
		in.Type = model.NotificationApprovalGranted
		in.Title = "Application approved"
		in.Message = fmt.Sprintf("Your gym %q has been approved. You can now log in.", owner.GymName)
	case model.StatusRejected:
		in.Type = model.NotificationApprovalDenied
		in.Title = "Application rejected"
		in.Message = fmt.Sprintf("Your gym %q was not approved: %s", owner.GymName, owner.RejectionReason)
		in.Data["reason"] = owner.RejectionReason
	default:
		in.Type = model.NotificationSystem
		in.Title = "Application under review"
		in.Message = fmt.Sprintf("Your gym %q is pending super admin review again.", owner.GymName)
	}

	if _, err := s.notifier.Create(ctx, in); err != nil {
		s.logger.Warn("approval notification failed",
			zap.String("user_id", owner.ID.String()),
			zap.String("status", string(owner.Status)),
			zap.Error(err),
		)
	}
}

// ListGymOwners returns gym owners newest first, optionally filtered by status.
func (s *approvalService) ListGymOwners(ctx context.Context, status *model.ApprovalStatus) ([]model.User, error) {
	owners, err := s.users.ListByRole(ctx, model.RoleGymOwner, status)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("list gym owners: %w", err))
	}
	if owners == nil {
		owners = []model.User{}
	}
	return owners, nil
}

func (s *approvalService) Stats(ctx context.Context) (*ApprovalStats, error) {
	counts, err := s.users.CountByStatus(ctx, model.RoleGymOwner)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("count gym owners: %w", err))
	}
	stats := &ApprovalStats{
		Pending:  counts[model.StatusPending],
		Approved: counts[model.StatusApproved],
		Rejected: counts[model.StatusRejected],
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected
	return stats, nil
}
