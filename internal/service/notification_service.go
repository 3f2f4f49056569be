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
	"gymsync/internal/realtime"
	"gymsync/internal/repository"
)

// NotificationListLimit caps how many notifications List returns.
const NotificationListLimit = 100

const pushTimeout = 5 * time.Second

// CreateNotificationInput describes a notification to dispatch.
type CreateNotificationInput struct {
	Recipient uuid.UUID
	Sender    *uuid.UUID
	Type      model.NotificationType
	Title     string
	Message   string
	EntityID  *uuid.UUID
	Data      map[string]any
}

// Notifier is the narrow dispatch capability other services depend on.
type Notifier interface {
	Create(ctx context.Context, in CreateNotificationInput) (*model.Notification, error)
}

// NotificationService persists notifications and pushes them to live channels.
type NotificationService interface {
	Notifier
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type notificationService struct {
	repo     repository.NotificationRepository
	registry realtime.Registry
	logger   *zap.Logger
}

// NewNotificationService creates a dispatcher. registry may be nil, in which
// case notifications are only persisted.
func NewNotificationService(repo repository.NotificationRepository, registry realtime.Registry, logger *zap.Logger) NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &notificationService{repo: repo, registry: registry, logger: logger}
}

// Create stores the notification and then attempts a realtime push. The push
// is advisory: its failure never fails Create.
func (s *notificationService) Create(ctx context.Context, in CreateNotificationInput) (*model.Notification, error) {
	if in.Recipient == uuid.Nil {
		return nil, apperrors.InvalidInput("recipient is required")
	}
	if !in.Type.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%q is not a valid notification type", in.Type))
	}
	title := strings.TrimSpace(in.Title)
	message := strings.TrimSpace(in.Message)
	if title == "" || message == "" {
		return nil, apperrors.InvalidInput("title and message are required")
	}

	notification := &model.Notification{
		ID:        uuid.New(),
		Recipient: in.Recipient,
		Sender:    in.Sender,
		Type:      in.Type,
		Title:     title,
		Message:   message,
		EntityID:  in.EntityID,
		Data:      in.Data,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("create notification: %w", err))
	}

	s.push(ctx, notification)
	return notification, nil
}

func (s *notificationService) push(ctx context.Context, notification *model.Notification) {
	if s.registry == nil {
		return
	}
	ch, ok := s.registry.Lookup(notification.Recipient)
	if !ok {
		return
	}

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := ch.Push(pushCtx, realtime.Event{Type: realtime.EventNotification, Data: notification}); err != nil {
		s.logger.Warn("realtime push failed",
			zap.String("user_id", notification.Recipient.String()),
			zap.String("notification_id", notification.ID.String()),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("notification pushed",
		zap.String("user_id", notification.Recipient.String()),
		zap.String("notification_id", notification.ID.String()),
	)
}

func (s *notificationService) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, apperrors.Internal(fmt.Errorf("find notification: %w", err))
	}
	return notification, nil
}

// List returns the newest notifications of userID, at most NotificationListLimit.
func (s *notificationService) List(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	notifications, err := s.repo.ListByRecipient(ctx, userID, NotificationListLimit)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("list notifications: %w", err))
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	return notifications, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	total, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.Internal(fmt.Errorf("count unread: %w", err))
	}
	return total, nil
}

// MarkRead is idempotent: an already read notification is returned unchanged.
func (s *notificationService) MarkRead(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	notification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Read {
		return notification, nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("mark notification read: %w", err))
	}
	notification.Read = true
	return notification, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apperrors.Internal(fmt.Errorf("mark all read: %w", err))
	}
	return affected, nil
}

func (s *notificationService) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("delete notification: %w", err))
	}
	if affected == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}
