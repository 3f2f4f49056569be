package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "gymsync/internal/errors"
	"gymsync/internal/middleware"
	"gymsync/internal/model"
	"gymsync/internal/service"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	svc service.NotificationService
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// CreateNotificationRequest is the body of a manual notification.
type CreateNotificationRequest struct {
	Recipient string                 `json:"recipient" validate:"required,uuid"`
	Type      model.NotificationType `json:"type" validate:"required"`
	Title     string                 `json:"title" validate:"required"`
	Message   string                 `json:"message" validate:"required"`
	EntityID  *string                `json:"relatedEntityId,omitempty" validate:"omitempty,uuid"`
	Data      map[string]any         `json:"data,omitempty"`
}

// UnreadCountResponse reports the caller's unread notifications.
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

// MarkAllReadResponse reports how many notifications were marked read.
type MarkAllReadResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

// Create godoc
// @Summary Send a notification
// @Description The caller becomes the sender. Delivered live when the recipient is connected.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateNotificationRequest true "Notification"
// @Success 201 {object} model.Notification
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /notifications [post]
func (h *NotificationHandler) Create(c echo.Context) error {
	actor, err := middleware.ActorFrom(c)
	if err != nil {
		return err
	}
	var req CreateNotificationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidInput("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.InvalidInput("recipient, type, title and message are required")
	}

	recipient, _ := uuid.Parse(req.Recipient)
	in := service.CreateNotificationInput{
		Recipient: recipient,
		Sender:    &actor.ID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Data:      req.Data,
	}
	if req.EntityID != nil {
		entityID, _ := uuid.Parse(*req.EntityID)
		in.EntityID = &entityID
	}

	notification, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, notification)
}

// List godoc
// @Summary List my notifications
// @Description Newest first, at most 100.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Notification
// @Failure 401 {object} errors.ErrorResponse
// @Router /notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	actor, err := middleware.ActorFrom(c)
	if err != nil {
		return err
	}
	notifications, err := h.svc.List(c.Request().Context(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notifications)
}

// UnreadCount godoc
// @Summary Count my unread notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UnreadCountResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	actor, err := middleware.ActorFrom(c)
	if err != nil {
		return err
	}
	total, err := h.svc.UnreadCount(c.Request().Context(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UnreadCountResponse{Unread: total})
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} model.Notification
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := h.owned(c)
	if err != nil {
		return err
	}
	notification, err := h.svc.MarkRead(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notification)
}

// MarkAllRead godoc
// @Summary Mark all my notifications read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MarkAllReadResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	actor, err := middleware.ActorFrom(c)
	if err != nil {
		return err
	}
	updated, err := h.svc.MarkAllRead(c.Request().Context(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MarkAllReadResponse{Message: "all notifications marked as read", Updated: updated})
}

// Delete godoc
// @Summary Delete a notification
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c echo.Context) error {
	id, err := h.owned(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "notification deleted"})
}

// owned resolves the :id notification and checks that the caller is its
// recipient or a super admin.
func (h *NotificationHandler) owned(c echo.Context) (uuid.UUID, error) {
	actor, err := middleware.ActorFrom(c)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return uuid.Nil, err
	}
	notification, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return uuid.Nil, err
	}
	if actor.Role != model.RoleSuperAdmin && notification.Recipient != actor.ID {
		return uuid.Nil, apperrors.ErrNotOwner
	}
	return id, nil
}
