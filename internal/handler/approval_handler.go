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

// ApprovalHandler serves the super admin gym owner review endpoints.
type ApprovalHandler struct {
	svc service.ApprovalService
}

// NewApprovalHandler creates an approval handler.
func NewApprovalHandler(svc service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{svc: svc}
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" example:"Incomplete business documents"`
}

// ApprovalResponse wraps the updated gym owner.
type ApprovalResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// ListGymOwners godoc
// @Summary List gym owners
// @Tags super-admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (pending, approved, rejected)"
// @Success 200 {array} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /super-admin/gym-owners [get]
func (h *ApprovalHandler) ListGymOwners(c echo.Context) error {
	var status *model.ApprovalStatus
	if raw := c.QueryParam("status"); raw != "" {
		parsed, ok := model.ParseApprovalStatus(raw)
		if !ok {
			return apperrors.InvalidInput("status must be one of pending, approved, rejected")
		}
		status = &parsed
	}
	owners, err := h.svc.ListGymOwners(c.Request().Context(), status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, owners)
}

// ListPending godoc
// @Summary List gym owners awaiting approval
// @Tags super-admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /super-admin/pending-approvals [get]
func (h *ApprovalHandler) ListPending(c echo.Context) error {
	pending := model.StatusPending
	owners, err := h.svc.ListGymOwners(c.Request().Context(), &pending)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, owners)
}

// Approve godoc
// @Summary Approve a gym owner
// @Tags super-admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Gym owner ID"
// @Success 200 {object} ApprovalResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /super-admin/approve/{id} [post]
func (h *ApprovalHandler) Approve(c echo.Context) error {
	actor, ownerID, err := h.target(c)
	if err != nil {
		return err
	}
	user, err := h.svc.Approve(c.Request().Context(), actor, ownerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ApprovalResponse{Message: "gym owner approved", User: user})
}

// Reject godoc
// @Summary Reject a gym owner
// @Tags super-admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Gym owner ID"
// @Param request body RejectRequest true "Rejection reason"
// @Success 200 {object} ApprovalResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /super-admin/reject/{id} [post]
func (h *ApprovalHandler) Reject(c echo.Context) error {
	actor, ownerID, err := h.target(c)
	if err != nil {
		return err
	}
	var req RejectRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidInput("invalid request body")
	}
	user, err := h.svc.Reject(c.Request().Context(), actor, ownerID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ApprovalResponse{Message: "gym owner rejected", User: user})
}

// Reset godoc
// @Summary Return a gym owner to pending review
// @Tags super-admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Gym owner ID"
// @Success 200 {object} ApprovalResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /super-admin/reset/{id} [post]
func (h *ApprovalHandler) Reset(c echo.Context) error {
	actor, ownerID, err := h.target(c)
	if err != nil {
		return err
	}
	user, err := h.svc.Reset(c.Request().Context(), actor, ownerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ApprovalResponse{Message: "gym owner reset to pending", User: user})
}

// Stats godoc
// @Summary Gym owner approval counts
// @Tags super-admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ApprovalStats
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /super-admin/stats [get]
func (h *ApprovalHandler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *ApprovalHandler) target(c echo.Context) (service.Actor, uuid.UUID, error) {
	actor, err := middleware.ActorFrom(c)
	if err != nil {
		return service.Actor{}, uuid.Nil, err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return service.Actor{}, uuid.Nil, err
	}
	return actor, id, nil
}
