package handler

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "gymsync/internal/errors"
	"gymsync/internal/service"
)

// UserHandler serves user-shaped resources. Access is decided by the
// ownership gate before these run.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	return h.get(c, service.ResourceUser)
}

// GetMember godoc
// @Summary Get member by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "Member ID"
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /members/{id} [get]
func (h *UserHandler) GetMember(c echo.Context) error {
	return h.get(c, service.ResourceMember)
}

// GetTrainer godoc
// @Summary Get trainer by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trainer ID"
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /trainers/{id} [get]
func (h *UserHandler) GetTrainer(c echo.Context) error {
	return h.get(c, service.ResourceTrainer)
}

// get loads the user and answers NotFound when its role is not the kind the
// route addresses.
func (h *UserHandler) get(c echo.Context, kind service.ResourceKind) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !kind.Matches(user) {
		return apperrors.NotFound(fmt.Sprintf("%s not found", kind)).WithCode("USER_NOT_FOUND")
	}
	return c.JSON(http.StatusOK, user)
}

func parseID(c echo.Context, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput("invalid id")
	}
	return id, nil
}
