package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"gymsync/internal/config"
	apperrors "gymsync/internal/errors"
	"gymsync/internal/handler"
	"gymsync/internal/middleware"
	"gymsync/internal/model"
	"gymsync/internal/service"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	Approval     *handler.ApprovalHandler
	Notification *handler.NotificationHandler
	User         *handler.UserHandler
	Realtime     http.Handler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, logger *zap.Logger, guard *middleware.Guard, h Handlers) {
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = apperrors.EchoHandler(logger)

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	if h.Realtime != nil {
		e.GET("/ws", echo.WrapHandler(h.Realtime))
	}

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(authRateLimiter(cfg.LoginRateLimit))
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/logout", h.Auth.Logout, guard.Authenticate())
	authGroup.GET("/me", h.Auth.Me, guard.Authenticate())

	// Stage order: token, role, approval, ownership.
	secured := api.Group("", guard.Authenticate())
	approved := guard.Approved()

	admin := secured.Group("/super-admin", guard.Roles(model.RoleSuperAdmin), approved)
	admin.GET("/gym-owners", h.Approval.ListGymOwners)
	admin.GET("/pending-approvals", h.Approval.ListPending)
	admin.GET("/stats", h.Approval.Stats)
	admin.POST("/approve/:id", h.Approval.Approve)
	admin.POST("/reject/:id", h.Approval.Reject)
	admin.POST("/reset/:id", h.Approval.Reset)

	notifications := secured.Group("/notifications")
	notifications.POST("", h.Notification.Create,
		guard.Roles(model.RoleSuperAdmin, model.RoleGymOwner, model.RoleTrainer), approved)
	notifications.GET("", h.Notification.List, approved)
	notifications.GET("/unread-count", h.Notification.UnreadCount, approved)
	notifications.PATCH("/read-all", h.Notification.MarkAllRead, approved)
	notifications.PATCH("/:id/read", h.Notification.MarkRead, approved)
	notifications.DELETE("/:id", h.Notification.Delete, approved)

	secured.GET("/users/:id", h.User.GetUser, approved, guard.Owns(service.ResourceUser, "id"))
	secured.GET("/members/:id", h.User.GetMember,
		guard.Roles(model.RoleSuperAdmin, model.RoleGymOwner, model.RoleTrainer, model.RoleMember),
		approved,
		guard.Owns(service.ResourceMember, "id"))
	secured.GET("/trainers/:id", h.User.GetTrainer,
		guard.Roles(model.RoleSuperAdmin, model.RoleGymOwner, model.RoleTrainer),
		approved,
		guard.Owns(service.ResourceTrainer, "id"))
}

// authRateLimiter throttles the credential endpoints per client IP.
func authRateLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(perSecond),
		Burst: burst,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
