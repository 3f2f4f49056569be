package middleware

import (
	"errors"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"gymsync/internal/auth"
	apperrors "gymsync/internal/errors"
	"gymsync/internal/model"
	"gymsync/internal/service"
)

const claimsKey = "claims"

// Guard builds the authorization chain stages: token verification, role
// gate, approval gate and ownership gate. Each stage fails with exactly one
// of Unauthorized or Forbidden and the chain stops at the first failure.
type Guard struct {
	verifier *auth.Verifier
	users    service.UserService
}

// NewGuard creates a Guard.
func NewGuard(verifier *auth.Verifier, users service.UserService) *Guard {
	return &Guard{verifier: verifier, users: users}
}

// Authenticate verifies the bearer token and stores its claims on the context.
func (g *Guard) Authenticate() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			return g.verifier.Verify(c.Request().Context(), raw)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				return appErr
			}
			return apperrors.ErrMissingToken
		},
	})
}

// Roles permits only the listed roles. Must run after Authenticate.
func (g *Guard) Roles(roles ...model.Role) echo.MiddlewareFunc {
	permitted := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		permitted[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return apperrors.ErrMissingToken
			}
			if _, ok := permitted[claims.Role]; !ok {
				return apperrors.ErrRoleNotPermitted
			}
			return next(c)
		}
	}
}

// Approved re-reads the live record of a gym owner and rejects unapproved
// accounts. The token role alone is never trusted for this. Other roles pass.
func (g *Guard) Approved() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return apperrors.ErrMissingToken
			}
			if claims.Role != model.RoleGymOwner {
				return next(c)
			}
			id, err := claims.UserUUID()
			if err != nil {
				return apperrors.ErrInvalidToken
			}
			if err := g.users.EnsureApproved(c.Request().Context(), id); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// Owns requires the caller to own, or be related to, the user addressed by
// the path parameter param.
func (g *Guard) Owns(kind service.ResourceKind, param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := ActorFrom(c)
			if err != nil {
				return err
			}
			if actor.Role == model.RoleSuperAdmin {
				return next(c)
			}
			resourceID, err := uuid.Parse(c.Param(param))
			if err != nil {
				return apperrors.ErrNotOwner
			}
			if err := g.users.Authorize(c.Request().Context(), actor, kind, resourceID); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// ClaimsFrom returns the verified claims attached by Authenticate.
func ClaimsFrom(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// ActorFrom returns the authenticated caller as a service.Actor.
func ActorFrom(c echo.Context) (service.Actor, error) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return service.Actor{}, apperrors.ErrMissingToken
	}
	id, err := claims.UserUUID()
	if err != nil {
		return service.Actor{}, apperrors.ErrInvalidToken
	}
	return service.Actor{ID: id, Role: claims.Role}, nil
}
