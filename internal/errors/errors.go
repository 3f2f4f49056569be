package errors

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Kind is the failure category of an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindConflict
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindConflict:
		return "CONFLICT"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL_ERROR"
	}
}

// AppError is a categorized error with a short, user-facing message.
type AppError struct {
	Kind    Kind
	Message string
	Code    string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithCode returns a copy of e carrying a more specific machine code.
func (e *AppError) WithCode(code string) *AppError {
	cp := *e
	cp.Code = code
	return &cp
}

// Is matches another *AppError by kind and code so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func newError(kind Kind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg, Code: kind.String()}
}

// InvalidInput is returned for malformed or missing fields.
func InvalidInput(msg string) *AppError { return newError(KindInvalidInput, msg) }

// Conflict is returned when a unique value already exists.
func Conflict(msg string) *AppError { return newError(KindConflict, msg) }

// Unauthorized is returned for missing, invalid or expired credentials.
func Unauthorized(msg string) *AppError { return newError(KindUnauthorized, msg) }

// Forbidden is returned when the caller is known but not allowed.
func Forbidden(msg string) *AppError { return newError(KindForbidden, msg) }

// NotFound is returned when an id does not reference an existing record.
func NotFound(msg string) *AppError { return newError(KindNotFound, msg) }

// Internal wraps an unexpected failure. Its cause is never shown to callers.
func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal server error", Code: KindInternal.String(), Err: err}
}

var (
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = Conflict("email already registered").WithCode("EMAIL_TAKEN")
	// ErrUserNotFound is returned when no user matches an id or email.
	ErrUserNotFound = NotFound("user not found").WithCode("USER_NOT_FOUND")
	// ErrNotificationNotFound is returned when no notification matches an id.
	ErrNotificationNotFound = NotFound("notification not found").WithCode("NOTIFICATION_NOT_FOUND")
	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = Unauthorized("incorrect password").WithCode("INVALID_CREDENTIALS")
	// ErrRoleMismatch is returned when the claimed login role is not the account's role.
	ErrRoleMismatch = Forbidden("invalid role").WithCode("ROLE_MISMATCH")
	// ErrPendingApproval is returned when an unapproved gym owner tries to act.
	ErrPendingApproval = Forbidden("account is awaiting super admin approval").WithCode("PENDING_APPROVAL")
	// ErrMissingToken is returned when no bearer token is presented.
	ErrMissingToken = Unauthorized("no token provided").WithCode("MISSING_TOKEN")
	// ErrInvalidToken is returned when a token fails signature, expiry or revocation checks.
	ErrInvalidToken = Unauthorized("invalid or expired token").WithCode("INVALID_TOKEN")
	// ErrRoleNotPermitted is returned by the role gate.
	ErrRoleNotPermitted = Forbidden("your role does not have permission for this resource").WithCode("ROLE_NOT_PERMITTED")
	// ErrNotOwner is returned by the ownership gate.
	ErrNotOwner = Forbidden("you don't have permission to access this resource").WithCode("NOT_OWNER")
)

// KindOf returns the category of err. Errors that are not *AppError are internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Kind == KindInternal {
		return NewHTTPError(http.StatusInternalServerError, "internal server error", KindInternal.String())
	}

	switch appErr.Kind {
	case KindInvalidInput:
		return NewHTTPError(http.StatusBadRequest, appErr.Message, appErr.Code)
	case KindUnauthorized:
		return NewHTTPError(http.StatusUnauthorized, appErr.Message, appErr.Code)
	case KindForbidden:
		return NewHTTPError(http.StatusForbidden, appErr.Message, appErr.Code)
	case KindNotFound:
		return NewHTTPError(http.StatusNotFound, appErr.Message, appErr.Code)
	case KindConflict:
		return NewHTTPError(http.StatusConflict, appErr.Message, appErr.Code)
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", KindInternal.String())
}

// EchoHandler renders AppErrors and echo's own HTTP errors as ErrorResponse JSON.
func EchoHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *HTTPError
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &echoErr):
			msg, ok := echoErr.Message.(string)
			if !ok {
				msg = http.StatusText(echoErr.Code)
			}
			httpErr = NewHTTPError(echoErr.Code, msg, http.StatusText(echoErr.Code))
		default:
			httpErr = MapErrorToHTTP(err)
		}

		if httpErr.StatusCode >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(httpErr.StatusCode)
			return
		}
		_ = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
}
