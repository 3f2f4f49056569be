package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gymsync/internal/auth"
	apperrors "gymsync/internal/errors"
	"gymsync/internal/model"
	"gymsync/internal/repository"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6
	// MaxPasswordLength is the longest password bcrypt can hash, in bytes.
	MaxPasswordLength = 72
)

var (
	// ErrSuperAdminSelfRegistration is returned when registering as superAdmin.
	ErrSuperAdminSelfRegistration = apperrors.Forbidden("super admin cannot self-register").WithCode("SUPER_ADMIN_SELF_REGISTRATION")
	// ErrAccountRejected is returned when a rejected gym owner tries to log in.
	ErrAccountRejected = apperrors.Forbidden("gym owner application was rejected").WithCode("ACCOUNT_REJECTED")
)

// RegisterInput carries a self-registration request. Role may be a canonical
// value or a human readable label such as "Gym Owner".
type RegisterInput struct {
	Name           string
	Email          string
	Password       string
	Role           string
	GymName        string
	Location       string
	Phone          string
	Specialization string
}

// RegisterResult is the public outcome of a registration.
type RegisterResult struct {
	UserID  uuid.UUID            `json:"id"`
	Role    model.Role           `json:"role"`
	Status  model.ApprovalStatus `json:"status"`
	Message string               `json:"message"`
}

// LoginResult carries the session token and a minimal user summary.
type LoginResult struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      model.UserSummary `json:"user"`
}

// BootstrapConfig describes the well-known super admin account.
type BootstrapConfig struct {
	Email    string
	Password string
	Name     string
}

// AuthService handles registration, login and session lifecycle.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, email, password, claimedRole string) (*LoginResult, error)
	Bootstrap(ctx context.Context) error
	Logout(ctx context.Context, claims *auth.Claims) error
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

type authService struct {
	users       repository.UserRepository
	hasher      auth.PasswordHasher
	tokens      *auth.TokenService
	revocations auth.RevocationStore
	validate    *validator.Validate
	admin       BootstrapConfig
	logger      *zap.Logger
}

// NewAuthService creates a new authentication service. revocations may be nil,
// in which case Logout is a no-op.
func NewAuthService(
	users repository.UserRepository,
	hasher auth.PasswordHasher,
	tokens *auth.TokenService,
	revocations auth.RevocationStore,
	admin BootstrapConfig,
	logger *zap.Logger,
) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		validate:    validator.New(),
		admin:       admin,
		logger:      logger,
	}
}

// Register validates and stores a new account. Gym owners start pending.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	name := strings.TrimSpace(in.Name)
	email := repository.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" || strings.TrimSpace(in.Role) == "" {
		return nil, apperrors.InvalidInput("missing required fields: name, email, password and role are required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, apperrors.InvalidInput("please provide a valid email address")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(in.Password) > MaxPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength))
	}

	role, ok := model.ParseRole(in.Role)
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%q is not a valid role", in.Role))
	}
	if role == model.RoleSuperAdmin {
		return nil, ErrSuperAdminSelfRegistration
	}
	gymName := strings.TrimSpace(in.GymName)
	if role == model.RoleGymOwner && gymName == "" {
		return nil, apperrors.InvalidInput("gym name is required for gym owners")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal(fmt.Errorf("check email: %w", err))
	}

	hashed, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		ID:             uuid.New(),
		Name:           name,
		Email:          email,
		PasswordHash:   hashed,
		Role:           role,
		GymName:        gymName,
		Location:       strings.TrimSpace(in.Location),
		Phone:          strings.TrimSpace(in.Phone),
		Specialization: strings.TrimSpace(in.Specialization),
	}
	user.SetStatus(model.InitialStatus(role))

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, apperrors.Internal(fmt.Errorf("create user: %w", err))
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", role.String()),
		zap.String("status", string(user.Status)),
	)

	message := "Registered successfully. You can now log in."
	if role == model.RoleGymOwner {
		message = "Gym owner registered successfully. Await super admin approval."
	}
	return &RegisterResult{UserID: user.ID, Role: user.Role, Status: user.Status, Message: message}, nil
}

// Login checks email, claimed role, password and approval, in that order,
// and mints a session token.
func (s *authService) Login(ctx context.Context, email, password, claimedRole string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Internal(fmt.Errorf("find user: %w", err))
	}

	role, ok := model.ParseRole(claimedRole)
	if !ok || role != user.Role {
		return nil, apperrors.ErrRoleMismatch
	}

	if err := s.hasher.Compare(ctx, user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Internal(err)
	}

	if user.Role == model.RoleGymOwner && !user.IsApproved {
		if user.Status == model.StatusRejected {
			return nil, ErrAccountRejected
		}
		return nil, apperrors.ErrPendingApproval
	}

	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user.Summary(),
	}, nil
}

// Bootstrap makes sure a super admin exists. Safe to call repeatedly and
// from concurrent processes: a lost insert race is treated as success.
func (s *authService) Bootstrap(ctx context.Context) error {
	if _, err := s.users.FindFirstByRole(ctx, model.RoleSuperAdmin); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("bootstrap lookup super admin: %w", err)
	}

	email := repository.NormalizeEmail(s.admin.Email)
	if email == "" || s.admin.Password == "" {
		return errors.New("bootstrap super admin: email and password are required")
	}

	hashed, err := s.hasher.Hash(ctx, s.admin.Password)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}

	name := s.admin.Name
	if name == "" {
		name = "Super Admin"
	}
	admin := &model.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         model.RoleSuperAdmin,
	}
	admin.SetStatus(model.StatusApproved)

	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("bootstrap create super admin: %w", err)
	}

	s.logger.Info("bootstrap super admin created",
		zap.String("email", admin.Email),
		zap.String("user_id", admin.ID.String()),
	)
	return nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return apperrors.ErrMissingToken
	}
	if s.revocations == nil {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.ID, s.tokens.Remaining(claims))
}

// Me returns the live record of the token subject.
func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Internal(fmt.Errorf("find user: %w", err))
	}
	return user, nil
}
