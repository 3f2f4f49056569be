package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gymsync/internal/model"
)

// approvalColumns are the only columns the approval state machine writes.
var approvalColumns = []string{"status", "is_approved", "approved_by", "approved_at", "rejection_reason", "updated_at"}

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindFirstByRole(ctx context.Context, role model.Role) (*model.User, error)
	ListByRole(ctx context.Context, role model.Role, status *model.ApprovalStatus) ([]model.User, error)
	CountByStatus(ctx context.Context, role model.Role) (map[model.ApprovalStatus]int64, error)
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateApproval(ctx context.Context, user *model.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// NormalizeEmail is the canonical stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = NormalizeEmail(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindFirstByRole(ctx context.Context, role model.Role) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("role = ?", role).Order("created_at ASC").First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByRole lists users of role, newest first, optionally filtered by status.
func (r *userRepository) ListByRole(ctx context.Context, role model.Role, status *model.ApprovalStatus) ([]model.User, error) {
	var users []model.User
	q := r.db.WithContext(ctx).Where("role = ?", role)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

type statusCount struct {
	Status model.ApprovalStatus
	Total  int64
}

func (r *userRepository) CountByStatus(ctx context.Context, role model.Role) (map[model.ApprovalStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Select("status, COUNT(*) AS total").
		Where("role = ?", role).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.ApprovalStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// WithTransaction executes a function within a database transaction.
func (r *userRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &userRepository{db: tx}
		return fn(ctx, txRepo)
	})
}

// FindByIDForUpdate finds a user by ID with a row-level lock.
func (r *userRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateApproval persists the approval fields of user, including zero values.
func (r *userRepository) UpdateApproval(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Model(user).Select(approvalColumns).Updates(user).Error
}
