package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"gymsync/internal/auth"
	"gymsync/internal/model"
	"gymsync/internal/realtime"
	"gymsync/internal/repository"
)

// memoryUserRepository is an in-memory UserRepository enforcing the unique
// email constraint the way the database does.
type memoryUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newMemoryUserRepository(users ...*model.User) *memoryUserRepository {
	r := &memoryUserRepository{users: make(map[uuid.UUID]model.User)}
	for _, u := range users {
		r.users[u.ID] = *u
	}
	return r
}

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.Email = repository.NormalizeEmail(user.Email)
	for _, u := range r.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryUserRepository) FindFirstByRole(_ context.Context, role model.Role) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Role == role {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryUserRepository) ListByRole(_ context.Context, role model.Role, status *model.ApprovalStatus) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if u.Role == role && (status == nil || u.Status == *status) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryUserRepository) CountByStatus(_ context.Context, role model.Role) (map[model.ApprovalStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.ApprovalStatus]int64)
	for _, u := range r.users {
		if u.Role == role {
			counts[u.Status]++
		}
	}
	return counts, nil
}

func (r *memoryUserRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.UserRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryUserRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.FindByID(ctx, id)
}

func (r *memoryUserRepository) UpdateApproval(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Status = user.Status
	stored.IsApproved = user.IsApproved
	stored.ApprovedBy = user.ApprovedBy
	stored.ApprovedAt = user.ApprovedAt
	stored.RejectionReason = user.RejectionReason
	r.users[user.ID] = stored
	return nil
}

func (r *memoryUserRepository) get(id uuid.UUID) model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

// memoryNotificationRepository keeps notifications in insertion order.
type memoryNotificationRepository struct {
	mu            sync.Mutex
	notifications []model.Notification
	createErr     error
}

func (r *memoryNotificationRepository) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *memoryNotificationRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id {
			return &n, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryNotificationRepository) ListByRecipient(_ context.Context, recipient uuid.UUID, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for i := len(r.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if r.notifications[i].Recipient == recipient {
			out = append(out, r.notifications[i])
		}
	}
	return out, nil
}

func (r *memoryNotificationRepository) CountUnread(_ context.Context, recipient uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, n := range r.notifications {
		if n.Recipient == recipient && !n.Read {
			total++
		}
	}
	return total, nil
}

func (r *memoryNotificationRepository) MarkRead(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == id {
			r.notifications[i].Read = true
		}
	}
	return nil
}

func (r *memoryNotificationRepository) MarkAllRead(_ context.Context, recipient uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for i := range r.notifications {
		if r.notifications[i].Recipient == recipient && !r.notifications[i].Read {
			r.notifications[i].Read = true
			affected++
		}
	}
	return affected, nil
}

func (r *memoryNotificationRepository) Delete(_ context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifications {
		if n.ID == id {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// recordingChannel captures pushed events and can be made to fail.
type recordingChannel struct {
	mu     sync.Mutex
	events []realtime.Event
	err    error
}

func (c *recordingChannel) Push(_ context.Context, event realtime.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

func (c *recordingChannel) received() []realtime.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]realtime.Event(nil), c.events...)
}

// MockNotifier is a mock implementation of Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Create(ctx context.Context, in CreateNotificationInput) (*model.Notification, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

// MockRevocationStore is a mock implementation of auth.RevocationStore.
type MockRevocationStore struct {
	mock.Mock
}

var _ auth.RevocationStore = (*MockRevocationStore)(nil)

func (m *MockRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockRevocationStore) IsRevoked(ctx context.Context, tokenID string) bool {
	args := m.Called(ctx, tokenID)
	return args.Bool(0)
}

var errBoom = errors.New("boom")
