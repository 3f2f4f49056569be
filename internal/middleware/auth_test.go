package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gymsync/internal/auth"
	apperrors "gymsync/internal/errors"
	"gymsync/internal/model"
	"gymsync/internal/service"
)

// MockUserService is a mock implementation of service.UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) EnsureApproved(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockUserService) Authorize(ctx context.Context, caller service.Actor, kind service.ResourceKind, resourceID uuid.UUID) error {
	return m.Called(ctx, caller, kind, resourceID).Error(0)
}

// revokedSet is an in-memory auth.RevocationStore.
type revokedSet map[string]bool

func (s revokedSet) Revoke(_ context.Context, id string, _ time.Duration) error {
	s[id] = true
	return nil
}

func (s revokedSet) IsRevoked(_ context.Context, id string) bool { return s[id] }

type guardFixture struct {
	e       *echo.Echo
	tokens  *auth.TokenService
	users   *MockUserService
	revoked revokedSet
}

func newGuardFixture() *guardFixture {
	tokens := auth.NewTokenService("guard-secret")
	users := new(MockUserService)
	revoked := revokedSet{}
	guard := NewGuard(auth.NewVerifier(tokens, revoked), users)

	e := echo.New()
	e.HTTPErrorHandler = apperrors.EchoHandler(nil)
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	secured := e.Group("/api", guard.Authenticate())
	secured.GET("/me", ok, guard.Approved())
	secured.GET("/admin", ok, guard.Roles(model.RoleSuperAdmin), guard.Approved())
	secured.GET("/members/:id", ok, guard.Roles(model.RoleSuperAdmin, model.RoleGymOwner, model.RoleTrainer), guard.Approved(), guard.Owns(service.ResourceMember, "id"))

	return &guardFixture{e: e, tokens: tokens, users: users, revoked: revoked}
}

func (f *guardFixture) token(t *testing.T, role model.Role) (uuid.UUID, string, *auth.Claims) {
	t.Helper()
	user := &model.User{ID: uuid.New(), Name: "caller", Role: role}
	token, claims, err := f.tokens.Issue(user)
	require.NoError(t, err)
	return user.ID, token, claims
}

func (f *guardFixture) do(path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestGuard_Authenticate(t *testing.T) {
	f := newGuardFixture()
	_, token, claims := f.token(t, model.RoleMember)

	expired := auth.NewTokenService("guard-secret", auth.WithClock(func() time.Time { return time.Now().Add(-72 * time.Hour) }))
	oldToken, _, err := expired.Issue(&model.User{ID: uuid.New(), Role: model.RoleMember})
	require.NoError(t, err)

	foreign := auth.NewTokenService("other-secret")
	foreignToken, _, err := foreign.Issue(&model.User{ID: uuid.New(), Role: model.RoleMember})
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
		expectedCode  int
	}{
		{name: "valid token", authorization: "Bearer " + token, expectedCode: http.StatusOK},
		{name: "missing header", expectedCode: http.StatusUnauthorized},
		{name: "wrong scheme", authorization: "Basic " + token, expectedCode: http.StatusUnauthorized},
		{name: "garbage token", authorization: "Bearer nope", expectedCode: http.StatusUnauthorized},
		{name: "expired token", authorization: "Bearer " + oldToken, expectedCode: http.StatusUnauthorized},
		{name: "foreign signature", authorization: "Bearer " + foreignToken, expectedCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do("/api/me", tt.authorization)
			assert.Equal(t, tt.expectedCode, rec.Code)
		})
	}

	t.Run("revoked token", func(t *testing.T) {
		f.revoked[claims.ID] = true
		rec := f.do("/api/me", "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
	})
}

func TestGuard_Roles(t *testing.T) {
	f := newGuardFixture()
	_, adminToken, _ := f.token(t, model.RoleSuperAdmin)
	_, memberToken, _ := f.token(t, model.RoleMember)

	assert.Equal(t, http.StatusOK, f.do("/api/admin", "Bearer "+adminToken).Code)

	rec := f.do("/api/admin", "Bearer "+memberToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "ROLE_NOT_PERMITTED")
}

func TestGuard_RoleGateRunsBeforeApprovalGate(t *testing.T) {
	f := newGuardFixture()
	_, ownerToken, _ := f.token(t, model.RoleGymOwner)

	rec := f.do("/api/admin", "Bearer "+ownerToken)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "ROLE_NOT_PERMITTED")
	f.users.AssertNotCalled(t, "EnsureApproved", mock.Anything, mock.Anything)
}

func TestGuard_ApprovedReadsLiveState(t *testing.T) {
	f := newGuardFixture()
	ownerID, ownerToken, _ := f.token(t, model.RoleGymOwner)

	f.users.On("EnsureApproved", mock.Anything, ownerID).Return(apperrors.ErrPendingApproval).Once()
	rec := f.do("/api/me", "Bearer "+ownerToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "PENDING_APPROVAL")

	f.users.On("EnsureApproved", mock.Anything, ownerID).Return(nil).Once()
	assert.Equal(t, http.StatusOK, f.do("/api/me", "Bearer "+ownerToken).Code)

	_, memberToken, _ := f.token(t, model.RoleMember)
	assert.Equal(t, http.StatusOK, f.do("/api/me", "Bearer "+memberToken).Code)

	f.users.AssertExpectations(t)
}

func TestGuard_Owns(t *testing.T) {
	f := newGuardFixture()
	trainerID, trainerToken, _ := f.token(t, model.RoleTrainer)
	_, adminToken, _ := f.token(t, model.RoleSuperAdmin)
	assigned := uuid.New()
	unassigned := uuid.New()

	trainer := service.Actor{ID: trainerID, Role: model.RoleTrainer}
	f.users.On("Authorize", mock.Anything, trainer, service.ResourceMember, assigned).Return(nil)
	f.users.On("Authorize", mock.Anything, trainer, service.ResourceMember, unassigned).Return(apperrors.ErrNotOwner)

	assert.Equal(t, http.StatusOK, f.do("/api/members/"+assigned.String(), "Bearer "+trainerToken).Code)
	assert.Equal(t, http.StatusForbidden, f.do("/api/members/"+unassigned.String(), "Bearer "+trainerToken).Code)
	assert.Equal(t, http.StatusForbidden, f.do("/api/members/not-a-uuid", "Bearer "+trainerToken).Code)

	assert.Equal(t, http.StatusOK, f.do("/api/members/"+unassigned.String(), "Bearer "+adminToken).Code)
	f.users.AssertNotCalled(t, "Authorize", mock.Anything, mock.MatchedBy(func(a service.Actor) bool {
		return a.Role == model.RoleSuperAdmin
	}), mock.Anything, mock.Anything)

	assert.Equal(t, http.StatusUnauthorized, f.do("/api/members/"+assigned.String(), "").Code,
		"a missing token is 401 even on owned routes")
}
