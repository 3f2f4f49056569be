package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gymsync/internal/auth"
	"gymsync/internal/config"
	"gymsync/internal/handler"
	"gymsync/internal/middleware"
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

type routerFixture struct {
	e      *echo.Echo
	tokens *auth.TokenService
	users  *MockUserService
}

func newRouterFixture() *routerFixture {
	tokens := auth.NewTokenService("router-secret")
	users := new(MockUserService)
	guard := middleware.NewGuard(auth.NewVerifier(tokens, auth.NewTokenStore(nil)), users)

	e := echo.New()
	Register(e, &config.Config{CORSOrigins: []string{"*"}}, nil, guard, Handlers{
		Auth:         handler.NewAuthHandler(nil),
		Approval:     handler.NewApprovalHandler(nil),
		Notification: handler.NewNotificationHandler(nil),
		User:         handler.NewUserHandler(users),
	})
	return &routerFixture{e: e, tokens: tokens, users: users}
}

func (f *routerFixture) get(t *testing.T, path string, caller *model.User) *httptest.ResponseRecorder {
	t.Helper()
	token, _, err := f.tokens.Issue(caller)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestRegister_RoleGateBeforeApprovalGate(t *testing.T) {
	f := newRouterFixture()
	owner := &model.User{ID: uuid.New(), Name: "owner", Role: model.RoleGymOwner}

	rec := f.get(t, "/api/super-admin/stats", owner)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "ROLE_NOT_PERMITTED")
	f.users.AssertNotCalled(t, "EnsureApproved", mock.Anything, mock.Anything)
}

func TestRegister_UserRoutesMatchRecordRole(t *testing.T) {
	admin := &model.User{ID: uuid.New(), Name: "admin", Role: model.RoleSuperAdmin}
	trainer := &model.User{ID: uuid.New(), Name: "Tom", Role: model.RoleTrainer}
	member := &model.User{ID: uuid.New(), Name: "Mia", Role: model.RoleMember}

	tests := []struct {
		name           string
		path           string
		target         *model.User
		expectedStatus int
	}{
		{name: "member route with member", path: "/api/members/", target: member, expectedStatus: http.StatusOK},
		{name: "member route with trainer", path: "/api/members/", target: trainer, expectedStatus: http.StatusNotFound},
		{name: "trainer route with trainer", path: "/api/trainers/", target: trainer, expectedStatus: http.StatusOK},
		{name: "trainer route with member", path: "/api/trainers/", target: member, expectedStatus: http.StatusNotFound},
		{name: "user route with any role", path: "/api/users/", target: trainer, expectedStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture()
			f.users.On("GetUser", mock.Anything, tt.target.ID).Return(tt.target, nil).Once()

			rec := f.get(t, tt.path+tt.target.ID.String(), admin)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusNotFound {
				assert.NotContains(t, rec.Body.String(), tt.target.Name)
			}
			f.users.AssertExpectations(t)
		})
	}
}
