package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gymsync/internal/errors"
	"gymsync/internal/model"
)

type gymFixture struct {
	repo         *memoryUserRepository
	admin        *model.User
	owner        *model.User
	otherOwner   *model.User
	trainer      *model.User
	otherTrainer *model.User
	member       *model.User
}

func newGymFixture() gymFixture {
	mk := func(role model.Role, createdBy, trainer *uuid.UUID) *model.User {
		u := &model.User{ID: uuid.New(), Email: uuid.NewString() + "@x.com", Role: role, CreatedBy: createdBy, AssignedTrainer: trainer}
		u.SetStatus(model.StatusApproved)
		return u
	}
	f := gymFixture{}
	f.admin = mk(model.RoleSuperAdmin, nil, nil)
	f.owner = mk(model.RoleGymOwner, nil, nil)
	f.otherOwner = mk(model.RoleGymOwner, nil, nil)
	f.trainer = mk(model.RoleTrainer, &f.owner.ID, nil)
	f.otherTrainer = mk(model.RoleTrainer, &f.otherOwner.ID, nil)
	f.member = mk(model.RoleMember, &f.owner.ID, &f.trainer.ID)
	f.repo = newMemoryUserRepository(f.admin, f.owner, f.otherOwner, f.trainer, f.otherTrainer, f.member)
	return f
}

func actorOf(u *model.User) Actor { return Actor{ID: u.ID, Role: u.Role} }

func TestUserService_Authorize(t *testing.T) {
	f := newGymFixture()
	svc := NewUserService(f.repo, nil)

	tests := []struct {
		name     string
		caller   *model.User
		kind     ResourceKind
		resource uuid.UUID
		allowed  bool
	}{
		{name: "super admin bypasses", caller: f.admin, kind: ResourceMember, resource: f.member.ID, allowed: true},
		{name: "super admin bypasses missing resource", caller: f.admin, kind: ResourceUser, resource: uuid.New(), allowed: true},
		{name: "self access", caller: f.member, kind: ResourceMember, resource: f.member.ID, allowed: true},
		{name: "self access as user", caller: f.trainer, kind: ResourceUser, resource: f.trainer.ID, allowed: true},
		{name: "assigned trainer reads member", caller: f.trainer, kind: ResourceMember, resource: f.member.ID, allowed: true},
		{name: "other trainer is forbidden", caller: f.otherTrainer, kind: ResourceMember, resource: f.member.ID},
		{name: "owning gym owner reads member", caller: f.owner, kind: ResourceMember, resource: f.member.ID, allowed: true},
		{name: "owning gym owner reads trainer", caller: f.owner, kind: ResourceTrainer, resource: f.trainer.ID, allowed: true},
		{name: "other gym owner is forbidden", caller: f.otherOwner, kind: ResourceTrainer, resource: f.trainer.ID},
		{name: "member cannot read trainer", caller: f.member, kind: ResourceTrainer, resource: f.trainer.ID},
		{name: "kind mismatch is forbidden", caller: f.owner, kind: ResourceTrainer, resource: f.member.ID},
		{name: "missing resource is forbidden", caller: f.owner, kind: ResourceMember, resource: uuid.New()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Authorize(context.Background(), actorOf(tt.caller), tt.kind, tt.resource)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrNotOwner)
			assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
		})
	}
}

func TestUserService_EnsureApproved(t *testing.T) {
	ctx := context.Background()
	owner := newGymOwner(model.StatusPending)
	repo := newMemoryUserRepository(owner)
	svc := NewUserService(repo, nil)

	err := svc.EnsureApproved(ctx, owner.ID)
	assert.ErrorIs(t, err, apperrors.ErrPendingApproval)

	_, err = NewApprovalService(repo, nil, nil).Approve(ctx, Actor{ID: uuid.New(), Role: model.RoleSuperAdmin}, owner.ID)
	require.NoError(t, err)
	assert.NoError(t, svc.EnsureApproved(ctx, owner.ID), "approval is read live")

	err = svc.EnsureApproved(ctx, uuid.New())
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestUserService_GetUser(t *testing.T) {
	f := newGymFixture()
	svc := NewUserService(f.repo, nil)

	got, err := svc.GetUser(context.Background(), f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, f.member.ID, got.ID)

	_, err = svc.GetUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
