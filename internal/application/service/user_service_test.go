package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/jetprint/print-workflow/internal/domain/stage"
)

func newUserService(t *testing.T) (UserService, *memUserRepo) {
	t.Helper()
	users := newMemUserRepo()
	svc := NewUserService(stage.Default(), users, nopTxManager{}, zap.NewNop())
	return svc, users
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes the password", func(t *testing.T) {
		svc, _ := newUserService(t)

		user, err := svc.Create(ctx, "555-0100", "hunter2", entity.RoleStaff)
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEqual(t, "hunter2", user.PasswordHash)
	})

	t.Run("rejects duplicate phone", func(t *testing.T) {
		svc, _ := newUserService(t)

		_, err := svc.Create(ctx, "555-0100", "hunter2", entity.RoleStaff)
		require.NoError(t, err)

		_, err = svc.Create(ctx, "555-0100", "other", entity.RoleStaff)
		assert.ErrorIs(t, err, entity.ErrConflict)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		svc, _ := newUserService(t)

		_, err := svc.Create(ctx, "555-0100", "hunter2", "MANAGER")
		assert.ErrorIs(t, err, entity.ErrValidation)
	})
}

func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService(t)

	created, err := svc.Create(ctx, "555-0100", "hunter2", entity.RoleStaff)
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := svc.Authenticate(ctx, "555-0100", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "555-0100", "wrong")
		assert.ErrorIs(t, err, entity.ErrForbidden)
	})

	t.Run("unknown phone", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "555-9999", "hunter2")
		assert.ErrorIs(t, err, entity.ErrForbidden)
	})
}

func TestUserService_UpdateRole(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService(t)

	created, err := svc.Create(ctx, "555-0100", "hunter2", entity.RoleStaff)
	require.NoError(t, err)

	user, err := svc.UpdateRole(ctx, created.ID, entity.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	_, err = svc.UpdateRole(ctx, created.ID, "MANAGER")
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, users := newUserService(t)

	created, err := svc.Create(ctx, "555-0100", "hunter2", entity.RoleStaff)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.NotContains(t, users.users, created.ID)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), entity.ErrNotFound)
}

func TestUserService_StageAssignments(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService(t)

	alice, err := svc.Create(ctx, "555-0101", "pw", entity.RoleStaff)
	require.NoError(t, err)
	bob, err := svc.Create(ctx, "555-0102", "pw", entity.RoleStaff)
	require.NoError(t, err)

	require.NoError(t, svc.SetStageUsers(ctx, stage.StageDesign, []string{alice.ID, bob.ID}))
	require.NoError(t, svc.SetStageUsers(ctx, stage.StagePrinting, []string{bob.ID}))

	stages, err := svc.StagesWithUsers(ctx)
	require.NoError(t, err)
	require.Len(t, stages, len(stage.Default().Stages()))

	byStage := make(map[stage.Stage][]*entity.User)
	for _, su := range stages {
		byStage[su.Stage] = su.Users
	}
	assert.Len(t, byStage[stage.StageDesign], 2)
	require.Len(t, byStage[stage.StagePrinting], 1)
	assert.Equal(t, bob.ID, byStage[stage.StagePrinting][0].ID)
	assert.Empty(t, byStage[stage.StageWaiting])

	// Replacement removes users no longer listed
	require.NoError(t, svc.SetStageUsers(ctx, stage.StageDesign, []string{bob.ID}))
	refreshed, err := svc.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.AssignedTo(stage.StageDesign))

	t.Run("rejects unknown stage", func(t *testing.T) {
		err := svc.SetStageUsers(ctx, stage.Stage("SHIPPED"), nil)
		assert.ErrorIs(t, err, entity.ErrInvalidStage)
	})

	t.Run("rejects unknown user", func(t *testing.T) {
		err := svc.SetStageUsers(ctx, stage.StageCut, []string{"ghost"})
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})
}
