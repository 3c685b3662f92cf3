package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"triphub/internal/models"
)

func TestReconcileAllSweepsEveryUser(t *testing.T) {
	env := newTestEnv(t)
	env.actions.seed(1, models.ActionProfileCompleted, 5, nil)
	env.actions.seed(2, models.ActionProfileCompleted, 5, nil)
	env.actions.seed(2, models.ActionReviewCreated, 10, nil)

	svc := NewReconciliationService(env.users, env.service, 0, zap.NewNop())

	report, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.NoError(t, report.Errors)

	state, err := env.progression.GetState(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 15, state.Points)
}

func TestReconcileAllIsolatesPerUserFailure(t *testing.T) {
	env := newTestEnv(t)
	env.actions.seed(1, models.ActionProfileCompleted, 5, nil)
	env.actions.failSumFor[2] = true

	svc := NewReconciliationService(env.users, env.service, 0, zap.NewNop())

	report, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Error(t, report.Errors)
	assert.Contains(t, report.Errors.Error(), "user 2")

	// The healthy user still converged.
	state, err := env.progression.GetState(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, state.Points)
}

func TestReconcileAllSkipsVanishedUsers(t *testing.T) {
	env := newTestEnv(t)
	env.users.ids = []int64{1, 404}

	svc := NewReconciliationService(env.users, env.service, 0, zap.NewNop())

	report, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
}

func TestReconcileAllStopsOnCancelledContext(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewReconciliationService(env.users, env.service, 0, zap.NewNop())

	report, err := svc.ReconcileAll(ctx)
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Succeeded+report.Failed)
}
