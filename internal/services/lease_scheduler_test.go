package services

import (
	"context"
	"testing"
	"time"

	"rentledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseExpiryScheduler_RunOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	property := env.seedProperty(t, "Oak")

	// fixture 租约在 2024-12-31 到期
	expiring := env.assign(t, property.ID, "101", "ann")
	_, err := env.occupancy.AssignTenant(ctx, AssignTenantInput{
		PropertyID:     property.ID,
		UnitNumber:     "102",
		Name:           "bob",
		LeaseStartDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		LeaseEndDate:   time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	scheduler := NewLeaseExpiryScheduler(env.store, env.occupancy, "")
	now := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	ended, err := scheduler.RunOnce(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, ended)

	tenant, err := env.occupancy.GetTenant(ctx, expiring.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TenantStatusPast, tenant.Status)
	assert.False(t, unitByNumber(t, env.store, property.ID, "101").IsOccupied)
	assert.True(t, unitByNumber(t, env.store, property.ID, "102").IsOccupied)

	ended, err = scheduler.RunOnce(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, ended)
}

func TestLeaseExpiryScheduler_StartStop(t *testing.T) {
	env := newTestEnv(t)

	scheduler := NewLeaseExpiryScheduler(env.store, env.occupancy, "@every 1h")
	require.NoError(t, scheduler.Start())
	assert.Error(t, scheduler.Start())
	scheduler.Stop()
	scheduler.Stop()

	bad := NewLeaseExpiryScheduler(env.store, env.occupancy, "not a cron")
	assert.Error(t, bad.Start())
}

func TestLeaseExpiryScheduler_RestartRegistersOnce(t *testing.T) {
	env := newTestEnv(t)

	scheduler := NewLeaseExpiryScheduler(env.store, env.occupancy, "@every 1h")
	require.NoError(t, scheduler.Start())
	scheduler.Stop()
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	assert.Len(t, scheduler.cron.Entries(), 1)
}
