package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentledger/internal/models"
	apperrors "rentledger/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func sampleProperty() *models.Property {
	return &models.Property{
		Name:    "Riverside",
		Address: "1 Main St",
		Floors: []models.Floor{
			{FloorNumber: 2, Units: []models.Unit{
				{UnitNumber: "201", MonthlyRent: decimal.NewFromInt(900)},
			}},
			{FloorNumber: 1, Units: []models.Unit{
				{UnitNumber: "101", MonthlyRent: decimal.NewFromInt(800)},
				{UnitNumber: "102", MonthlyRent: decimal.NewFromInt(850)},
			}},
		},
	}
}

func TestMemoryStore_PropertyTree(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	property := sampleProperty()
	require.NoError(t, store.Properties().Create(ctx, property))
	require.NotZero(t, property.ID)

	got, err := store.Properties().GetByID(ctx, property.ID)
	require.NoError(t, err)
	require.Len(t, got.Floors, 2)
	assert.Equal(t, 1, got.Floors[0].FloorNumber)
	require.Len(t, got.Floors[0].Units, 2)
	assert.Equal(t, "101", got.Floors[0].Units[0].UnitNumber)
	assert.Equal(t, property.ID, got.Floors[0].Units[0].PropertyID)
	assert.Equal(t, got.Floors[0].ID, got.Floors[0].Units[0].FloorID)

	units, err := store.Units().ListByProperty(ctx, property.ID)
	require.NoError(t, err)
	assert.Len(t, units, 3)
}

func TestMemoryStore_DuplicateFloorRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	property := sampleProperty()
	require.NoError(t, store.Properties().Create(ctx, property))

	err := store.Floors().Create(ctx, &models.Floor{PropertyID: property.ID, FloorNumber: 1})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestMemoryStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Properties().GetByID(ctx, 42)
	assert.True(t, errors.Is(err, apperrors.ErrPropertyNotFound))
	_, err = store.Units().GetByID(ctx, 42)
	assert.True(t, errors.Is(err, apperrors.ErrUnitNotFound))
	_, err = store.Tenants().GetByID(ctx, 42)
	assert.True(t, errors.Is(err, apperrors.ErrTenantNotFound))
}

func TestMemoryStore_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	property := sampleProperty()
	require.NoError(t, store.Properties().Create(ctx, property))
	unitID := property.Floors[1].Units[0].ID

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx Store) error {
		tenant := &models.Tenant{Name: "Ann", UnitID: unitID}
		if err := tx.Tenants().Create(ctx, tenant); err != nil {
			return err
		}
		if err := tx.Units().SetOccupancy(ctx, unitID, &tenant.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	unit, err := store.Units().GetByID(ctx, unitID)
	require.NoError(t, err)
	assert.False(t, unit.IsOccupied)
	assert.Nil(t, unit.TenantID)

	_, total, err := store.Tenants().List(ctx, TenantFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMemoryStore_TransactionCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	property := sampleProperty()
	require.NoError(t, store.Properties().Create(ctx, property))
	unitID := property.Floors[1].Units[0].ID

	var tenantID uint
	err := store.Transaction(ctx, func(tx Store) error {
		tenant := &models.Tenant{Name: "Ann", UnitID: unitID}
		if err := tx.Tenants().Create(ctx, tenant); err != nil {
			return err
		}
		tenantID = tenant.ID
		return tx.Units().SetOccupancy(ctx, unitID, &tenant.ID)
	})
	require.NoError(t, err)

	unit, err := store.Units().GetByID(ctx, unitID)
	require.NoError(t, err)
	assert.True(t, unit.IsOccupied)
	require.NotNil(t, unit.TenantID)
	assert.Equal(t, tenantID, *unit.TenantID)
}

func TestMemoryStore_ListByPaymentMonth(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	feb := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	payments := []*models.Payment{
		{Reference: "a", PropertyID: 1, PaymentMonth: feb, PaymentDate: mar.AddDate(0, 0, 3)},
		{Reference: "b", PropertyID: 2, PaymentMonth: feb, PaymentDate: feb},
		{Reference: "c", PropertyID: 1, PaymentMonth: mar, PaymentDate: mar},
	}
	for _, p := range payments {
		require.NoError(t, store.Payments().Create(ctx, p))
	}

	got, err := store.Payments().ListByPaymentMonth(ctx, nil, feb, mar)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	propertyID := uint(1)
	got, err = store.Payments().ListByPaymentMonth(ctx, &propertyID, feb, mar)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Reference)

	err = store.Payments().Create(ctx, &models.Payment{Reference: "a"})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestMemoryStore_ListByPropertyNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	day := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	for i, ref := range []string{"old", "new", "mid"} {
		offset := map[int]int{0: 0, 1: 20, 2: 10}[i]
		require.NoError(t, store.Payments().Create(ctx, &models.Payment{
			Reference: ref, PropertyID: 7, UnitID: 3, PaymentDate: day.AddDate(0, 0, offset),
		}))
	}

	got, total, err := store.Payments().ListByProperty(ctx, 7, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].Reference)
	assert.Equal(t, "mid", got[1].Reference)

	history, err := store.Payments().ListByUnit(ctx, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "old", history[2].Reference)
}
