package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rentledger/internal/models"
	"rentledger/internal/repository"
	"rentledger/pkg/queue"

	"github.com/stretchr/testify/require"
)

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type testEnv struct {
	store      repository.Store
	publisher  *recordingPublisher
	occupancy  *OccupancyService
	payments   *PaymentService
	reports    *ReportService
	properties *PropertyService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStore(t, repository.NewMemoryStore())
}

func newTestEnvWithStore(t *testing.T, store repository.Store) *testEnv {
	t.Helper()
	publisher := &recordingPublisher{}
	occupancy := NewOccupancyService(store, publisher)
	return &testEnv{
		store:      store,
		publisher:  publisher,
		occupancy:  occupancy,
		payments:   NewPaymentService(store, occupancy, publisher),
		reports:    NewReportService(store),
		properties: NewPropertyService(store),
	}
}

// seedProperty 两层楼：101(800)、102(1200)、201(1500)
func (e *testEnv) seedProperty(t *testing.T, name string) *models.Property {
	t.Helper()
	property, err := e.properties.CreateProperty(context.Background(), CreatePropertyInput{
		Name:    name,
		Address: name + " Road",
		Floors: []FloorInput{
			{FloorNumber: 1, Units: []UnitInput{
				{UnitNumber: "101", MonthlyRent: dec("800")},
				{UnitNumber: "102", MonthlyRent: dec("1200")},
			}},
			{FloorNumber: 2, Units: []UnitInput{
				{UnitNumber: "201", MonthlyRent: dec("1500")},
			}},
		},
	})
	require.NoError(t, err)
	return property
}

func (e *testEnv) assign(t *testing.T, propertyID uint, unitNumber, name string) *models.Tenant {
	t.Helper()
	tenant, err := e.occupancy.AssignTenant(context.Background(), AssignTenantInput{
		PropertyID:     propertyID,
		UnitNumber:     unitNumber,
		Name:           name,
		Email:          name + "@example.com",
		PhoneNumber:    "555-0100",
		LeaseStartDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		LeaseEndDate:   time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		DepositAmount:  dec("500"),
	})
	require.NoError(t, err)
	return tenant
}

func (e *testEnv) pay(t *testing.T, propertyID uint, unitNumber, amount string, month time.Month, paidOn time.Time) *models.Payment {
	t.Helper()
	payment, err := e.payments.RecordPayment(context.Background(), RecordPaymentInput{
		PropertyID:    propertyID,
		UnitNumber:    unitNumber,
		Amount:        dec(amount),
		PaymentMonth:  time.Date(2024, month, 1, 0, 0, 0, 0, time.UTC),
		PaymentDate:   paidOn,
		PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)
	return payment
}

func unitByNumber(t *testing.T, store repository.Store, propertyID uint, number string) *models.Unit {
	t.Helper()
	units, err := store.Units().ListByProperty(context.Background(), propertyID)
	require.NoError(t, err)
	for _, u := range units {
		if u.UnitNumber == number {
			return u
		}
	}
	t.Fatalf("unit %s not found", number)
	return nil
}

var errInjected = errors.New("injected fault")

// faultStore 在事务内按开关让指定写操作失败，模拟两次写之间崩溃
type faultStore struct {
	repository.Store
	failSetOccupancy bool
	failTenantCreate bool
	failMarkPast     bool
}

func (s *faultStore) Units() repository.UnitRepository {
	return &faultUnits{UnitRepository: s.Store.Units(), fs: s}
}

func (s *faultStore) Tenants() repository.TenantRepository {
	return &faultTenants{TenantRepository: s.Store.Tenants(), fs: s}
}

func (s *faultStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(&faultStore{
			Store:            tx,
			failSetOccupancy: s.failSetOccupancy,
			failTenantCreate: s.failTenantCreate,
			failMarkPast:     s.failMarkPast,
		})
	})
}

type faultUnits struct {
	repository.UnitRepository
	fs *faultStore
}

func (u *faultUnits) SetOccupancy(ctx context.Context, id uint, tenantID *uint) error {
	if u.fs.failSetOccupancy {
		return errInjected
	}
	return u.UnitRepository.SetOccupancy(ctx, id, tenantID)
}

type faultTenants struct {
	repository.TenantRepository
	fs *faultStore
}

func (r *faultTenants) Create(ctx context.Context, tenant *models.Tenant) error {
	if r.fs.failTenantCreate {
		return errInjected
	}
	return r.TenantRepository.Create(ctx, tenant)
}

func (r *faultTenants) MarkPast(ctx context.Context, id uint, movedOutAt time.Time) error {
	if r.fs.failMarkPast {
		return errInjected
	}
	return r.TenantRepository.MarkPast(ctx, id, movedOutAt)
}
