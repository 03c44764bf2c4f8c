package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"rentledger/internal/models"
	apperrors "rentledger/pkg/errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MemoryStore 内存实现，用于 DB_DRIVER=memory 和测试
//
// Transaction 在状态副本上执行，成功后整体替换，失败时丢弃副本
type MemoryStore struct {
	mu    *sync.Mutex
	state *memState
	inTx  bool
}

type memState struct {
	nextID     uint
	properties map[uint]models.Property
	floors     map[uint]models.Floor
	units      map[uint]models.Unit
	tenants    map[uint]models.Tenant
	payments   map[uint]models.Payment
}

func newMemState() *memState {
	return &memState{
		properties: make(map[uint]models.Property),
		floors:     make(map[uint]models.Floor),
		units:      make(map[uint]models.Unit),
		tenants:    make(map[uint]models.Tenant),
		payments:   make(map[uint]models.Payment),
	}
}

func (st *memState) clone() *memState {
	c := newMemState()
	c.nextID = st.nextID
	for k, v := range st.properties {
		c.properties[k] = v
	}
	for k, v := range st.floors {
		c.floors[k] = v
	}
	for k, v := range st.units {
		c.units[k] = v
	}
	for k, v := range st.tenants {
		c.tenants[k] = v
	}
	for k, v := range st.payments {
		c.payments[k] = v
	}
	return c
}

func (st *memState) newID() uint {
	st.nextID++
	return st.nextID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mu: &sync.Mutex{}, state: newMemState()}
}

// lock 事务内已持有锁，直接返回空函数
func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) Properties() PropertyRepository { return &memPropertyRepo{s: s} }
func (s *MemoryStore) Floors() FloorRepository        { return &memFloorRepo{s: s} }
func (s *MemoryStore) Units() UnitRepository          { return &memUnitRepo{s: s} }
func (s *MemoryStore) Tenants() TenantRepository      { return &memTenantRepo{s: s} }
func (s *MemoryStore) Payments() PaymentRepository    { return &memPaymentRepo{s: s} }

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &MemoryStore{mu: s.mu, state: s.state.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// ========== 物业 ==========

type memPropertyRepo struct {
	s *MemoryStore
}

// tree 组装楼层（按楼层号）和单元（按ID）
func (st *memState) tree(p models.Property) *models.Property {
	out := p
	out.Floors = nil
	for _, f := range st.floors {
		if f.PropertyID != p.ID {
			continue
		}
		floor := f
		floor.Units = nil
		for _, u := range st.units {
			if u.FloorID == f.ID {
				floor.Units = append(floor.Units, u)
			}
		}
		sort.Slice(floor.Units, func(i, j int) bool { return floor.Units[i].ID < floor.Units[j].ID })
		out.Floors = append(out.Floors, floor)
	}
	sort.Slice(out.Floors, func(i, j int) bool { return out.Floors[i].FloorNumber < out.Floors[j].FloorNumber })
	return &out
}

func (st *memState) insertFloor(floor *models.Floor, now time.Time) error {
	for _, f := range st.floors {
		if f.PropertyID == floor.PropertyID && f.FloorNumber == floor.FloorNumber {
			return fmt.Errorf("%w: floor %d", gorm.ErrDuplicatedKey, floor.FloorNumber)
		}
	}
	floor.ID = st.newID()
	floor.CreatedAt, floor.UpdatedAt = now, now
	stored := *floor
	stored.Units = nil
	st.floors[floor.ID] = stored
	return nil
}

func (st *memState) insertUnit(unit *models.Unit, now time.Time) {
	unit.ID = st.newID()
	unit.CreatedAt, unit.UpdatedAt = now, now
	st.units[unit.ID] = *unit
}

func (r *memPropertyRepo) Create(_ context.Context, property *models.Property) error {
	defer r.s.lock()()
	st := r.s.state.clone()
	now := time.Now()

	property.ID = st.newID()
	property.CreatedAt, property.UpdatedAt = now, now
	stored := *property
	stored.Floors = nil
	st.properties[property.ID] = stored

	for i := range property.Floors {
		floor := &property.Floors[i]
		floor.PropertyID = property.ID
		if err := st.insertFloor(floor, now); err != nil {
			return err
		}
		for j := range floor.Units {
			unit := &floor.Units[j]
			unit.PropertyID = property.ID
			unit.FloorID = floor.ID
			st.insertUnit(unit, now)
		}
	}

	r.s.state = st
	return nil
}

func (r *memPropertyRepo) GetByID(_ context.Context, id uint) (*models.Property, error) {
	defer r.s.lock()()
	p, ok := r.s.state.properties[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", apperrors.ErrPropertyNotFound, id)
	}
	return r.s.state.tree(p), nil
}

func (r *memPropertyRepo) GetByIDs(_ context.Context, ids []uint) ([]*models.Property, error) {
	defer r.s.lock()()
	properties := []*models.Property{}
	for _, id := range ids {
		if p, ok := r.s.state.properties[id]; ok {
			properties = append(properties, r.s.state.tree(p))
		}
	}
	sort.Slice(properties, func(i, j int) bool { return properties[i].ID < properties[j].ID })
	return properties, nil
}

func (r *memPropertyRepo) List(_ context.Context, keyword string, offset, limit int) ([]*models.Property, int64, error) {
	defer r.s.lock()()
	var matched []*models.Property
	for _, p := range r.s.state.properties {
		if keyword != "" && !containsFold(p.Name, keyword) && !containsFold(p.Address, keyword) {
			continue
		}
		matched = append(matched, r.s.state.tree(p))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func (r *memPropertyRepo) UpdateDetails(_ context.Context, id uint, name, address string) error {
	defer r.s.lock()()
	p, ok := r.s.state.properties[id]
	if !ok {
		return fmt.Errorf("%w: id %d", apperrors.ErrPropertyNotFound, id)
	}
	p.Name, p.Address, p.UpdatedAt = name, address, time.Now()
	r.s.state.properties[id] = p
	return nil
}

func (r *memPropertyRepo) Delete(_ context.Context, id uint) error {
	defer r.s.lock()()
	st := r.s.state
	if _, ok := st.properties[id]; !ok {
		return fmt.Errorf("%w: id %d", apperrors.ErrPropertyNotFound, id)
	}
	for uid, u := range st.units {
		if u.PropertyID == id {
			delete(st.units, uid)
		}
	}
	for fid, f := range st.floors {
		if f.PropertyID == id {
			delete(st.floors, fid)
		}
	}
	delete(st.properties, id)
	return nil
}

// ========== 楼层 ==========

type memFloorRepo struct {
	s *MemoryStore
}

func (r *memFloorRepo) Create(_ context.Context, floor *models.Floor) error {
	defer r.s.lock()()
	if _, ok := r.s.state.properties[floor.PropertyID]; !ok {
		return fmt.Errorf("%w: id %d", apperrors.ErrPropertyNotFound, floor.PropertyID)
	}
	return r.s.state.insertFloor(floor, time.Now())
}

func (r *memFloorRepo) GetByID(_ context.Context, id uint) (*models.Floor, error) {
	defer r.s.lock()()
	f, ok := r.s.state.floors[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", apperrors.ErrFloorNotFound, id)
	}
	return &f, nil
}

// ========== 单元 ==========

type memUnitRepo struct {
	s *MemoryStore
}

func (r *memUnitRepo) Create(_ context.Context, unit *models.Unit) error {
	defer r.s.lock()()
	if _, ok := r.s.state.floors[unit.FloorID]; !ok {
		return fmt.Errorf("%w: id %d", apperrors.ErrFloorNotFound, unit.FloorID)
	}
	r.s.state.insertUnit(unit, time.Now())
	return nil
}

func (r *memUnitRepo) GetByID(_ context.Context, id uint) (*models.Unit, error) {
	defer r.s.lock()()
	u, ok := r.s.state.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", apperrors.ErrUnitNotFound, id)
	}
	return &u, nil
}

// GetByIDForUpdate 内存实现的写入已由 Transaction 串行化
func (r *memUnitRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Unit, error) {
	return r.GetByID(ctx, id)
}

func (r *memUnitRepo) ListByProperty(_ context.Context, propertyID uint) ([]*models.Unit, error) {
	defer r.s.lock()()
	units := []*models.Unit{}
	for _, u := range r.s.state.units {
		if u.PropertyID == propertyID {
			unit := u
			units = append(units, &unit)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units, nil
}

func (r *memUnitRepo) UpdateDetails(_ context.Context, id uint, unitNumber string, monthlyRent decimal.Decimal) error {
	defer r.s.lock()()
	u, ok := r.s.state.units[id]
	if !ok {
		return fmt.Errorf("%w: id %d", apperrors.ErrUnitNotFound, id)
	}
	u.UnitNumber, u.MonthlyRent, u.UpdatedAt = unitNumber, monthlyRent, time.Now()
	r.s.state.units[id] = u
	return nil
}

func (r *memUnitRepo) SetOccupancy(_ context.Context, id uint, tenantID *uint) error {
	defer r.s.lock()()
	u, ok := r.s.state.units[id]
	if !ok {
		return fmt.Errorf("%w: id %d", apperrors.ErrUnitNotFound, id)
	}
	if tenantID != nil {
		tid := *tenantID
		u.IsOccupied, u.TenantID = true, &tid
	} else {
		u.IsOccupied, u.TenantID = false, nil
	}
	u.UpdatedAt = time.Now()
	r.s.state.units[id] = u
	return nil
}

// ========== 租客 ==========

type memTenantRepo struct {
	s *MemoryStore
}

func (r *memTenantRepo) Create(_ context.Context, tenant *models.Tenant) error {
	defer r.s.lock()()
	now := time.Now()
	tenant.ID = r.s.state.newID()
	tenant.CreatedAt, tenant.UpdatedAt = now, now
	if tenant.Status == "" {
		tenant.Status = models.TenantStatusActive
	}
	r.s.state.tenants[tenant.ID] = *tenant
	return nil
}

func (r *memTenantRepo) GetByID(_ context.Context, id uint) (*models.Tenant, error) {
	defer r.s.lock()()
	t, ok := r.s.state.tenants[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", apperrors.ErrTenantNotFound, id)
	}
	return &t, nil
}

func (r *memTenantRepo) List(_ context.Context, filter TenantFilter, offset, limit int) ([]*models.Tenant, int64, error) {
	defer r.s.lock()()
	var matched []*models.Tenant
	for _, t := range r.s.state.tenants {
		if filter.PropertyID != nil && t.PropertyID != *filter.PropertyID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Keyword != "" && !containsFold(t.Name, filter.Keyword) &&
			!containsFold(t.Email, filter.Keyword) && !containsFold(t.UnitNumber, filter.Keyword) {
			continue
		}
		tenant := t
		matched = append(matched, &tenant)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func (r *memTenantRepo) ListExpired(_ context.Context, asOf time.Time) ([]*models.Tenant, error) {
	defer r.s.lock()()
	expired := []*models.Tenant{}
	for _, t := range r.s.state.tenants {
		if t.Status == models.TenantStatusActive && t.LeaseEndDate.Before(asOf) {
			tenant := t
			expired = append(expired, &tenant)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].LeaseEndDate.Before(expired[j].LeaseEndDate) })
	return expired, nil
}

func (r *memTenantRepo) MarkPast(_ context.Context, id uint, movedOutAt time.Time) error {
	defer r.s.lock()()
	t, ok := r.s.state.tenants[id]
	if !ok {
		return fmt.Errorf("%w: id %d", apperrors.ErrTenantNotFound, id)
	}
	at := movedOutAt
	t.Status, t.MovedOutAt, t.UpdatedAt = models.TenantStatusPast, &at, time.Now()
	r.s.state.tenants[id] = t
	return nil
}

func (r *memTenantRepo) UpdateUnitNumber(_ context.Context, id uint, unitNumber string) error {
	defer r.s.lock()()
	t, ok := r.s.state.tenants[id]
	if !ok {
		return fmt.Errorf("%w: id %d", apperrors.ErrTenantNotFound, id)
	}
	t.UnitNumber, t.UpdatedAt = unitNumber, time.Now()
	r.s.state.tenants[id] = t
	return nil
}

// ========== 支付 ==========

type memPaymentRepo struct {
	s *MemoryStore
}

func (r *memPaymentRepo) Create(_ context.Context, payment *models.Payment) error {
	defer r.s.lock()()
	for _, p := range r.s.state.payments {
		if p.Reference == payment.Reference {
			return fmt.Errorf("%w: payment reference %s", gorm.ErrDuplicatedKey, payment.Reference)
		}
	}
	now := time.Now()
	payment.ID = r.s.state.newID()
	payment.CreatedAt, payment.UpdatedAt = now, now
	r.s.state.payments[payment.ID] = *payment
	return nil
}

func (r *memPaymentRepo) GetByID(_ context.Context, id uint) (*models.Payment, error) {
	defer r.s.lock()()
	p, ok := r.s.state.payments[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", apperrors.ErrPaymentNotFound, id)
	}
	return &p, nil
}

// newestFirst 按支付日期倒序，同日按ID倒序
func newestFirst(payments []*models.Payment) {
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaymentDate.Equal(payments[j].PaymentDate) {
			return payments[i].PaymentDate.After(payments[j].PaymentDate)
		}
		return payments[i].ID > payments[j].ID
	})
}

func (r *memPaymentRepo) ListByProperty(_ context.Context, propertyID uint, offset, limit int) ([]*models.Payment, int64, error) {
	defer r.s.lock()()
	var matched []*models.Payment
	for _, p := range r.s.state.payments {
		if p.PropertyID == propertyID {
			payment := p
			matched = append(matched, &payment)
		}
	}
	newestFirst(matched)
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func (r *memPaymentRepo) ListByUnit(_ context.Context, unitID uint) ([]*models.Payment, error) {
	defer r.s.lock()()
	matched := []*models.Payment{}
	for _, p := range r.s.state.payments {
		if p.UnitID == unitID {
			payment := p
			matched = append(matched, &payment)
		}
	}
	newestFirst(matched)
	return matched, nil
}

func (r *memPaymentRepo) ListByPaymentMonth(_ context.Context, propertyID *uint, from, to time.Time) ([]*models.Payment, error) {
	defer r.s.lock()()
	matched := []*models.Payment{}
	for _, p := range r.s.state.payments {
		if p.PaymentMonth.Before(from) || !p.PaymentMonth.Before(to) {
			continue
		}
		if propertyID != nil && p.PropertyID != *propertyID {
			continue
		}
		payment := p
		matched = append(matched, &payment)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].PaymentMonth.Equal(matched[j].PaymentMonth) {
			return matched[i].PaymentMonth.Before(matched[j].PaymentMonth)
		}
		return matched[i].ID < matched[j].ID
	})
	return matched, nil
}
