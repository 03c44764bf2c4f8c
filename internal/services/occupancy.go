package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentledger/internal/models"
	"rentledger/internal/repository"
	apperrors "rentledger/pkg/errors"
	"rentledger/pkg/logger"
	"rentledger/pkg/queue"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// OccupiedUnit 已出租单元及其所在楼层
type OccupiedUnit struct {
	Floor *models.Floor
	Unit  *models.Unit
}

// PropertyFinancials 物业出租概况
type PropertyFinancials struct {
	PropertyID          uint            `json:"property_id"`
	TotalUnits          int             `json:"total_units"`
	OccupiedUnits       int             `json:"occupied_units"`
	VacantUnits         int             `json:"vacant_units"`
	OccupancyRate       int             `json:"occupancy_rate"`
	ExpectedMonthlyRent decimal.Decimal `json:"expected_monthly_rent"`
	// 全部单元满租时的月租金
	PotentialMonthlyRent decimal.Decimal `json:"potential_monthly_rent"`
}

// AssignTenantInput 租客入住参数
type AssignTenantInput struct {
	PropertyID       uint
	UnitNumber       string
	Name             string
	Email            string
	PhoneNumber      string
	IDNumber         string
	LeaseStartDate   time.Time
	LeaseEndDate     time.Time
	DepositAmount    decimal.Decimal
	EmergencyContact datatypes.JSON
}

// OccupancyService 物业树查询与占用状态维护
//
// 单元的 IsOccupied/TenantID 只在这里通过 UnitRepository.SetOccupancy 成对写入，
// 与租客记录的变更处于同一事务
type OccupancyService struct {
	store     repository.Store
	publisher EventPublisher
}

func NewOccupancyService(store repository.Store, publisher EventPublisher) *OccupancyService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &OccupancyService{
		store:     store,
		publisher: publisher,
	}
}

// FindUnit 在物业树中按单元编号查找
//
// 编号在物业内出现多次时返回 ErrDuplicateUnitNumber，不做任何取舍
func FindUnit(property *models.Property, unitNumber string) (*models.Floor, *models.Unit, error) {
	unitNumber = strings.TrimSpace(unitNumber)

	var (
		foundFloor *models.Floor
		foundUnit  *models.Unit
		matches    int
	)
	for i := range property.Floors {
		floor := &property.Floors[i]
		for j := range floor.Units {
			if floor.Units[j].UnitNumber == unitNumber {
				foundFloor, foundUnit = floor, &floor.Units[j]
				matches++
			}
		}
	}

	switch matches {
	case 0:
		return nil, nil, fmt.Errorf("%w: unit %q in property %d", apperrors.ErrUnitNotFound, unitNumber, property.ID)
	case 1:
		return foundFloor, foundUnit, nil
	default:
		return nil, nil, fmt.Errorf("%w: unit %q appears %d times in property %d",
			apperrors.ErrDuplicateUnitNumber, unitNumber, matches, property.ID)
	}
}

// OccupiedUnits 按楼层顺序列出已出租单元
func OccupiedUnits(property *models.Property) []OccupiedUnit {
	var result []OccupiedUnit
	for i := range property.Floors {
		floor := &property.Floors[i]
		for j := range floor.Units {
			if floor.Units[j].IsOccupied {
				result = append(result, OccupiedUnit{Floor: floor, Unit: &floor.Units[j]})
			}
		}
	}
	return result
}

// ExpectedMonthlyRent 已出租单元的月租金合计
func ExpectedMonthlyRent(property *models.Property) decimal.Decimal {
	total := decimal.Zero
	for _, occupied := range OccupiedUnits(property) {
		total = total.Add(occupied.Unit.MonthlyRent)
	}
	return total
}

// Financials 汇总单个物业的出租情况
func Financials(property *models.Property) PropertyFinancials {
	result := PropertyFinancials{
		PropertyID:          property.ID,
		ExpectedMonthlyRent: ExpectedMonthlyRent(property),
	}
	result.PotentialMonthlyRent = decimal.Zero
	for _, floor := range property.Floors {
		result.TotalUnits += len(floor.Units)
		for _, unit := range floor.Units {
			result.PotentialMonthlyRent = result.PotentialMonthlyRent.Add(unit.MonthlyRent)
		}
	}
	result.OccupiedUnits = len(OccupiedUnits(property))
	result.VacantUnits = result.TotalUnits - result.OccupiedUnits
	result.OccupancyRate = percentOf(decimal.NewFromInt(int64(result.OccupiedUnits)), decimal.NewFromInt(int64(result.TotalUnits)))
	return result
}

// ResolveUnit 加载物业树并定位单元
func (s *OccupancyService) ResolveUnit(ctx context.Context, propertyID uint, unitNumber string) (*models.Property, *models.Unit, error) {
	property, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, nil, err
	}
	_, unit, err := FindUnit(property, unitNumber)
	if err != nil {
		return nil, nil, err
	}
	return property, unit, nil
}

// GetFinancials 物业出租概况
func (s *OccupancyService) GetFinancials(ctx context.Context, propertyID uint) (*PropertyFinancials, error) {
	property, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	result := Financials(property)
	return &result, nil
}

// AssignTenant 创建租客并将单元标记为已出租，两步在同一事务内完成
func (s *OccupancyService) AssignTenant(ctx context.Context, input AssignTenantInput) (*models.Tenant, error) {
	if !input.LeaseEndDate.After(input.LeaseStartDate) {
		return nil, fmt.Errorf("%w: start %s, end %s", apperrors.ErrInvalidLease,
			input.LeaseStartDate.Format("2006-01-02"), input.LeaseEndDate.Format("2006-01-02"))
	}
	if input.DepositAmount.IsNegative() || !models.FitsMoneyScale(input.DepositAmount) {
		return nil, fmt.Errorf("%w: deposit %s", apperrors.ErrInvalidAmount, input.DepositAmount.String())
	}

	var tenant *models.Tenant
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		property, err := tx.Properties().GetByID(ctx, input.PropertyID)
		if err != nil {
			return err
		}
		floor, found, err := FindUnit(property, input.UnitNumber)
		if err != nil {
			return err
		}

		// 加锁后重新读取，避免并发入住同一单元
		unit, err := tx.Units().GetByIDForUpdate(ctx, found.ID)
		if err != nil {
			return err
		}
		if unit.IsOccupied {
			return fmt.Errorf("%w: unit %s in property %d", apperrors.ErrUnitOccupied, unit.UnitNumber, property.ID)
		}

		tenant = &models.Tenant{
			Name:             strings.TrimSpace(input.Name),
			Email:            strings.TrimSpace(input.Email),
			PhoneNumber:      strings.TrimSpace(input.PhoneNumber),
			IDNumber:         strings.TrimSpace(input.IDNumber),
			PropertyID:       property.ID,
			UnitID:           unit.ID,
			UnitNumber:       unit.UnitNumber,
			FloorNumber:      floor.FloorNumber,
			LeaseStartDate:   input.LeaseStartDate,
			LeaseEndDate:     input.LeaseEndDate,
			DepositAmount:    input.DepositAmount,
			RentAtSigning:    unit.MonthlyRent,
			EmergencyContact: input.EmergencyContact,
			Status:           models.TenantStatusActive,
		}
		if err := tx.Tenants().Create(ctx, tenant); err != nil {
			return err
		}
		return tx.Units().SetOccupancy(ctx, unit.ID, &tenant.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"tenant_id":   tenant.ID,
		"property_id": tenant.PropertyID,
		"unit_id":     tenant.UnitID,
	}).Info("租客入住")

	publishEvent(ctx, s.publisher, queue.Event{
		Type:       queue.EventTenantAssigned,
		PropertyID: tenant.PropertyID,
		UnitID:     tenant.UnitID,
		Payload: TenancyEvent{
			TenantID:   tenant.ID,
			PropertyID: tenant.PropertyID,
			UnitID:     tenant.UnitID,
			UnitNumber: tenant.UnitNumber,
			Status:     tenant.Status,
		},
	})
	return tenant, nil
}

// Vacate 清空单元占用，当前租客转为 past
func (s *OccupancyService) Vacate(ctx context.Context, unitID uint, at time.Time) (*models.Tenant, error) {
	var tenant *models.Tenant
	var unit *models.Unit
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		unit, err = tx.Units().GetByIDForUpdate(ctx, unitID)
		if err != nil {
			return err
		}
		tenant, err = vacateUnit(ctx, tx, unit, at)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterVacate(ctx, unit, tenant)
	return tenant, nil
}

// EndTenancy 结束租约
//
// 单元仍指向该租客时一并清空占用；单元已不存在或已指向他人时只更新租客状态
func (s *OccupancyService) EndTenancy(ctx context.Context, tenantID uint, at time.Time) (*models.Tenant, error) {
	var tenant *models.Tenant
	var vacated *models.Unit
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		tenant, err = tx.Tenants().GetByID(ctx, tenantID)
		if err != nil {
			return err
		}
		if !tenant.IsActive() {
			return fmt.Errorf("%w: tenant %d", apperrors.ErrTenantInactive, tenant.ID)
		}

		unit, err := tx.Units().GetByIDForUpdate(ctx, tenant.UnitID)
		if err != nil && !errors.Is(err, apperrors.ErrUnitNotFound) {
			return err
		}
		if unit != nil && unit.TenantID != nil && *unit.TenantID == tenant.ID {
			vacated = unit
			tenant, err = vacateUnit(ctx, tx, unit, at)
			return err
		}

		if err := tx.Tenants().MarkPast(ctx, tenant.ID, at); err != nil {
			return err
		}
		tenant.Status = models.TenantStatusPast
		tenant.MovedOutAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}

	if vacated != nil {
		s.afterVacate(ctx, vacated, tenant)
	} else {
		logger.GetLogger().WithField("tenant_id", tenant.ID).Warn("租约结束时单元未指向该租客，仅更新租客状态")
	}
	return tenant, nil
}

// vacateUnit 事务内执行：租客转为 past 并清空单元占用
func vacateUnit(ctx context.Context, tx repository.Store, unit *models.Unit, at time.Time) (*models.Tenant, error) {
	if !unit.IsOccupied || unit.TenantID == nil {
		return nil, fmt.Errorf("%w: unit %d", apperrors.ErrUnitVacant, unit.ID)
	}

	tenant, err := tx.Tenants().GetByID(ctx, *unit.TenantID)
	switch {
	case errors.Is(err, apperrors.ErrTenantNotFound):
		// 租客记录缺失时仍清空占用，恢复一致
		logger.GetLogger().WithField("unit_id", unit.ID).Warnf("单元指向的租客 %d 不存在", *unit.TenantID)
		tenant = nil
	case err != nil:
		return nil, err
	case tenant.IsActive():
		if err := tx.Tenants().MarkPast(ctx, tenant.ID, at); err != nil {
			return nil, err
		}
		tenant.Status = models.TenantStatusPast
		tenant.MovedOutAt = &at
	}

	if err := tx.Units().SetOccupancy(ctx, unit.ID, nil); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *OccupancyService) afterVacate(ctx context.Context, unit *models.Unit, tenant *models.Tenant) {
	fields := logrus.Fields{
		"property_id": unit.PropertyID,
		"unit_id":     unit.ID,
	}
	if tenant != nil {
		fields["tenant_id"] = tenant.ID
	}
	logger.GetLogger().WithFields(fields).Info("单元退租")

	publishEvent(ctx, s.publisher, queue.Event{
		Type:       queue.EventUnitVacated,
		PropertyID: unit.PropertyID,
		UnitID:     unit.ID,
		Payload:    tenancyEvent(unit, tenant),
	})
}

// GetTenant 获取租客
func (s *OccupancyService) GetTenant(ctx context.Context, id uint) (*models.Tenant, error) {
	return s.store.Tenants().GetByID(ctx, id)
}

// ListTenants 分页查询租客
func (s *OccupancyService) ListTenants(ctx context.Context, filter repository.TenantFilter, offset, limit int) ([]*models.Tenant, int64, error) {
	if filter.Status != "" && filter.Status != models.TenantStatusActive && filter.Status != models.TenantStatusPast {
		return nil, 0, fmt.Errorf("%w: tenant status %q", apperrors.ErrInvalidParam, filter.Status)
	}
	return s.store.Tenants().List(ctx, filter, offset, limit)
}
