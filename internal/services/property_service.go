package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rentledger/internal/models"
	"rentledger/internal/repository"
	apperrors "rentledger/pkg/errors"
	"rentledger/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UnitInput 新建单元参数，新单元一律为空置
type UnitInput struct {
	UnitNumber  string
	MonthlyRent decimal.Decimal
}

type FloorInput struct {
	FloorNumber int
	Units       []UnitInput
}

type CreatePropertyInput struct {
	Name    string
	Address string
	Floors  []FloorInput
}

// UpdateUnitInput 字段为空表示不修改
type UpdateUnitInput struct {
	UnitNumber  *string
	MonthlyRent *decimal.Decimal
}

// PropertyService 物业、楼层、单元维护
//
// 单元按 (propertyID, unitID) 定位修改，不会重写整棵物业树
type PropertyService struct {
	store repository.Store
}

func NewPropertyService(store repository.Store) *PropertyService {
	return &PropertyService{store: store}
}

func validateRent(rent decimal.Decimal) error {
	if !rent.IsPositive() || !models.FitsMoneyScale(rent) {
		return fmt.Errorf("%w: got %s", apperrors.ErrInvalidRent, rent.String())
	}
	return nil
}

// unitNumbersOf 物业内已使用的单元编号
func unitNumbersOf(property *models.Property) map[string]bool {
	used := make(map[string]bool)
	for _, floor := range property.Floors {
		for _, unit := range floor.Units {
			used[unit.UnitNumber] = true
		}
	}
	return used
}

// buildFloor 校验并构造楼层，used 记录已占用的单元编号
func buildFloor(propertyID uint, input FloorInput, used map[string]bool) (models.Floor, error) {
	floor := models.Floor{PropertyID: propertyID, FloorNumber: input.FloorNumber}
	for _, u := range input.Units {
		number := strings.TrimSpace(u.UnitNumber)
		if number == "" {
			return models.Floor{}, fmt.Errorf("%w: unit number is required", apperrors.ErrInvalidParam)
		}
		if err := validateRent(u.MonthlyRent); err != nil {
			return models.Floor{}, err
		}
		if used[number] {
			return models.Floor{}, fmt.Errorf("%w: unit %q", apperrors.ErrDuplicateUnitNumber, number)
		}
		used[number] = true
		floor.Units = append(floor.Units, models.Unit{
			PropertyID:  propertyID,
			UnitNumber:  number,
			MonthlyRent: u.MonthlyRent,
		})
	}
	return floor, nil
}

// translateDuplicate 数据库唯一约束冲突转为楼层重复
func translateDuplicate(err error, floorNumber int) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: floor %d", apperrors.ErrDuplicateFloor, floorNumber)
	}
	return err
}

// CreateProperty 创建物业及其楼层、单元
func (s *PropertyService) CreateProperty(ctx context.Context, input CreatePropertyInput) (*models.Property, error) {
	property := &models.Property{
		Name:    strings.TrimSpace(input.Name),
		Address: strings.TrimSpace(input.Address),
	}

	used := make(map[string]bool)
	floors := make(map[int]bool)
	for _, f := range input.Floors {
		if floors[f.FloorNumber] {
			return nil, fmt.Errorf("%w: floor %d", apperrors.ErrDuplicateFloor, f.FloorNumber)
		}
		floors[f.FloorNumber] = true

		floor, err := buildFloor(0, f, used)
		if err != nil {
			return nil, err
		}
		property.Floors = append(property.Floors, floor)
	}

	if err := s.store.Properties().Create(ctx, property); err != nil {
		return nil, err
	}

	logger.GetLogger().Infof("创建物业 %s (ID: %d)，楼层 %d 个，单元 %d 个", property.Name, property.ID, len(property.Floors), len(used))
	return s.store.Properties().GetByID(ctx, property.ID)
}

func (s *PropertyService) GetProperty(ctx context.Context, id uint) (*models.Property, error) {
	return s.store.Properties().GetByID(ctx, id)
}

// ListProperties 分页查询，keyword 匹配名称或地址
func (s *PropertyService) ListProperties(ctx context.Context, keyword string, offset, limit int) ([]*models.Property, int64, error) {
	return s.store.Properties().List(ctx, strings.TrimSpace(keyword), offset, limit)
}

// UpdateProperty 修改名称和地址
func (s *PropertyService) UpdateProperty(ctx context.Context, id uint, name, address string) (*models.Property, error) {
	if err := s.store.Properties().UpdateDetails(ctx, id, strings.TrimSpace(name), strings.TrimSpace(address)); err != nil {
		return nil, err
	}
	return s.store.Properties().GetByID(ctx, id)
}

// DeleteProperty 删除物业；仍有在租单元时拒绝
func (s *PropertyService) DeleteProperty(ctx context.Context, id uint) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		property, err := tx.Properties().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if occupied := OccupiedUnits(property); len(occupied) > 0 {
			return fmt.Errorf("%w: %d units in property %d still have tenants",
				apperrors.ErrUnitOccupied, len(occupied), id)
		}
		return tx.Properties().Delete(ctx, id)
	})
}

// AddFloor 新增楼层，可同时带单元
func (s *PropertyService) AddFloor(ctx context.Context, propertyID uint, input FloorInput) (*models.Property, error) {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		property, err := tx.Properties().GetByID(ctx, propertyID)
		if err != nil {
			return err
		}
		for _, f := range property.Floors {
			if f.FloorNumber == input.FloorNumber {
				return fmt.Errorf("%w: floor %d", apperrors.ErrDuplicateFloor, input.FloorNumber)
			}
		}

		floor, err := buildFloor(propertyID, input, unitNumbersOf(property))
		if err != nil {
			return err
		}
		units := floor.Units
		floor.Units = nil
		if err := tx.Floors().Create(ctx, &floor); err != nil {
			return translateDuplicate(err, input.FloorNumber)
		}
		for i := range units {
			units[i].FloorID = floor.ID
			if err := tx.Units().Create(ctx, &units[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.Properties().GetByID(ctx, propertyID)
}

// AddUnit 在楼层下新增单元，编号在物业内必须唯一
func (s *PropertyService) AddUnit(ctx context.Context, propertyID, floorID uint, input UnitInput) (*models.Unit, error) {
	var unit *models.Unit
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		property, err := tx.Properties().GetByID(ctx, propertyID)
		if err != nil {
			return err
		}
		floor, err := tx.Floors().GetByID(ctx, floorID)
		if err != nil {
			return err
		}
		if floor.PropertyID != propertyID {
			return fmt.Errorf("%w: floor %d in property %d", apperrors.ErrFloorNotFound, floorID, propertyID)
		}

		built, err := buildFloor(propertyID, FloorInput{FloorNumber: floor.FloorNumber, Units: []UnitInput{input}}, unitNumbersOf(property))
		if err != nil {
			return err
		}
		unit = &built.Units[0]
		unit.FloorID = floor.ID
		return tx.Units().Create(ctx, unit)
	})
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// UpdateUnit 修改单元编号或租金，不触碰占用状态；在租租客的单元编号同步更新，已登记的支付不受影响
func (s *PropertyService) UpdateUnit(ctx context.Context, propertyID, unitID uint, input UpdateUnitInput) (*models.Unit, error) {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		unit, err := tx.Units().GetByIDForUpdate(ctx, unitID)
		if err != nil {
			return err
		}
		if unit.PropertyID != propertyID {
			return fmt.Errorf("%w: unit %d in property %d", apperrors.ErrUnitNotFound, unitID, propertyID)
		}

		number, rent := unit.UnitNumber, unit.MonthlyRent
		if input.MonthlyRent != nil {
			if err := validateRent(*input.MonthlyRent); err != nil {
				return err
			}
			rent = *input.MonthlyRent
		}
		if input.UnitNumber != nil {
			number = strings.TrimSpace(*input.UnitNumber)
			if number == "" {
				return fmt.Errorf("%w: unit number is required", apperrors.ErrInvalidParam)
			}
			if number != unit.UnitNumber {
				siblings, err := tx.Units().ListByProperty(ctx, propertyID)
				if err != nil {
					return err
				}
				for _, other := range siblings {
					if other.ID != unit.ID && other.UnitNumber == number {
						return fmt.Errorf("%w: unit %q", apperrors.ErrDuplicateUnitNumber, number)
					}
				}
			}
		}
		if err := tx.Units().UpdateDetails(ctx, unit.ID, number, rent); err != nil {
			return err
		}
		if number != unit.UnitNumber && unit.TenantID != nil {
			return tx.Tenants().UpdateUnitNumber(ctx, *unit.TenantID, number)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.Units().GetByID(ctx, unitID)
}
