package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentledger/internal/models"
	apperrors "rentledger/pkg/errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于 gorm 的 Store 实现
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Properties() PropertyRepository { return &gormPropertyRepo{db: s.db} }
func (s *GormStore) Floors() FloorRepository        { return &gormFloorRepo{db: s.db} }
func (s *GormStore) Units() UnitRepository          { return &gormUnitRepo{db: s.db} }
func (s *GormStore) Tenants() TenantRepository      { return &gormTenantRepo{db: s.db} }
func (s *GormStore) Payments() PaymentRepository    { return &gormPaymentRepo{db: s.db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// notFound 把 gorm.ErrRecordNotFound 转为业务错误
func notFound(err error, sentinel *apperrors.AppError, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: id %d", sentinel, id)
	}
	return err
}

// ========== 物业 ==========

type gormPropertyRepo struct {
	db *gorm.DB
}

// withTree 预加载楼层（按楼层号）和单元（按创建顺序）
func withTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Floors", func(db *gorm.DB) *gorm.DB { return db.Order("floor_number ASC") }).
		Preload("Floors.Units", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func (r *gormPropertyRepo) Create(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(property).Error; err != nil {
			return err
		}
		for i := range property.Floors {
			floor := &property.Floors[i]
			floor.PropertyID = property.ID
			if err := tx.Omit(clause.Associations).Create(floor).Error; err != nil {
				return err
			}
			for j := range floor.Units {
				unit := &floor.Units[j]
				unit.PropertyID = property.ID
				unit.FloorID = floor.ID
				if err := tx.Create(unit).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *gormPropertyRepo) GetByID(ctx context.Context, id uint) (*models.Property, error) {
	var property models.Property
	if err := withTree(r.db.WithContext(ctx)).First(&property, id).Error; err != nil {
		return nil, notFound(err, apperrors.ErrPropertyNotFound, id)
	}
	return &property, nil
}

func (r *gormPropertyRepo) GetByIDs(ctx context.Context, ids []uint) ([]*models.Property, error) {
	var properties []*models.Property
	if len(ids) == 0 {
		return properties, nil
	}
	err := withTree(r.db.WithContext(ctx)).Where("id IN ?", ids).Order("id ASC").Find(&properties).Error
	return properties, err
}

func (r *gormPropertyRepo) List(ctx context.Context, keyword string, offset, limit int) ([]*models.Property, int64, error) {
	var properties []*models.Property
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Property{})
	if keyword != "" {
		pattern := "%" + keyword + "%"
		query = query.Where("name ILIKE ? OR address ILIKE ?", pattern, pattern)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := withTree(query).Order("id ASC").Offset(offset).Limit(limit).Find(&properties).Error
	if err != nil {
		return nil, 0, err
	}
	return properties, total, nil
}

func (r *gormPropertyRepo) UpdateDetails(ctx context.Context, id uint, name, address string) error {
	result := r.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "address": address})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", apperrors.ErrPropertyNotFound, id)
	}
	return nil
}

// Delete 删除物业及其楼层、单元；租客和支付作为历史记录保留
func (r *gormPropertyRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", id).Delete(&models.Unit{}).Error; err != nil {
			return err
		}
		if err := tx.Where("property_id = ?", id).Delete(&models.Floor{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Property{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: id %d", apperrors.ErrPropertyNotFound, id)
		}
		return nil
	})
}

// ========== 楼层 ==========

type gormFloorRepo struct {
	db *gorm.DB
}

func (r *gormFloorRepo) Create(ctx context.Context, floor *models.Floor) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(floor).Error
}

func (r *gormFloorRepo) GetByID(ctx context.Context, id uint) (*models.Floor, error) {
	var floor models.Floor
	if err := r.db.WithContext(ctx).First(&floor, id).Error; err != nil {
		return nil, notFound(err, apperrors.ErrFloorNotFound, id)
	}
	return &floor, nil
}

// ========== 单元 ==========

type gormUnitRepo struct {
	db *gorm.DB
}

func (r *gormUnitRepo) Create(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *gormUnitRepo) GetByID(ctx context.Context, id uint) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).First(&unit, id).Error; err != nil {
		return nil, notFound(err, apperrors.ErrUnitNotFound, id)
	}
	return &unit, nil
}

func (r *gormUnitRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Unit, error) {
	var unit models.Unit
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&unit, id).Error
	if err != nil {
		return nil, notFound(err, apperrors.ErrUnitNotFound, id)
	}
	return &unit, nil
}

func (r *gormUnitRepo) ListByProperty(ctx context.Context, propertyID uint) ([]*models.Unit, error) {
	var units []*models.Unit
	err := r.db.WithContext(ctx).Where("property_id = ?", propertyID).Order("id ASC").Find(&units).Error
	return units, err
}

func (r *gormUnitRepo) UpdateDetails(ctx context.Context, id uint, unitNumber string, monthlyRent decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.Unit{}).Where("id = ?", id).
		Updates(map[string]interface{}{"unit_number": unitNumber, "monthly_rent": monthlyRent})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", apperrors.ErrUnitNotFound, id)
	}
	return nil
}

func (r *gormUnitRepo) SetOccupancy(ctx context.Context, id uint, tenantID *uint) error {
	updates := map[string]interface{}{"is_occupied": false, "tenant_id": nil}
	if tenantID != nil {
		updates = map[string]interface{}{"is_occupied": true, "tenant_id": *tenantID}
	}
	result := r.db.WithContext(ctx).Model(&models.Unit{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", apperrors.ErrUnitNotFound, id)
	}
	return nil
}

// ========== 租客 ==========

type gormTenantRepo struct {
	db *gorm.DB
}

func (r *gormTenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	return r.db.WithContext(ctx).Create(tenant).Error
}

func (r *gormTenantRepo) GetByID(ctx context.Context, id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		return nil, notFound(err, apperrors.ErrTenantNotFound, id)
	}
	return &tenant, nil
}

func (r *gormTenantRepo) List(ctx context.Context, filter TenantFilter, offset, limit int) ([]*models.Tenant, int64, error) {
	var tenants []*models.Tenant
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Tenant{})
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Keyword != "" {
		pattern := "%" + filter.Keyword + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ? OR unit_number ILIKE ?", pattern, pattern, pattern)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&tenants).Error; err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

func (r *gormTenantRepo) ListExpired(ctx context.Context, asOf time.Time) ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	err := r.db.WithContext(ctx).
		Where("status = ? AND lease_end_date < ?", models.TenantStatusActive, asOf).
		Order("lease_end_date ASC").
		Find(&tenants).Error
	return tenants, err
}

func (r *gormTenantRepo) MarkPast(ctx context.Context, id uint, movedOutAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": models.TenantStatusPast, "moved_out_at": movedOutAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", apperrors.ErrTenantNotFound, id)
	}
	return nil
}

func (r *gormTenantRepo) UpdateUnitNumber(ctx context.Context, id uint, unitNumber string) error {
	result := r.db.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", id).Update("unit_number", unitNumber)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", apperrors.ErrTenantNotFound, id)
	}
	return nil
}

// ========== 支付 ==========

type gormPaymentRepo struct {
	db *gorm.DB
}

func (r *gormPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *gormPaymentRepo) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, notFound(err, apperrors.ErrPaymentNotFound, id)
	}
	return &payment, nil
}

func (r *gormPaymentRepo) ListByProperty(ctx context.Context, propertyID uint, offset, limit int) ([]*models.Payment, int64, error) {
	var payments []*models.Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Payment{}).Where("property_id = ?", propertyID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("payment_date DESC, id DESC").Offset(offset).Limit(limit).Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *gormPaymentRepo) ListByUnit(ctx context.Context, unitID uint) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).Where("unit_id = ?", unitID).
		Order("payment_date DESC, id DESC").Find(&payments).Error
	return payments, err
}

func (r *gormPaymentRepo) ListByPaymentMonth(ctx context.Context, propertyID *uint, from, to time.Time) ([]*models.Payment, error) {
	var payments []*models.Payment
	query := r.db.WithContext(ctx).Where("payment_month >= ? AND payment_month < ?", from, to)
	if propertyID != nil {
		query = query.Where("property_id = ?", *propertyID)
	}
	err := query.Order("payment_month ASC, id ASC").Find(&payments).Error
	return payments, err
}
