// Package repository 定义物业、租客、支付的持久化接口。
//
// 服务层只依赖 Store，不直接接触 gorm；GormStore 用于 postgres，MemoryStore 用于本地运行和测试。
package repository

import (
	"context"
	"time"

	"rentledger/internal/models"

	"github.com/shopspring/decimal"
)

// PropertyRepository 物业，读取时包含完整的楼层/单元树
type PropertyRepository interface {
	Create(ctx context.Context, property *models.Property) error
	GetByID(ctx context.Context, id uint) (*models.Property, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Property, error)
	List(ctx context.Context, keyword string, offset, limit int) ([]*models.Property, int64, error)
	UpdateDetails(ctx context.Context, id uint, name, address string) error
	Delete(ctx context.Context, id uint) error
}

type FloorRepository interface {
	Create(ctx context.Context, floor *models.Floor) error
	GetByID(ctx context.Context, id uint) (*models.Floor, error)
}

// UnitRepository 单元
//
// UpdateDetails 只修改编号和租金；占用状态只能通过 SetOccupancy 成对写入
type UnitRepository interface {
	Create(ctx context.Context, unit *models.Unit) error
	GetByID(ctx context.Context, id uint) (*models.Unit, error)
	// GetByIDForUpdate 在事务内加行锁读取
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Unit, error)
	ListByProperty(ctx context.Context, propertyID uint) ([]*models.Unit, error)
	UpdateDetails(ctx context.Context, id uint, unitNumber string, monthlyRent decimal.Decimal) error
	// SetOccupancy tenantID 非空时标记占用，为空时清空占用
	SetOccupancy(ctx context.Context, id uint, tenantID *uint) error
}

type TenantFilter struct {
	PropertyID *uint
	Status     string
	Keyword    string
}

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uint) (*models.Tenant, error)
	List(ctx context.Context, filter TenantFilter, offset, limit int) ([]*models.Tenant, int64, error)
	// ListExpired 返回租约在 asOf 之前到期但仍为 active 的租客
	ListExpired(ctx context.Context, asOf time.Time) ([]*models.Tenant, error)
	MarkPast(ctx context.Context, id uint, movedOutAt time.Time) error
	// UpdateUnitNumber 单元改号时同步租客上的冗余编号
	UpdateUnitNumber(ctx context.Context, id uint, unitNumber string) error
}

// PaymentRepository 支付记录只追加，不提供修改
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	// ListByProperty 按支付日期倒序
	ListByProperty(ctx context.Context, propertyID uint, offset, limit int) ([]*models.Payment, int64, error)
	// ListByUnit 按支付日期倒序
	ListByUnit(ctx context.Context, unitID uint) ([]*models.Payment, error)
	// ListByPaymentMonth 返回 payment_month 落在 [from, to) 内的记录，propertyID 为空时不过滤物业
	ListByPaymentMonth(ctx context.Context, propertyID *uint, from, to time.Time) ([]*models.Payment, error)
}

// Store 持久化入口
type Store interface {
	Properties() PropertyRepository
	Floors() FloorRepository
	Units() UnitRepository
	Tenants() TenantRepository
	Payments() PaymentRepository

	// Transaction fn 返回错误时回滚其中的全部写入
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
