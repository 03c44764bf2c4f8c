package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Tenant 租客
type Tenant struct {
	BaseModel
	Name        string `json:"name" gorm:"not null;size:100"`
	Email       string `json:"email" gorm:"not null;size:100"`
	PhoneNumber string `json:"phone_number" gorm:"not null;size:30"`
	IDNumber    string `json:"id_number" gorm:"size:50"`

	PropertyID  uint   `json:"property_id" gorm:"not null;index"`
	UnitID      uint   `json:"unit_id" gorm:"not null;index"`
	UnitNumber  string `json:"unit_number" gorm:"not null;size:50"`
	FloorNumber int    `json:"floor_number"`

	LeaseStartDate time.Time       `json:"lease_start_date" gorm:"not null"`
	LeaseEndDate   time.Time       `json:"lease_end_date" gorm:"not null;index"`
	DepositAmount  decimal.Decimal `json:"deposit_amount" gorm:"type:decimal(18,2);not null;default:0"`
	// 签约时的租金快照，仅作历史记录，对账始终使用 Unit.MonthlyRent
	RentAtSigning decimal.Decimal `json:"rent_at_signing" gorm:"type:decimal(18,2);not null"`

	EmergencyContact datatypes.JSON `json:"emergency_contact" gorm:"type:jsonb"`

	Status     string     `json:"status" gorm:"not null;default:'active';size:20;index"`
	MovedOutAt *time.Time `json:"moved_out_at"`
}

func (t *Tenant) TableName() string {
	return "tenants"
}

// 租客状态常量
const (
	TenantStatusActive = "active"
	TenantStatusPast   = "past"
)

// IsActive 租约是否仍有效
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}
