package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment 租金支付记录，创建后不可修改
//
// Status/Balance 在创建时根据当时的单元租金计算，租金后续变化不会回溯
type Payment struct {
	BaseModel
	Reference  string `json:"reference" gorm:"not null;size:64;uniqueIndex"`
	TenantID   uint   `json:"tenant_id" gorm:"not null;index"`
	PropertyID uint   `json:"property_id" gorm:"not null;index:idx_payments_property_month"`
	UnitID     uint   `json:"unit_id" gorm:"not null;index"`
	UnitNumber string `json:"unit_number" gorm:"not null;size:50"`

	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(18,2);not null"`
	MonthlyRent decimal.Decimal `json:"monthly_rent" gorm:"type:decimal(18,2);not null"`
	Balance     decimal.Decimal `json:"balance" gorm:"type:decimal(18,2);not null"`
	Status      string          `json:"status" gorm:"not null;size:20"`

	PaymentDate   time.Time `json:"payment_date" gorm:"not null"`
	PaymentMonth  time.Time `json:"payment_month" gorm:"not null;index:idx_payments_property_month"` // 所属租期，月初 UTC
	PaymentMethod string    `json:"payment_method" gorm:"not null;size:20"`
	Notes         string    `json:"notes" gorm:"type:text"`
}

func (p *Payment) TableName() string {
	return "payments"
}

// 支付状态
const (
	PaymentStatusFull     = "FULL"
	PaymentStatusPartial  = "PARTIAL"
	PaymentStatusOverpaid = "OVERPAID"
)

// 支付方式
const (
	PaymentMethodCash         = "CASH"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodCheck        = "CHECK"
	PaymentMethodMobileMoney  = "MOBILE_MONEY"
)

// ValidPaymentMethod 是否为支持的支付方式
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodMobileMoney:
		return true
	}
	return false
}
