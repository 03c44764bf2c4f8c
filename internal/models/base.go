package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale 金额列的小数位数，与 decimal(18,2) 一致
const MoneyScale = 2

// BaseModel 所有账本实体共用的主键和时间戳，时间统一按 UTC 存储
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PeriodStart 归一化到所属月份的月初（UTC），年月取自 t 自身的时区
func PeriodStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// FitsMoneyScale 金额能否无损存入金额列，800.000 可以，799.999 不行
func FitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}
