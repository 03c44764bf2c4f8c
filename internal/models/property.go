package models

import (
	"github.com/shopspring/decimal"
)

// Property 物业，楼层和单元按行存储，读取时组装为一棵树
type Property struct {
	BaseModel
	Name    string  `json:"name" gorm:"not null;size:200"`
	Address string  `json:"address" gorm:"not null;size:500"`
	Floors  []Floor `json:"floors" gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
}

func (p *Property) TableName() string {
	return "properties"
}

// Floor 楼层，楼层号只在所属物业内唯一
type Floor struct {
	BaseModel
	PropertyID  uint   `json:"property_id" gorm:"not null;uniqueIndex:idx_floors_property_number"`
	FloorNumber int    `json:"floor_number" gorm:"not null;uniqueIndex:idx_floors_property_number"`
	Units       []Unit `json:"units" gorm:"foreignKey:FloorID;constraint:OnDelete:CASCADE"`
}

func (f *Floor) TableName() string {
	return "floors"
}

// Unit 可出租单元
//
// IsOccupied 与 TenantID 必须同时设置或同时清空，只允许通过 OccupancyService 修改
type Unit struct {
	BaseModel
	PropertyID  uint            `json:"property_id" gorm:"not null;index"`
	FloorID     uint            `json:"floor_id" gorm:"not null;index"`
	UnitNumber  string          `json:"unit_number" gorm:"not null;size:50;index"`
	MonthlyRent decimal.Decimal `json:"monthly_rent" gorm:"type:decimal(18,2);not null"`
	IsOccupied  bool            `json:"is_occupied" gorm:"not null;default:false"`
	TenantID    *uint           `json:"tenant_id" gorm:"index"`
}

func (u *Unit) TableName() string {
	return "units"
}
