package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const MaintenanceTable = "lsb_maintenance"

// Maintenance 维修记录：FixedDate 为空即 OPEN，期间工具不可借
type Maintenance struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	ToolID      string          `gorm:"type:uuid;index;not null" json:"toolId"`
	Description string          `gorm:"type:text" json:"description"`
	Date        time.Time       `gorm:"type:date;not null" json:"date"`
	FixedDate   *time.Time      `gorm:"index" json:"fixedDate,omitempty"`
	Cost        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"cost"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Tool *Tool `gorm:"foreignKey:ToolID" json:"tool,omitempty"`

	DurationDays *int `gorm:"-" json:"durationDays,omitempty"`
}

func (Maintenance) TableName() string { return MaintenanceTable }

func (m Maintenance) Open() bool { return m.FixedDate == nil }

// Duration 维修天数（向上取整）；未修好按 now 计算
func (m Maintenance) Duration(now time.Time) int {
	end := now
	if m.FixedDate != nil {
		end = *m.FixedDate
	}
	d := end.Sub(m.Date)
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours() / 24))
}
