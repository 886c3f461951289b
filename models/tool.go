package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const ToolTable = "lsb_tools"

// DefaultLowStock 低库存阈值（quantity < 5）
const DefaultLowStock = 5

type ToolType string

const (
	ToolHandBasic     ToolType = "Outils à Main de Base"
	ToolElectric      ToolType = "Outils Électriques"
	ToolPowerPortable ToolType = "Outils Électroportatifs"
	ToolInstallation  ToolType = "Outils d'Installation et de Montage"
	ToolSafety        ToolType = "Équipements de Sécurité et de Protection"
	ToolSolar         ToolType = "Outils Solaires Spécialisés"
)

var ToolTypes = []ToolType{ToolHandBasic, ToolElectric, ToolPowerPortable, ToolInstallation, ToolSafety, ToolSolar}

func (t ToolType) Valid() bool {
	for _, v := range ToolTypes {
		if v == t {
			return true
		}
	}
	return false
}

type ToolCondition string

const (
	ConditionNew         ToolCondition = "neuf"
	ConditionExcellent   ToolCondition = "excellent"
	ConditionGood        ToolCondition = "bon"
	ConditionFair        ToolCondition = "correct"
	ConditionPoor        ToolCondition = "mauvais"
	ConditionNeedsRepair ToolCondition = "nécessite_réparation"
)

var ToolConditions = []ToolCondition{ConditionNew, ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor, ConditionNeedsRepair}

func (c ToolCondition) Valid() bool {
	for _, v := range ToolConditions {
		if v == c {
			return true
		}
	}
	return false
}

// Tool 按数量管理的工具；quantity 是当前在库数量（借出时扣减）
// availability=false 表示维修中，不可借
type Tool struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"size:200;not null;index" json:"name"`
	Type         ToolType        `gorm:"size:80;not null" json:"type"`
	Condition    ToolCondition   `gorm:"size:40;not null" json:"condition"`
	Quantity     int             `gorm:"not null;default:0" json:"quantity"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	PurchaseDate time.Time       `gorm:"type:date;not null" json:"purchaseDate"`
	Picture      string          `gorm:"size:1024" json:"picture,omitempty"`
	Availability bool            `gorm:"not null;default:true" json:"availability"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (Tool) TableName() string { return ToolTable }

func (t Tool) LowStock(threshold int) bool { return t.Quantity < threshold }

// StockValue = price * quantity
func (t Tool) StockValue() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(int64(t.Quantity)))
}
