// Package stats 仪表盘统计：每次请求对完整快照重新计算，不保存增量状态
package stats

import (
	"tool_lending_admin/models"

	"github.com/shopspring/decimal"
)

// Snapshot 一次性读出的全部数据
type Snapshot struct {
	Users       int64
	Projects    int64
	Tools       []models.Tool
	Loans       []models.Loan
	Maintenance []models.Maintenance
}

type Stats struct {
	TotalUsers       int64           `json:"totalUsers"`
	TotalTools       int             `json:"totalTools"`
	TotalLoans       int             `json:"totalLoans"`
	TotalMaintenance int             `json:"totalMaintenance"`
	TotalProjects    int64           `json:"totalProjects"`
	ActiveLoans      int             `json:"activeLoans"`
	LowStockTools    int             `json:"lowStockTools"`
	TotalValue       decimal.Decimal `json:"totalValue"`
	MaintenanceCost  decimal.Decimal `json:"maintenanceCost"`
	models.QuantitySummary
	UtilizationRate float64 `json:"utilizationRate"`
	MaintenanceRate float64 `json:"maintenanceRate"`
}

var hundred = decimal.NewFromInt(100)

// Compute 纯函数；threshold<=0 时用默认低库存阈值
func Compute(s Snapshot, threshold int) Stats {
	if threshold <= 0 {
		threshold = models.DefaultLowStock
	}
	out := Stats{
		TotalUsers:       s.Users,
		TotalTools:       len(s.Tools),
		TotalLoans:       len(s.Loans),
		TotalMaintenance: len(s.Maintenance),
		TotalProjects:    s.Projects,
		TotalValue:       decimal.Zero,
		MaintenanceCost:  decimal.Zero,
		QuantitySummary:  models.SummarizeLoans(s.Loans),
	}
	for _, t := range s.Tools {
		if t.LowStock(threshold) {
			out.LowStockTools++
		}
		out.TotalValue = out.TotalValue.Add(t.StockValue())
	}
	for _, m := range s.Maintenance {
		out.MaintenanceCost = out.MaintenanceCost.Add(m.Cost)
	}
	for _, l := range s.Loans {
		if l.Status.Open() {
			out.ActiveLoans++
		}
	}

	if out.TotalLoans > 0 {
		out.UtilizationRate = float64(out.ActiveLoans) / float64(out.TotalLoans) * 100
	}
	if out.TotalValue.IsPositive() {
		out.MaintenanceRate = out.MaintenanceCost.Div(out.TotalValue).Mul(hundred).InexactFloat64()
	}
	return out
}
