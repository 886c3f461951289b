package stats

import (
	"testing"

	"tool_lending_admin/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeEmpty(t *testing.T) {
	s := Compute(Snapshot{}, 0)
	assert.Zero(t, s.TotalLoans)
	assert.Zero(t, s.UtilizationRate)
	assert.Zero(t, s.MaintenanceRate)
	assert.True(t, s.TotalValue.IsZero())
}

func TestCompute(t *testing.T) {
	snap := Snapshot{
		Users:    3,
		Projects: 2,
		Tools: []models.Tool{
			{Quantity: 10, Price: decimal.RequireFromString("20.00")},
			{Quantity: 2, Price: decimal.RequireFromString("50.00")},
			{Quantity: 0, Price: decimal.RequireFromString("99.99")},
		},
		Loans: []models.Loan{
			{Status: models.LoanBorrowed, Quantity: 4, InstalledQuantity: 1},
			{Status: models.LoanOverdue, Quantity: 2, LostQuantity: 1},
			{Status: models.LoanReturned, Quantity: 3, ReturnedQuantity: 2, DamagedQuantity: 1},
			{Status: models.LoanInstalled, Quantity: 5, InstalledQuantity: 5},
		},
		Maintenance: []models.Maintenance{
			{Cost: decimal.RequireFromString("15.00")},
			{Cost: decimal.RequireFromString("15.00")},
		},
	}

	s := Compute(snap, 5)

	assert.Equal(t, int64(3), s.TotalUsers)
	assert.Equal(t, int64(2), s.TotalProjects)
	assert.Equal(t, 3, s.TotalTools)
	assert.Equal(t, 4, s.TotalLoans)
	assert.Equal(t, 2, s.TotalMaintenance)
	assert.Equal(t, 2, s.ActiveLoans)
	assert.Equal(t, 2, s.LowStockTools)
	assert.Equal(t, "300", s.TotalValue.String())
	assert.Equal(t, "30", s.MaintenanceCost.String())

	assert.Equal(t, 14, s.Loaned)
	assert.Equal(t, 2, s.Returned)
	assert.Equal(t, 6, s.Installed)
	assert.Equal(t, 1, s.Damaged)
	assert.Equal(t, 1, s.Lost)

	assert.InDelta(t, 50.0, s.UtilizationRate, 1e-9)
	assert.InDelta(t, 10.0, s.MaintenanceRate, 1e-9)
}

func TestComputeThreshold(t *testing.T) {
	snap := Snapshot{Tools: []models.Tool{{Quantity: 7}, {Quantity: 3}}}
	assert.Equal(t, 1, Compute(snap, 0).LowStockTools)
	assert.Equal(t, 2, Compute(snap, 10).LowStockTools)
}
