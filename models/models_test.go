package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseLoanStatus(t *testing.T) {
	cases := map[string]LoanStatus{
		"emprunté":  LoanBorrowed,
		"borrowed":  LoanBorrowed,
		" Active ":  LoanBorrowed,
		"returned":  LoanReturned,
		"installé":  LoanInstalled,
		"installée": LoanInstalled,
		"OVERDUE":   LoanOverdue,
		"en_retard": LoanOverdue,
	}
	for in, want := range cases {
		got, ok := ParseLoanStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseLoanStatus("perdu")
	assert.False(t, ok)
}

func TestLoanQuantities(t *testing.T) {
	l := Loan{Quantity: 10, ReturnedQuantity: 3, InstalledQuantity: 2, DamagedQuantity: 1, LostQuantity: 1, Status: LoanBorrowed}
	assert.Equal(t, 7, l.Accounted())
	assert.Equal(t, 3, l.Outstanding())

	l.ReturnedQuantity = 9
	assert.Equal(t, 0, l.Outstanding())
}

func TestLoanOverdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 1)

	assert.True(t, Loan{Status: LoanBorrowed, ReturnDate: &past}.IsOverdue(now))
	assert.False(t, Loan{Status: LoanBorrowed, ReturnDate: &future}.IsOverdue(now))
	assert.False(t, Loan{Status: LoanReturned, ReturnDate: &past}.IsOverdue(now))
	assert.False(t, Loan{Status: LoanBorrowed}.IsOverdue(now))

	// 归还日当天仍未逾期，次日才算
	dueToday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.False(t, Loan{Status: LoanBorrowed, ReturnDate: &dueToday}.IsOverdue(now))
	assert.True(t, Loan{Status: LoanBorrowed, ReturnDate: &dueToday}.IsOverdue(now.AddDate(0, 0, 1)))
}

func TestSummarizeLoans(t *testing.T) {
	s := SummarizeLoans([]Loan{
		{Quantity: 4, ReturnedQuantity: 1, InstalledQuantity: 2, DamagedQuantity: 1},
		{Quantity: 6, LostQuantity: 2, ReturnedQuantity: 4},
	})
	assert.Equal(t, QuantitySummary{Loaned: 10, Returned: 5, Installed: 2, Damaged: 1, Lost: 2}, s)
}

func TestMaintenanceDuration(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fixed := start.Add(49 * time.Hour)
	m := Maintenance{Date: start, FixedDate: &fixed}
	assert.Equal(t, 3, m.Duration(time.Now()))
	assert.False(t, m.Open())

	open := Maintenance{Date: start}
	assert.Equal(t, 10, open.Duration(start.AddDate(0, 0, 10)))
	assert.True(t, open.Open())
}

func TestToolEnumsAndValue(t *testing.T) {
	assert.True(t, ToolSolar.Valid())
	assert.False(t, ToolType("Marteau").Valid())
	assert.True(t, ConditionNeedsRepair.Valid())
	assert.False(t, ToolCondition("cassé").Valid())
	assert.True(t, ProjectActive.Valid())

	tool := Tool{Quantity: 3, Price: decimal.RequireFromString("12.50")}
	assert.True(t, tool.StockValue().Equal(decimal.RequireFromString("37.5")))
	assert.True(t, tool.LowStock(DefaultLowStock))
}
