// models/loan.go
package models

import (
	"strings"
	"time"
)

const LoanTable = "lsb_loans"

// LoanStatus 统一使用法语取值；英文/旧拼写只在输入时归一化
type LoanStatus string

const (
	LoanBorrowed  LoanStatus = "emprunté"
	LoanReturned  LoanStatus = "retourné"
	LoanInstalled LoanStatus = "installée"
	LoanOverdue   LoanStatus = "en_retard"
)

var LoanStatuses = []LoanStatus{LoanBorrowed, LoanReturned, LoanInstalled, LoanOverdue}

var loanStatusAliases = map[string]LoanStatus{
	"emprunté":  LoanBorrowed,
	"emprunte":  LoanBorrowed,
	"borrowed":  LoanBorrowed,
	"active":    LoanBorrowed,
	"retourné":  LoanReturned,
	"retourne":  LoanReturned,
	"returned":  LoanReturned,
	"installée": LoanInstalled,
	"installé":  LoanInstalled,
	"installee": LoanInstalled,
	"installed": LoanInstalled,
	"en_retard": LoanOverdue,
	"overdue":   LoanOverdue,
}

// ParseLoanStatus 接受规范值和历史拼写，其余返回 false
func ParseLoanStatus(s string) (LoanStatus, bool) {
	st, ok := loanStatusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// Open: 东西还在借用人手上
func (s LoanStatus) Open() bool { return s == LoanBorrowed || s == LoanOverdue }

type Loan struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	ToolID     string     `gorm:"type:uuid;index;not null" json:"toolId"`
	UserID     string     `gorm:"type:uuid;index;not null" json:"userId"`
	ProjectID  *string    `gorm:"type:uuid;index" json:"projectId,omitempty"`
	StartDate  time.Time  `gorm:"type:date;not null" json:"startDate"`
	ReturnDate *time.Time `gorm:"type:date" json:"returnDate,omitempty"` // 预计归还日
	Status     LoanStatus `gorm:"size:20;not null;index" json:"status"`

	Quantity          int `gorm:"not null" json:"quantity"`
	ReturnedQuantity  int `gorm:"not null;default:0" json:"returnedQuantity"`
	InstalledQuantity int `gorm:"not null;default:0" json:"installedQuantity"`
	DamagedQuantity   int `gorm:"not null;default:0" json:"damagedQuantity"`
	LostQuantity      int `gorm:"not null;default:0" json:"lostQuantity"`

	Location  string    `gorm:"size:255" json:"location,omitempty"`
	Note      string    `gorm:"size:255" json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Tool    *Tool    `gorm:"foreignKey:ToolID" json:"tool,omitempty"`
	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	Overdue bool `gorm:"-" json:"overdue"`
}

func (Loan) TableName() string { return LoanTable }

// Accounted = returned + installed + damaged + lost
func (l Loan) Accounted() int {
	return l.ReturnedQuantity + l.InstalledQuantity + l.DamagedQuantity + l.LostQuantity
}

// Outstanding 仍在借用人手上的数量
func (l Loan) Outstanding() int {
	if n := l.Quantity - l.Accounted(); n > 0 {
		return n
	}
	return 0
}

// IsOverdue 按日期比较：归还日当天不算逾期
func (l Loan) IsOverdue(now time.Time) bool {
	if !l.Status.Open() || l.ReturnDate == nil {
		return false
	}
	return day(*l.ReturnDate).Before(day(now))
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// QuantitySummary 汇总一组借用的分项数量（项目详情 / 用户活动 / 统计共用）
type QuantitySummary struct {
	Loaned    int `json:"totalLoaned"`
	Returned  int `json:"totalReturned"`
	Installed int `json:"totalInstalled"`
	Damaged   int `json:"totalDamaged"`
	Lost      int `json:"totalLost"`
}

func SummarizeLoans(loans []Loan) QuantitySummary {
	var s QuantitySummary
	for _, l := range loans {
		s.Loaned += l.Quantity
		s.Returned += l.ReturnedQuantity
		s.Installed += l.InstalledQuantity
		s.Damaged += l.DamagedQuantity
		s.Lost += l.LostQuantity
	}
	return s
}
