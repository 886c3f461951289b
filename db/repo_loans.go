package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tool_lending_admin/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanInput struct {
	ToolID     string
	UserID     string
	ProjectID  *string
	Quantity   int
	StartDate  time.Time
	ReturnDate *time.Time
	Location   string
	Note       string
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func ensureExists(tx *gorm.DB, model any, id, what string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

// CreateLoan 借出：锁住工具 → 校验可借与库存 → 写借用记录 → 扣减库存，同一事务
// 被拒绝的请求不会改动工具
func (r *Repo) CreateLoan(ctx context.Context, in LoanInput) (*models.Loan, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("loan quantity must be positive: %w", ErrInvalidQuantity)
	}
	in.ProjectID = emptyToNil(in.ProjectID)
	now := r.now()
	if in.StartDate.IsZero() {
		in.StartDate = now
	}

	var loan *models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁住工具行
		tool, err := lockTool(tx, in.ToolID)
		if err != nil {
			return err
		}
		if err := ensureExists(tx, &models.User{}, in.UserID, "user"); err != nil {
			return err
		}
		if in.ProjectID != nil {
			if err := ensureExists(tx, &models.Project{}, *in.ProjectID, "project"); err != nil {
				return err
			}
		}
		// 2) 维修中不可借
		if !tool.Availability {
			return ErrUnavailable
		}
		// 3) 库存不足
		if in.Quantity > tool.Quantity {
			return fmt.Errorf("requested %d, in stock %d: %w", in.Quantity, tool.Quantity, ErrInsufficientStock)
		}
		// 4) 新建借用记录
		l := &models.Loan{
			ID:        uuid.NewString(),
			ToolID:    tool.ID,
			UserID:    in.UserID,
			ProjectID: in.ProjectID,
			StartDate: dateOnly(in.StartDate),
			Status:    models.LoanBorrowed,
			Quantity:  in.Quantity,
			Location:  strings.TrimSpace(in.Location),
			Note:      strings.TrimSpace(in.Note),
		}
		if in.ReturnDate != nil {
			d := dateOnly(*in.ReturnDate)
			l.ReturnDate = &d
		}
		if err := tx.Omit(clause.Associations).Create(l).Error; err != nil {
			return err
		}
		// 5) 扣减库存（条件更新兜底）
		if err := adjustStock(tx, tool.ID, -in.Quantity, now); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, wrap("create loan", err)
	}
	return loan, nil
}

// LoanPatch 中 nil 字段保持不变；ProjectID 指向空串表示解除项目关联
type LoanPatch struct {
	Status            *models.LoanStatus
	StartDate         *time.Time
	ReturnDate        *time.Time
	ProjectID         *string
	Location          *string
	Note              *string
	Quantity          *int
	ReturnedQuantity  *int
	InstalledQuantity *int
	DamagedQuantity   *int
	LostQuantity      *int
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// UpdateLoan 修改借用记录并同步库存：
// 归还数量增加 → 回补库存；借出数量变化 → 按差额重新校验库存；
// 状态改为 retourné 且未给出归还数量时，剩余未结数量全部视为归还
func (r *Repo) UpdateLoan(ctx context.Context, id string, p LoanPatch) (*models.Loan, error) {
	now := r.now()
	var l models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&l, "id = ?", id).Error; err != nil {
			return err
		}
		tool, err := lockTool(tx, l.ToolID)
		if err != nil {
			return err
		}
		old := l

		setInt(&l.Quantity, p.Quantity)
		setInt(&l.ReturnedQuantity, p.ReturnedQuantity)
		setInt(&l.InstalledQuantity, p.InstalledQuantity)
		setInt(&l.DamagedQuantity, p.DamagedQuantity)
		setInt(&l.LostQuantity, p.LostQuantity)

		if p.Status != nil {
			l.Status = *p.Status
			if l.Status == models.LoanReturned && p.ReturnedQuantity == nil {
				l.ReturnedQuantity += l.Outstanding()
			}
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("loan quantity must be positive: %w", ErrInvalidQuantity)
		}
		if l.ReturnedQuantity < 0 || l.InstalledQuantity < 0 || l.DamagedQuantity < 0 || l.LostQuantity < 0 {
			return fmt.Errorf("sub-quantities cannot be negative: %w", ErrInvalidQuantity)
		}
		if l.Accounted() > l.Quantity {
			return fmt.Errorf("%d accounted for %d loaned: %w", l.Accounted(), l.Quantity, ErrQuantityOverflow)
		}

		if p.StartDate != nil {
			l.StartDate = dateOnly(*p.StartDate)
		}
		if p.ReturnDate != nil {
			d := dateOnly(*p.ReturnDate)
			l.ReturnDate = &d
		}
		if p.ProjectID != nil {
			l.ProjectID = emptyToNil(p.ProjectID)
			if l.ProjectID != nil {
				if err := ensureExists(tx, &models.Project{}, *l.ProjectID, "project"); err != nil {
					return err
				}
			}
		}
		if p.Location != nil {
			l.Location = strings.TrimSpace(*p.Location)
		}
		if p.Note != nil {
			l.Note = strings.TrimSpace(*p.Note)
		}

		// 库存变化 = -(借出增量) + (归还增量)
		delta := -(l.Quantity - old.Quantity) + (l.ReturnedQuantity - old.ReturnedQuantity)
		if delta < 0 && tool.Quantity < -delta {
			return fmt.Errorf("needs %d more, in stock %d: %w", -delta, tool.Quantity, ErrInsufficientStock)
		}
		if err := adjustStock(tx, tool.ID, delta, now); err != nil {
			return err
		}

		l.UpdatedAt = now
		return tx.Omit(clause.Associations).Save(&l).Error
	})
	if err != nil {
		return nil, wrap("update loan", err)
	}
	return &l, nil
}

// DeleteLoan 删除借用记录，仍在外的数量回到库存
func (r *Repo) DeleteLoan(ctx context.Context, id string) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l models.Loan
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&l, "id = ?", id).Error; err != nil {
			return err
		}
		if err := restockAndDelete(tx, []models.Loan{l}, r.now()); err != nil {
			return err
		}
		return nil
	})
	return wrap("delete loan", err)
}

// restockAndDelete 逐条回补未结数量后删除
func restockAndDelete(tx *gorm.DB, loans []models.Loan, now time.Time) error {
	for _, l := range loans {
		if _, err := lockTool(tx, l.ToolID); err != nil {
			return err
		}
		if err := adjustStock(tx, l.ToolID, l.Outstanding(), now); err != nil {
			return err
		}
		if err := tx.Delete(&models.Loan{ID: l.ID}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) withLoanRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Tool").Preload("User").Preload("Project")
}

func (r *Repo) markOverdue(loans []models.Loan) {
	now := r.now()
	for i := range loans {
		loans[i].Overdue = loans[i].Status == models.LoanOverdue || loans[i].IsOverdue(now)
	}
}

func (r *Repo) loansWhere(ctx context.Context, query string, args ...any) ([]models.Loan, error) {
	loans := []models.Loan{}
	if err := r.withLoanRelations(r.DB.WithContext(ctx)).
		Where(query, args...).
		Order("lsb_loans.created_at DESC").
		Find(&loans).Error; err != nil {
		return nil, err
	}
	r.markOverdue(loans)
	return loans, nil
}

func (r *Repo) FindLoanByID(ctx context.Context, id string) (*models.Loan, error) {
	var l models.Loan
	if err := r.withLoanRelations(r.DB.WithContext(ctx)).First(&l, "id = ?", id).Error; err != nil {
		return nil, wrap("find loan", err)
	}
	l.Overdue = l.Status == models.LoanOverdue || l.IsOverdue(r.now())
	return &l, nil
}

type LoanQuery struct {
	Q         string // 借用人姓名 / 工具名 / 状态 / 位置
	ToolID    string
	UserID    string
	ProjectID string
	Status    models.LoanStatus
	Overdue   bool
	Page
}

type ListLoansResult struct {
	Loans []models.Loan `json:"loans"`
	Total int64         `json:"total"`
}

func (r *Repo) ListLoans(ctx context.Context, q LoanQuery) (ListLoansResult, error) {
	offset, limit := q.Page.normalize(200)

	tx := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Joins("LEFT JOIN " + models.UserTable + " u ON u.id = lsb_loans.user_id").
		Joins("LEFT JOIN " + models.ToolTable + " t ON t.id = lsb_loans.tool_id")
	if strings.TrimSpace(q.Q) != "" {
		like := likePattern(q.Q)
		tx = tx.Where("LOWER(u.name) LIKE ? OR LOWER(t.name) LIKE ? OR LOWER(lsb_loans.status) LIKE ? OR LOWER(lsb_loans.location) LIKE ?",
			like, like, like, like)
	}
	if q.ToolID != "" {
		tx = tx.Where("lsb_loans.tool_id = ?", q.ToolID)
	}
	if q.UserID != "" {
		tx = tx.Where("lsb_loans.user_id = ?", q.UserID)
	}
	if q.ProjectID != "" {
		tx = tx.Where("lsb_loans.project_id = ?", q.ProjectID)
	}
	if q.Status != "" {
		tx = tx.Where("lsb_loans.status = ?", q.Status)
	}
	if q.Overdue {
		tx = tx.Where("lsb_loans.status = ? OR (lsb_loans.status = ? AND lsb_loans.return_date < ?)",
			models.LoanOverdue, models.LoanBorrowed, dateOnly(r.now()))
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListLoansResult{}, err
	}
	loans := []models.Loan{}
	if err := r.withLoanRelations(tx).
		Order("lsb_loans.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&loans).Error; err != nil {
		return ListLoansResult{}, err
	}
	r.markOverdue(loans)
	return ListLoansResult{Loans: loans, Total: total}, nil
}

type UserActivity struct {
	User        models.User            `json:"user"`
	Loans       []models.Loan          `json:"loans"`
	ActiveLoans int                    `json:"activeLoans"`
	Summary     models.QuantitySummary `json:"summary"`
}

// UserActivity 某个用户的全部借用及分项汇总
func (r *Repo) UserActivity(ctx context.Context, userID string) (*UserActivity, error) {
	u, err := r.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	loans, err := r.loansWhere(ctx, "lsb_loans.user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	act := &UserActivity{User: *u, Loans: loans, Summary: models.SummarizeLoans(loans)}
	for _, l := range loans {
		if l.Status.Open() {
			act.ActiveLoans++
		}
	}
	return act, nil
}
