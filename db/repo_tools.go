package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tool_lending_admin/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// lockTool 事务内锁住工具行（SELECT ... FOR UPDATE）
func lockTool(tx *gorm.DB, id string) (*models.Tool, error) {
	var t models.Tool
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// adjustStock 在库数量加减 delta；扣减时带 quantity >= ? 条件，库存不会变成负数
func adjustStock(tx *gorm.DB, toolID string, delta int, now time.Time) error {
	if delta == 0 {
		return nil
	}
	q := tx.Model(&models.Tool{}).Where("id = ?", toolID)
	if delta < 0 {
		q = q.Where("quantity >= ?", -delta)
	}
	res := q.Updates(map[string]any{
		"quantity":   gorm.Expr("quantity + ?", delta),
		"updated_at": now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func hasOpenMaintenance(tx *gorm.DB, toolID, exceptID string) (bool, error) {
	var n int64
	q := tx.Model(&models.Maintenance{}).Where("tool_id = ? AND fixed_date IS NULL", toolID)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

type ToolInput struct {
	Name         string
	Type         models.ToolType
	Condition    models.ToolCondition
	Quantity     int
	Price        decimal.Decimal
	PurchaseDate time.Time
	Picture      string
}

func (in *ToolInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return fmt.Errorf("name is required: %w", ErrInvalidInput)
	case !in.Type.Valid():
		return fmt.Errorf("unknown tool type %q: %w", in.Type, ErrInvalidInput)
	case !in.Condition.Valid():
		return fmt.Errorf("unknown condition %q: %w", in.Condition, ErrInvalidInput)
	case in.Quantity <= 0:
		return fmt.Errorf("tool quantity must be positive: %w", ErrInvalidQuantity)
	case !in.Price.IsPositive():
		return fmt.Errorf("price must be positive: %w", ErrInvalidInput)
	case in.PurchaseDate.IsZero():
		return fmt.Errorf("purchase date is required: %w", ErrInvalidInput)
	}
	return nil
}

func (r *Repo) CreateTool(ctx context.Context, in ToolInput) (*models.Tool, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t := &models.Tool{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Type:         in.Type,
		Condition:    in.Condition,
		Quantity:     in.Quantity,
		Price:        in.Price.Round(2),
		PurchaseDate: dateOnly(in.PurchaseDate),
		Picture:      in.Picture,
		Availability: true,
	}
	if err := r.DB.WithContext(ctx).Create(t).Error; err != nil {
		return nil, wrap("create tool", err)
	}
	return t, nil
}

func (r *Repo) FindToolByID(ctx context.Context, id string) (*models.Tool, error) {
	var t models.Tool
	if err := r.DB.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, wrap("find tool", err)
	}
	return &t, nil
}

// ToolPatch 中 nil 字段保持不变
type ToolPatch struct {
	Name         *string
	Type         *models.ToolType
	Condition    *models.ToolCondition
	Quantity     *int
	Price        *decimal.Decimal
	PurchaseDate *time.Time
	Availability *bool
}

func (r *Repo) UpdateTool(ctx context.Context, id string, p ToolPatch) (*models.Tool, error) {
	var t *models.Tool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if t, err = lockTool(tx, id); err != nil {
			return err
		}
		updates := map[string]any{}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return fmt.Errorf("name is required: %w", ErrInvalidInput)
			}
			updates["name"] = name
		}
		if p.Type != nil {
			if !p.Type.Valid() {
				return fmt.Errorf("unknown tool type %q: %w", *p.Type, ErrInvalidInput)
			}
			updates["type"] = *p.Type
		}
		if p.Condition != nil {
			if !p.Condition.Valid() {
				return fmt.Errorf("unknown condition %q: %w", *p.Condition, ErrInvalidInput)
			}
			updates["condition"] = *p.Condition
		}
		if p.Quantity != nil {
			if *p.Quantity < 0 {
				return fmt.Errorf("tool quantity cannot be negative: %w", ErrInvalidQuantity)
			}
			updates["quantity"] = *p.Quantity
		}
		if p.Price != nil {
			if !p.Price.IsPositive() {
				return fmt.Errorf("price must be positive: %w", ErrInvalidInput)
			}
			updates["price"] = p.Price.Round(2)
		}
		if p.PurchaseDate != nil {
			updates["purchase_date"] = dateOnly(*p.PurchaseDate)
		}
		if p.Availability != nil {
			// 有未完成的维修时不能手动恢复可借
			if *p.Availability {
				open, err := hasOpenMaintenance(tx, id, "")
				if err != nil {
					return err
				}
				if open {
					return fmt.Errorf("tool has open maintenance: %w", ErrUnavailable)
				}
			}
			updates["availability"] = *p.Availability
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = r.now()
		if err := tx.Model(&models.Tool{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(t, "id = ?", id).Error
	})
	if err != nil {
		return nil, wrap("update tool", err)
	}
	return t, nil
}

func (r *Repo) SetToolPicture(ctx context.Context, id, url string) error {
	res := r.DB.WithContext(ctx).Model(&models.Tool{}).Where("id = ?", id).
		Updates(map[string]any{"picture": url, "updated_at": r.now()})
	if res.Error != nil {
		return wrap("set tool picture", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set tool picture: %w", ErrNotFound)
	}
	return nil
}

type ToolQuery struct {
	Q         string // 名称/类型/状况模糊匹配
	Type      string
	Available *bool
	LowStock  bool
	Threshold int
	Page
}

type ListToolsResult struct {
	Tools []models.Tool `json:"tools"`
	Total int64         `json:"total"`
}

func (r *Repo) ListTools(ctx context.Context, q ToolQuery) (ListToolsResult, error) {
	offset, limit := q.Page.normalize(200)

	tx := r.DB.WithContext(ctx).Model(&models.Tool{})
	if strings.TrimSpace(q.Q) != "" {
		like := likePattern(q.Q)
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(type) LIKE ? OR LOWER(condition) LIKE ?", like, like, like)
	}
	if q.Type != "" {
		tx = tx.Where("type = ?", q.Type)
	}
	if q.Available != nil {
		tx = tx.Where("availability = ?", *q.Available)
	}
	if q.LowStock {
		th := q.Threshold
		if th <= 0 {
			th = models.DefaultLowStock
		}
		tx = tx.Where("quantity < ?", th)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListToolsResult{}, err
	}
	tools := []models.Tool{}
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&tools).Error; err != nil {
		return ListToolsResult{}, err
	}
	return ListToolsResult{Tools: tools, Total: total}, nil
}

// DeleteTool 连同该工具的借用和维修记录一起删除
func (r *Repo) DeleteTool(ctx context.Context, id string) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockTool(tx, id); err != nil {
			return err
		}
		if err := tx.Where("tool_id = ?", id).Delete(&models.Loan{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tool_id = ?", id).Delete(&models.Maintenance{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Tool{ID: id}).Error
	})
	return wrap("delete tool", err)
}

func (r *Repo) ToolLoans(ctx context.Context, id string) ([]models.Loan, error) {
	if _, err := r.FindToolByID(ctx, id); err != nil {
		return nil, err
	}
	return r.loansWhere(ctx, "lsb_loans.tool_id = ?", id)
}
