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

type MaintenanceInput struct {
	ToolID      string
	Description string
	Date        time.Time
	Cost        decimal.Decimal
	Quantity    int
}

// CreateMaintenance 新建维修记录，工具同时置为不可借
func (r *Repo) CreateMaintenance(ctx context.Context, in MaintenanceInput) (*models.Maintenance, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("maintenance quantity must be positive: %w", ErrInvalidQuantity)
	}
	if in.Cost.IsNegative() {
		return nil, fmt.Errorf("cost cannot be negative: %w", ErrInvalidInput)
	}
	now := r.now()
	if in.Date.IsZero() {
		in.Date = now
	}

	m := &models.Maintenance{
		ID:          uuid.NewString(),
		ToolID:      in.ToolID,
		Description: strings.TrimSpace(in.Description),
		Date:        dateOnly(in.Date),
		Cost:        in.Cost.Round(2),
		Quantity:    in.Quantity,
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockTool(tx, in.ToolID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&models.Tool{}).Where("id = ?", in.ToolID).
			Updates(map[string]any{"availability": false, "updated_at": now}).Error
	})
	if err != nil {
		return nil, wrap("create maintenance", err)
	}
	return m, nil
}

// MarkFixed OPEN → FIXED；同一工具没有其他未完成维修时恢复可借
func (r *Repo) MarkFixed(ctx context.Context, id string) (*models.Maintenance, error) {
	now := r.now()
	var m models.Maintenance
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
			return err
		}
		if !m.Open() {
			return ErrAlreadyFixed
		}
		if _, err := lockTool(tx, m.ToolID); err != nil {
			return err
		}
		m.FixedDate = &now
		if err := tx.Model(&models.Maintenance{}).Where("id = ?", m.ID).
			Updates(map[string]any{"fixed_date": now, "updated_at": now}).Error; err != nil {
			return err
		}
		return r.releaseTool(tx, m.ToolID, m.ID, now)
	})
	if err != nil {
		return nil, wrap("mark fixed", err)
	}
	r.fillDuration(&m)
	return &m, nil
}

func (r *Repo) releaseTool(tx *gorm.DB, toolID, exceptID string, now time.Time) error {
	open, err := hasOpenMaintenance(tx, toolID, exceptID)
	if err != nil || open {
		return err
	}
	return tx.Model(&models.Tool{}).Where("id = ?", toolID).
		Updates(map[string]any{"availability": true, "updated_at": now}).Error
}

type MaintenancePatch struct {
	Description *string
	Date        *time.Time
	Cost        *decimal.Decimal
	Quantity    *int
}

// UpdateMaintenance 只改内容字段，不改变 OPEN/FIXED 状态
func (r *Repo) UpdateMaintenance(ctx context.Context, id string, p MaintenancePatch) (*models.Maintenance, error) {
	var m models.Maintenance
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
			return err
		}
		updates := map[string]any{}
		if p.Description != nil {
			updates["description"] = strings.TrimSpace(*p.Description)
		}
		if p.Date != nil {
			updates["date"] = dateOnly(*p.Date)
		}
		if p.Cost != nil {
			if p.Cost.IsNegative() {
				return fmt.Errorf("cost cannot be negative: %w", ErrInvalidInput)
			}
			updates["cost"] = p.Cost.Round(2)
		}
		if p.Quantity != nil {
			if *p.Quantity <= 0 {
				return fmt.Errorf("maintenance quantity must be positive: %w", ErrInvalidQuantity)
			}
			updates["quantity"] = *p.Quantity
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = r.now()
		if err := tx.Model(&models.Maintenance{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&m, "id = ?", id).Error
	})
	if err != nil {
		return nil, wrap("update maintenance", err)
	}
	r.fillDuration(&m)
	return &m, nil
}

// DeleteMaintenance 删除未完成的维修时按需恢复工具可借
func (r *Repo) DeleteMaintenance(ctx context.Context, id string) error {
	now := r.now()
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Maintenance
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Maintenance{ID: m.ID}).Error; err != nil {
			return err
		}
		if !m.Open() {
			return nil
		}
		if _, err := lockTool(tx, m.ToolID); err != nil {
			return err
		}
		return r.releaseTool(tx, m.ToolID, m.ID, now)
	})
	return wrap("delete maintenance", err)
}

func (r *Repo) fillDuration(m *models.Maintenance) {
	d := m.Duration(r.now())
	m.DurationDays = &d
}

func (r *Repo) FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error) {
	var m models.Maintenance
	if err := r.DB.WithContext(ctx).Preload("Tool").First(&m, "id = ?", id).Error; err != nil {
		return nil, wrap("find maintenance", err)
	}
	r.fillDuration(&m)
	return &m, nil
}

type MaintenanceQuery struct {
	Q      string // 描述 / 工具名
	ToolID string
	Open   *bool
	Page
}

type ListMaintenanceResult struct {
	Records []models.Maintenance `json:"maintenance"`
	Total   int64                `json:"total"`
}

func (r *Repo) ListMaintenance(ctx context.Context, q MaintenanceQuery) (ListMaintenanceResult, error) {
	offset, limit := q.Page.normalize(200)

	tx := r.DB.WithContext(ctx).Model(&models.Maintenance{}).
		Joins("LEFT JOIN " + models.ToolTable + " t ON t.id = lsb_maintenance.tool_id")
	if strings.TrimSpace(q.Q) != "" {
		like := likePattern(q.Q)
		tx = tx.Where("LOWER(lsb_maintenance.description) LIKE ? OR LOWER(t.name) LIKE ?", like, like)
	}
	if q.ToolID != "" {
		tx = tx.Where("lsb_maintenance.tool_id = ?", q.ToolID)
	}
	if q.Open != nil {
		if *q.Open {
			tx = tx.Where("lsb_maintenance.fixed_date IS NULL")
		} else {
			tx = tx.Where("lsb_maintenance.fixed_date IS NOT NULL")
		}
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListMaintenanceResult{}, err
	}
	records := []models.Maintenance{}
	if err := tx.Preload("Tool").
		Order("lsb_maintenance.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&records).Error; err != nil {
		return ListMaintenanceResult{}, err
	}
	for i := range records {
		r.fillDuration(&records[i])
	}
	return ListMaintenanceResult{Records: records, Total: total}, nil
}
