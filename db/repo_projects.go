package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tool_lending_admin/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectInput struct {
	Name       string
	ClientName string
	Address    string
	StartDate  *time.Time
	EndDate    *time.Time
	Status     models.ProjectStatus
}

func checkProjectDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return fmt.Errorf("end date before start date: %w", ErrInvalidInput)
	}
	return nil
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := dateOnly(*t)
	return &d
}

func (r *Repo) CreateProject(ctx context.Context, in ProjectInput) (*models.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	if in.Status == "" {
		in.Status = models.ProjectPlanned
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("unknown project status %q: %w", in.Status, ErrInvalidInput)
	}
	if err := checkProjectDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	p := &models.Project{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		ClientName: strings.TrimSpace(in.ClientName),
		Address:    strings.TrimSpace(in.Address),
		StartDate:  datePtr(in.StartDate),
		EndDate:    datePtr(in.EndDate),
		Status:     in.Status,
	}
	if err := r.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, wrap("create project", err)
	}
	return p, nil
}

func (r *Repo) FindProjectByID(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	if err := r.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, wrap("find project", err)
	}
	return &p, nil
}

type ProjectPatch struct {
	Name       *string
	ClientName *string
	Address    *string
	StartDate  *time.Time
	EndDate    *time.Time
	Status     *models.ProjectStatus
}

func (r *Repo) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*models.Project, error) {
	var p models.Project
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return err
		}
		if patch.Name != nil {
			if strings.TrimSpace(*patch.Name) == "" {
				return fmt.Errorf("name is required: %w", ErrInvalidInput)
			}
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.ClientName != nil {
			p.ClientName = strings.TrimSpace(*patch.ClientName)
		}
		if patch.Address != nil {
			p.Address = strings.TrimSpace(*patch.Address)
		}
		if patch.StartDate != nil {
			p.StartDate = datePtr(patch.StartDate)
		}
		if patch.EndDate != nil {
			p.EndDate = datePtr(patch.EndDate)
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return fmt.Errorf("unknown project status %q: %w", *patch.Status, ErrInvalidInput)
			}
			p.Status = *patch.Status
		}
		if err := checkProjectDates(p.StartDate, p.EndDate); err != nil {
			return err
		}
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, wrap("update project", err)
	}
	return &p, nil
}

type ProjectQuery struct {
	Q      string // 名称 / 客户 / 地址
	Status models.ProjectStatus
	Page
}

type ListProjectsResult struct {
	Projects []models.Project `json:"projects"`
	Total    int64            `json:"total"`
}

func (r *Repo) ListProjects(ctx context.Context, q ProjectQuery) (ListProjectsResult, error) {
	offset, limit := q.Page.normalize(200)

	tx := r.DB.WithContext(ctx).Model(&models.Project{})
	if strings.TrimSpace(q.Q) != "" {
		like := likePattern(q.Q)
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(client_name) LIKE ? OR LOWER(address) LIKE ?", like, like, like)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListProjectsResult{}, err
	}
	projects := []models.Project{}
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&projects).Error; err != nil {
		return ListProjectsResult{}, err
	}
	return ListProjectsResult{Projects: projects, Total: total}, nil
}

// DeleteProject 删除项目及其借用记录，未结数量回到库存
func (r *Repo) DeleteProject(ctx context.Context, id string) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Select("id").First(&p, "id = ?", id).Error; err != nil {
			return err
		}
		var loans []models.Loan
		if err := tx.Where("project_id = ?", id).Order("tool_id").Find(&loans).Error; err != nil {
			return err
		}
		if err := restockAndDelete(tx, loans, r.now()); err != nil {
			return err
		}
		return tx.Delete(&models.Project{ID: id}).Error
	})
	return wrap("delete project", err)
}

type ProjectDetails struct {
	Project models.Project         `json:"project"`
	Loans   []models.Loan          `json:"loans"`
	Summary models.QuantitySummary `json:"summary"`
}

func (r *Repo) ProjectDetails(ctx context.Context, id string) (*ProjectDetails, error) {
	p, err := r.FindProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	loans, err := r.loansWhere(ctx, "lsb_loans.project_id = ?", id)
	if err != nil {
		return nil, err
	}
	return &ProjectDetails{Project: *p, Loans: loans, Summary: models.SummarizeLoans(loans)}, nil
}
