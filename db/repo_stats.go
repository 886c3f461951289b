package db

import (
	"context"

	"tool_lending_admin/models"
	"tool_lending_admin/stats"
)

// LoadSnapshot 读出统计所需的全部数据（用户/项目只取数量）
func (r *Repo) LoadSnapshot(ctx context.Context) (stats.Snapshot, error) {
	var s stats.Snapshot
	db := r.DB.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&s.Users).Error; err != nil {
		return s, err
	}
	if err := db.Model(&models.Project{}).Count(&s.Projects).Error; err != nil {
		return s, err
	}
	if err := db.Find(&s.Tools).Error; err != nil {
		return s, err
	}
	if err := db.Find(&s.Loans).Error; err != nil {
		return s, err
	}
	if err := db.Find(&s.Maintenance).Error; err != nil {
		return s, err
	}
	return s, nil
}
