package app

import (
	"context"
	"log/slog"

	"tool_lending_admin/config"
	"tool_lending_admin/db"
)

// BootstrapFirstAdmin 设置了 BOOTSTRAP_ADMIN_CIN/PASSWORD 且还没有管理员时创建一个
func BootstrapFirstAdmin(ctx context.Context, cfg config.Config, repo *db.Repo) error {
	if cfg.BootstrapCIN == "" || cfg.BootstrapPassword == "" {
		return nil
	}
	u, err := repo.EnsureAdmin(ctx, db.UserInput{
		Name:     cfg.BootstrapName,
		CIN:      cfg.BootstrapCIN,
		Password: cfg.BootstrapPassword,
	})
	if err != nil {
		return err
	}
	if u == nil {
		slog.Debug("admin already present, bootstrap skipped")
		return nil
	}
	slog.Info("bootstrap admin created", "cin", u.CIN, "id", u.ID)
	return nil
}
