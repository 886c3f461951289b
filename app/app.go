package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tool_lending_admin/config"
	"tool_lending_admin/db"
	"tool_lending_admin/metrics"
	"tool_lending_admin/session"
	"tool_lending_admin/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router  *gin.Engine
	DB      *gorm.DB
	Repo    *db.Repo
	RDB     *redis.Client
	WA      *webauthn.WebAuthn
	Storage storage.Storage
	Metrics *metrics.Collector
	Config  config.Config

	appSess *session.AppSessionStore
	waSess  *session.Store
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }
func (a *App) Ceremonies() *session.Store            { return a.waSess }

// New 连接 Postgres / Redis，初始化 WebAuthn、存储和路由引擎
func New(ctx context.Context, cfg config.Config) (*App, error) {
	// --- DB: Postgres ---
	gdb, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: cfg.RedisDB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	// --- WebAuthn RP ---
	wa, err := NewWebAuthn(cfg)
	if err != nil {
		return nil, err
	}

	// --- 图片存储 ---
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return Assemble(cfg, gdb, rdb, wa, store, metrics.NewCollector()), nil
}

func NewWebAuthn(cfg config.Config) (*webauthn.WebAuthn, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "LSB Outillage",
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn: %w", err)
	}
	return wa, nil
}

// Assemble 用现成的依赖组装 App（测试里直接传 sqlite / redismock）
func Assemble(cfg config.Config, gdb *gorm.DB, rdb *redis.Client, wa *webauthn.WebAuthn, store storage.Storage, m *metrics.Collector) *App {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), m.Middleware())
	useCORS(r, cfg)

	// 本地存储时直接由本服务提供图片
	if d, ok := store.(*storage.DiskStore); ok {
		r.StaticFS("/uploads", http.Dir(d.Root()))
	}

	return &App{
		Router:  r,
		DB:      gdb,
		Repo:    db.NewRepo(gdb),
		RDB:     rdb,
		WA:      wa,
		Storage: store,
		Metrics: m,
		Config:  cfg,
		appSess: session.NewAppSessionStore(rdb, cfg.AppTTL),
		waSess:  session.NewStore(rdb, cfg.SessionTTL),
	}
}

func (a *App) Close() {
	if err := a.RDB.Close(); err != nil {
		slog.Warn("close redis", "err", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
