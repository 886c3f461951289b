package controllers

import (
	"context"
	"net/http"
	"time"

	"tool_lending_admin/app"
	"tool_lending_admin/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Health struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func (h Health) Healthz(c *gin.Context) { c.JSON(http.StatusOK, app.H{"ok": true}) }

// Readyz 数据库和 Redis 都可用才算就绪
func (h Health) Readyz(c *gin.Context) {
	checks := app.H{"db": "ok", "redis": "ok"}
	ready := true
	if err := db.Ping(c.Request.Context(), h.DB); err != nil {
		checks["db"] = err.Error()
		ready = false
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.RDB.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		ready = false
	}
	if !ready {
		c.JSON(http.StatusServiceUnavailable, app.H{"ok": false, "checks": checks})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "checks": checks})
}
