package app

import (
	"log/slog"
	"time"

	"tool_lending_admin/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TouchLastSeen 每个用户每 throttle 最多写一次 last_seen_at
func TouchLastSeen(repo *db.Repo, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok || p.UserID == "" {
			c.Next()
			return
		}

		key := "user:lastseen:" + p.UserID
		if ok, _ := rdb.SetNX(c.Request.Context(), key, "1", throttle).Result(); ok {
			if err := repo.TouchUserSeen(c.Request.Context(), p.UserID); err != nil {
				slog.Warn("touch last seen", "user", p.UserID, "err", err) // 不阻塞请求
			}
		}
		c.Next()
	}
}
