package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"tool_lending_admin/db"
	"tool_lending_admin/session"

	"github.com/gin-gonic/gin"
)

const AppSessionCookie = "app_session"

// Principal 当前登录用户，由 AuthRequired 放进 request context
type Principal struct {
	UserID    string
	Name      string
	IsAdmin   bool
	SessionID string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// CurrentPrincipal gin handler 里取登录用户
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	return PrincipalFrom(c.Request.Context())
}

func AuthRequired(appSess *session.AppSessionStore, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "code": "unauthorized"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if errors.Is(err, session.ErrNoSession) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session", "code": "unauthorized"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, H{"error": "session store unavailable", "code": "unavailable"})
			return
		}

		// 确认用户仍存在，并以数据库里的 isAdmin 为准
		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if errors.Is(err, db.ErrNotFound) {
			_ = appSess.Delete(c.Request.Context(), ck.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "code": "unauthorized"})
			return
		}
		if err != nil {
			// 数据库故障不清会话
			slog.Error("auth: load user", "user", as.UserID, "err", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, H{"error": "database unavailable", "code": "unavailable"})
			return
		}

		p := Principal{UserID: u.ID, Name: u.Name, IsAdmin: u.IsAdmin, SessionID: ck.Value}
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "code": "unauthorized"})
			return
		}
		if !p.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden", "code": "forbidden"})
			return
		}
		c.Next()
	}
}
