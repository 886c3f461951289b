package controllers

import (
	"log/slog"
	"net/http"

	"tool_lending_admin/app"
	"tool_lending_admin/db"

	"github.com/gin-gonic/gin"
)

// POST /auth/login  CIN + 密码登录
func (s *Srv) Login(c *gin.Context) {
	var in struct {
		CIN      string `json:"cin" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := s.Repo.Authenticate(c.Request.Context(), in.CIN, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.issueSession(c.Request.Context(), c.Writer, u, c.ClientIP(), c.Request.UserAgent()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// POST /auth/logout
func (s *Srv) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		if err := s.AppSess.Delete(c.Request.Context(), ck.Value); err != nil {
			slog.Warn("delete session", "err", err)
		}
	}
	s.clearAppCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /auth/whoami
func (s *Srv) WhoAmI(c *gin.Context) {
	p, ok := app.CurrentPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	u, err := s.Repo.FindUserByID(c.Request.Context(), p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	n, err := s.Repo.CountCredentials(c.Request.Context(), p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u, "isAdmin": p.IsAdmin, "credentials": n})
}

// PUT /auth/profile  本人修改姓名 / CIN / 密码
// 改密码需要 currentPassword，成功后其它会话全部失效
func (s *Srv) UpdateProfile(c *gin.Context) {
	p, ok := app.CurrentPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	var in struct {
		Name            *string `json:"name"`
		CIN             *string `json:"cin"`
		Password        *string `json:"password"`
		CurrentPassword string  `json:"currentPassword"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	if in.Password != nil {
		me, err := s.Repo.FindUserByID(ctx, p.UserID)
		if err != nil {
			fail(c, err)
			return
		}
		if _, err := s.Repo.Authenticate(ctx, me.CIN, in.CurrentPassword); err != nil {
			fail(c, err)
			return
		}
	}

	u, err := s.Repo.UpdateUser(ctx, p.UserID, db.UserPatch{Name: in.Name, CIN: in.CIN, Password: in.Password})
	if err != nil {
		fail(c, err)
		return
	}

	if in.Password != nil {
		if err := s.AppSess.RevokeAllForUser(ctx, u.ID); err != nil {
			fail(c, err)
			return
		}
		if err := s.issueSession(ctx, c.Writer, u, c.ClientIP(), c.Request.UserAgent()); err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// POST /auth/profile/picture
func (s *Srv) UploadProfilePicture(c *gin.Context) {
	p, ok := app.CurrentPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	url, ok := s.storeImage(c, "users", p.UserID)
	if !ok {
		return
	}
	if err := s.Repo.SetUserPicture(c.Request.Context(), p.UserID, url); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"picture": url})
}
