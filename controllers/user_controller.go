package controllers

import (
	"net/http"

	"tool_lending_admin/app"
	"tool_lending_admin/db"

	"github.com/gin-gonic/gin"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	res, err := uc.Repo.ListUsers(c.Request.Context(), c.Query("q"), pageOf(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": user})
}

// POST /api/users
func (uc *UserController) CreateUser(c *gin.Context) {
	var in struct {
		Name     string `json:"name" binding:"required"`
		CIN      string `json:"cin" binding:"required"`
		Role     string `json:"role"`
		Password string `json:"password" binding:"required"`
		IsAdmin  bool   `json:"isAdmin"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := uc.Repo.CreateUser(c.Request.Context(), db.UserInput{
		Name: in.Name, CIN: in.CIN, Role: in.Role, Password: in.Password, IsAdmin: in.IsAdmin,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"user": u})
}

// PUT /api/users/:id
func (uc *UserController) UpdateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Name     *string `json:"name"`
		CIN      *string `json:"cin"`
		Role     *string `json:"role"`
		Password *string `json:"password"`
		IsAdmin  *bool   `json:"isAdmin"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	// 不允许取消自己的管理员身份，避免锁死
	if p, _ := app.CurrentPrincipal(c); p.UserID == id && in.IsAdmin != nil && !*in.IsAdmin {
		badRequest(c, "cannot revoke your own admin role")
		return
	}
	u, err := uc.Repo.UpdateUser(c.Request.Context(), id, db.UserPatch{
		Name: in.Name, CIN: in.CIN, Role: in.Role, Password: in.Password, IsAdmin: in.IsAdmin,
	})
	if err != nil {
		fail(c, err)
		return
	}
	// 密码或权限变了，已有会话作废
	if in.Password != nil || in.IsAdmin != nil {
		if err := uc.AppSess.RevokeAllForUser(c.Request.Context(), id); err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// DELETE /api/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if p, _ := app.CurrentPrincipal(c); p.UserID == id {
		badRequest(c, "cannot delete yourself")
		return
	}

	// 有借用记录的用户拒绝删除；credentials 随用户一起删
	if err := uc.Repo.DeleteUser(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	// 撤销该用户的所有登录会话
	if err := uc.AppSess.RevokeAllForUser(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// POST /api/users/:id/picture  multipart file
func (uc *UserController) UploadPicture(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := uc.Repo.FindUserByID(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	url, ok := uc.storeImage(c, "users", id)
	if !ok {
		return
	}
	if err := uc.Repo.SetUserPicture(c.Request.Context(), id, url); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"picture": url})
}

// GET /api/users/:id/activity
func (uc *UserController) Activity(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	act, err := uc.Repo.UserActivity(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, act)
}
