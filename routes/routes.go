package routes

import (
	"tool_lending_admin/app"
	"tool_lending_admin/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	uc := controllers.NewUserController(s)
	tc := controllers.NewToolController(s)
	lc := controllers.NewLoanController(s)
	mc := controllers.NewMaintenanceController(s)
	pc := controllers.NewProjectController(s)
	health := controllers.Health{DB: a.DB, RDB: a.RDB}

	// 复用的中间件
	authMW := app.AuthRequired(a.AppSessions(), a.Repo)
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(a.Repo, a.RDB, a.Config.SeenEvery)

	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	// ------------------------------
	// 账号：密码登录 / 登出 / 个人资料
	// ------------------------------
	auth := r.Group("/auth")
	{
		auth.POST("/login", s.Login)
		auth.POST("/logout", s.Logout)
	}
	authed := auth.Group("", authMW, seenMW)
	{
		authed.GET("/whoami", s.WhoAmI)
		authed.PUT("/profile", s.UpdateProfile)
		authed.POST("/profile/picture", s.UploadProfilePicture)
	}

	// ------------------------------
	// WebAuthn：Passkey 登录（公开）+ 绑定新 Passkey（已登录）
	// ------------------------------
	wa := r.Group("/webauthn")
	{
		wa.POST("/login/begin", s.BeginLogin)
		wa.POST("/login/finish", s.FinishLogin)
	}
	waAuth := wa.Group("/credentials", authMW, seenMW)
	{
		waAuth.POST("/add/begin", s.BeginAddCredential)
		waAuth.POST("/add/finish", s.FinishAddCredential)
	}

	// ------------------------------
	// 业务 API：登录即可读，写操作仅管理员（借用除外）
	// ------------------------------
	api := r.Group("/api", authMW, seenMW)
	admin := api.Group("", adminMW)

	api.GET("/stats", s.Stats)

	api.GET("/tools", tc.ListTools) // ?q=&type=&available=&lowStock=&page=&size=
	api.GET("/tools/:id", tc.GetTool)
	api.GET("/tools/:id/loans", tc.ToolLoans)
	admin.POST("/tools", tc.CreateTool)
	admin.PUT("/tools/:id", tc.UpdateTool)
	admin.DELETE("/tools/:id", tc.DeleteTool)
	admin.POST("/tools/:id/picture", tc.UploadPicture)

	api.GET("/loans", lc.ListLoans) // ?q=&toolId=&userId=&projectId=&status=&overdue=
	api.GET("/loans/:id", lc.GetLoan)
	api.POST("/loans", lc.CreateLoan)
	admin.PUT("/loans/:id", lc.UpdateLoan)
	admin.DELETE("/loans/:id", lc.DeleteLoan)

	api.GET("/maintenance", mc.List) // ?q=&toolId=&open=
	api.GET("/maintenance/:id", mc.Get)
	admin.POST("/maintenance", mc.Create)
	admin.PUT("/maintenance/:id", mc.Update)
	admin.POST("/maintenance/:id/fix", mc.MarkFixed)
	admin.DELETE("/maintenance/:id", mc.Delete)

	api.GET("/projects", pc.List) // ?q=&status=
	api.GET("/projects/:id", pc.Get)
	api.GET("/projects/:id/details", pc.Details)
	admin.POST("/projects", pc.Create)
	admin.PUT("/projects/:id", pc.Update)
	admin.DELETE("/projects/:id", pc.Delete)

	// 用户管理（仅管理员）
	users := admin.Group("/users")
	{
		users.GET("", uc.ListUsers) // ?q=&page=&size=
		users.GET("/:id", uc.GetUser)
		users.GET("/:id/activity", uc.Activity)
		users.POST("", uc.CreateUser)
		users.PUT("/:id", uc.UpdateUser)
		users.DELETE("/:id", uc.DeleteUser)
		users.POST("/:id/picture", uc.UploadPicture)
	}
}
