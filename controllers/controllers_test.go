package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tool_lending_admin/app"
	"tool_lending_admin/config"
	"tool_lending_admin/db"
	"tool_lending_admin/metrics"
	"tool_lending_admin/models"
	"tool_lending_admin/session"
	"tool_lending_admin/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

type testEnv struct {
	s     *Srv
	repo  *db.Repo
	redis redismock.ClientMock
	disk  *storage.DiskStore
	admin *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	gdb, err := db.Open(sqlite.Open("file:ctl_" + name + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(models.All()...))

	disk, err := storage.NewDiskStore(t.TempDir(), "http://test/uploads")
	require.NoError(t, err)
	rdb, mock := redismock.NewClientMock()
	repo := db.NewRepo(gdb)
	cfg := config.Config{
		LowStockThreshold: 5, MaxUploadBytes: 4 << 10, S3Prefix: "pictures",
		RPID: "localhost", RPOrigins: []string{"http://localhost:5173"},
	}
	wa, err := app.NewWebAuthn(cfg)
	require.NoError(t, err)

	admin, err := repo.CreateUser(context.Background(), db.UserInput{
		Name: "Admin", CIN: "AD1", Password: "secret", IsAdmin: true,
	})
	require.NoError(t, err)

	return &testEnv{
		s: &Srv{
			WA:      wa,
			Repo:    repo,
			Sess:    session.NewStore(rdb, 10*time.Minute),
			AppSess: session.NewAppSessionStore(rdb, time.Hour),
			Storage: disk,
			Metrics: metrics.NewCollector(),
			Cfg:     cfg,
		},
		repo:  repo,
		redis: mock,
		disk:  disk,
		admin: admin,
	}
}

func (e *testEnv) asAdmin() app.Principal {
	return app.Principal{UserID: e.admin.ID, Name: e.admin.Name, IsAdmin: true}
}

// router 与线上路由一致，但登录态直接注入
func (e *testEnv) router(p app.Principal) *gin.Engine {
	s := e.s
	uc, tc, lc := NewUserController(s), NewToolController(s), NewLoanController(s)
	mc, pc := NewMaintenanceController(s), NewProjectController(s)

	r := gin.New()
	r.POST("/auth/login", s.Login)
	r.POST("/auth/logout", s.Logout)
	r.POST("/webauthn/login/begin", s.BeginLogin)
	r.POST("/webauthn/login/finish", s.FinishLogin)

	g := r.Group("", func(c *gin.Context) {
		c.Request = c.Request.WithContext(app.WithPrincipal(c.Request.Context(), p))
		c.Next()
	})
	g.POST("/webauthn/credentials/add/begin", s.BeginAddCredential)
	g.POST("/webauthn/credentials/add/finish", s.FinishAddCredential)
	g.GET("/auth/whoami", s.WhoAmI)
	g.PUT("/auth/profile", s.UpdateProfile)
	g.POST("/auth/profile/picture", s.UploadProfilePicture)

	g.GET("/api/stats", s.Stats)
	g.GET("/api/tools", tc.ListTools)
	g.POST("/api/tools", tc.CreateTool)
	g.GET("/api/tools/:id", tc.GetTool)
	g.PUT("/api/tools/:id", tc.UpdateTool)
	g.DELETE("/api/tools/:id", tc.DeleteTool)
	g.POST("/api/tools/:id/picture", tc.UploadPicture)
	g.GET("/api/tools/:id/loans", tc.ToolLoans)

	g.GET("/api/loans", lc.ListLoans)
	g.POST("/api/loans", lc.CreateLoan)
	g.GET("/api/loans/:id", lc.GetLoan)
	g.PUT("/api/loans/:id", lc.UpdateLoan)
	g.DELETE("/api/loans/:id", lc.DeleteLoan)

	g.GET("/api/maintenance", mc.List)
	g.POST("/api/maintenance", mc.Create)
	g.PUT("/api/maintenance/:id", mc.Update)
	g.POST("/api/maintenance/:id/fix", mc.MarkFixed)
	g.DELETE("/api/maintenance/:id", mc.Delete)

	g.GET("/api/projects", pc.List)
	g.POST("/api/projects", pc.Create)
	g.GET("/api/projects/:id/details", pc.Details)
	g.DELETE("/api/projects/:id", pc.Delete)

	g.GET("/api/users", uc.ListUsers)
	g.POST("/api/users", uc.CreateUser)
	g.PUT("/api/users/:id", uc.UpdateUser)
	g.DELETE("/api/users/:id", uc.DeleteUser)
	g.GET("/api/users/:id/activity", uc.Activity)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decode(t, w, &body)
	return body.Code
}

func (e *testEnv) seedTool(t *testing.T, r http.Handler, qty int) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/tools", map[string]any{
		"name":         "Perceuse",
		"type":         models.ToolElectric,
		"condition":    models.ConditionGood,
		"quantity":     qty,
		"price":        "120.50",
		"purchaseDate": "2023-06-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Tool models.Tool `json:"tool"`
	}
	decode(t, w, &out)
	return out.Tool.ID
}

func (e *testEnv) toolQty(t *testing.T, id string) int {
	t.Helper()
	tool, err := e.repo.FindToolByID(context.Background(), id)
	require.NoError(t, err)
	return tool.Quantity
}

func TestFailMapsSentinelErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("find tool: %w", db.ErrNotFound), http.StatusNotFound, "not_found"},
		{db.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{db.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
		{db.ErrUnavailable, http.StatusConflict, "tool_unavailable"},
		{db.ErrUserHasLoans, http.StatusConflict, "user_has_loans"},
		{db.ErrQuantityOverflow, http.StatusBadRequest, "quantity_overflow"},
		{storage.ErrUnsupportedType, http.StatusBadRequest, "unsupported_type"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		fail(c, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Equal(t, tc.code, errCode(t, w))
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fail(c, errors.New("pq: password authentication failed"))
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLoginInvalidCredentials(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(app.Principal{})

	w := doJSON(t, r, http.MethodPost, "/auth/login", map[string]string{"cin": "AD1", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", errCode(t, w))
	assert.Empty(t, w.Result().Cookies())

	w = doJSON(t, r, http.MethodPost, "/auth/login", map[string]string{"cin": "AD1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, e.redis.ExpectationsWereMet())
}

func TestLogoutDeletesSessionAndCookie(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(app.Principal{})

	e.redis.ExpectGet("app:sess:sid-1").RedisNil()
	e.redis.ExpectTxPipeline()
	e.redis.ExpectDel("app:sess:sid-1").SetVal(0)
	e.redis.ExpectTxPipelineExec()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: app.AppSessionCookie, Value: "sid-1"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, app.AppSessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
	assert.NoError(t, e.redis.ExpectationsWereMet())
}

func TestWhoAmI(t *testing.T) {
	e := newTestEnv(t)
	w := doJSON(t, e.router(e.asAdmin()), http.MethodGet, "/auth/whoami", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		User        models.User `json:"user"`
		IsAdmin     bool        `json:"isAdmin"`
		Credentials int64       `json:"credentials"`
	}
	decode(t, w, &out)
	assert.Equal(t, "AD1", out.User.CIN)
	assert.True(t, out.IsAdmin)
	assert.Zero(t, out.Credentials)

	w = doJSON(t, e.router(app.Principal{}), http.MethodGet, "/auth/whoami", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfilePasswordNeedsCurrentPassword(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(e.asAdmin())

	w := doJSON(t, r, http.MethodPut, "/auth/profile", map[string]string{"password": "new-secret", "currentPassword": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPut, "/auth/profile", map[string]string{"name": "Amina"})
	require.Equal(t, http.StatusOK, w.Code)
	u, err := e.repo.FindUserByID(context.Background(), e.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amina", u.Name)
	assert.NoError(t, e.redis.ExpectationsWereMet())
}

func dbUser(name, cin string) db.UserInput {
	return db.UserInput{Name: name, CIN: cin, Role: "technicien", Password: "secret"}
}
