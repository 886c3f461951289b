package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"tool_lending_admin/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// newTestRepo 每个测试一个独立的内存 SQLite
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	gdb, err := Open(sqlite.Open("file:" + name + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(models.All()...))

	r := NewRepo(gdb)
	r.hashCost = bcrypt.MinCost
	r.now = func() time.Time { return testNow }
	return r
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func seedUser(t *testing.T, r *Repo, cin string) *models.User {
	t.Helper()
	u, err := r.CreateUser(context.Background(), UserInput{Name: "User " + cin, CIN: cin, Role: "technicien", Password: "secret"})
	require.NoError(t, err)
	return u
}

func seedTool(t *testing.T, r *Repo, qty int) *models.Tool {
	t.Helper()
	tool, err := r.CreateTool(context.Background(), ToolInput{
		Name:         "Perceuse",
		Type:         models.ToolElectric,
		Condition:    models.ConditionGood,
		Quantity:     qty,
		Price:        decimal.RequireFromString("120.50"),
		PurchaseDate: day(2023, 6, 1),
	})
	require.NoError(t, err)
	return tool
}

func toolQty(t *testing.T, r *Repo, id string) int {
	t.Helper()
	tool, err := r.FindToolByID(context.Background(), id)
	require.NoError(t, err)
	return tool.Quantity
}

func countRows(t *testing.T, r *Repo, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, r.DB.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
