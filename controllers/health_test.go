package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tool_lending_admin/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sqlDB, smock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()
	gdb, err := db.Open(postgres.New(postgres.Config{Conn: sqlDB}))
	require.NoError(t, err)
	rdb, rmock := redismock.NewClientMock()

	h := Health{DB: gdb, RDB: rdb}
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	smock.ExpectPing()
	rmock.ExpectPing().SetVal("PONG")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	smock.ExpectPing()
	rmock.ExpectPing().SetErr(errors.New("dial tcp: connection refused"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	assert.NoError(t, smock.ExpectationsWereMet())
	assert.NoError(t, rmock.ExpectationsWereMet())
}
