package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"tool_lending_admin/app"
	"tool_lending_admin/db"
	"tool_lending_admin/storage"

	"github.com/gin-gonic/gin"
)

type errMapping struct {
	target error
	status int
	code   string
}

// 业务错误 -> HTTP；未列出的一律 500
var errMappings = []errMapping{
	{db.ErrNotFound, http.StatusNotFound, "not_found"},
	{db.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{db.ErrUnavailable, http.StatusConflict, "tool_unavailable"},
	{db.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{db.ErrAlreadyFixed, http.StatusConflict, "already_fixed"},
	{db.ErrUserHasLoans, http.StatusConflict, "user_has_loans"},
	{db.ErrDuplicate, http.StatusConflict, "duplicate"},
	{db.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{db.ErrQuantityOverflow, http.StatusBadRequest, "quantity_overflow"},
	{db.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{storage.ErrUnsupportedType, http.StatusBadRequest, "unsupported_type"},
}

// fail 写错误响应
func fail(c *gin.Context, err error) {
	for _, m := range errMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, app.H{"error": err.Error(), "code": m.code})
			return
		}
	}
	slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	c.JSON(http.StatusInternalServerError, app.H{"error": "internal error", "code": "internal"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, app.H{"error": msg, "code": "bad_request"})
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized", "code": "unauthorized"})
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, app.H{"error": "forbidden", "code": "forbidden"})
}
