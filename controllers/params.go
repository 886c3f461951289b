package controllers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tool_lending_admin/db"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parseDate 接受 2006-01-02 或 RFC3339
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

// parseDatePtr 空串/nil 返回 nil
func parseDatePtr(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func pageOf(c *gin.Context) db.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return db.Page{Page: page, Size: size}
}

// boolQuery 未给出时返回 nil
func boolQuery(c *gin.Context, key string) (*bool, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &b, nil
}

// idParam 取路径上的 UUID
func idParam(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		badRequest(c, "invalid "+name)
		return "", false
	}
	return id, true
}

// uuidQuery 可选的 UUID 过滤参数，空串表示不过滤
func uuidQuery(c *gin.Context, key string) (string, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return "", true
	}
	if _, err := uuid.Parse(v); err != nil {
		badRequest(c, "invalid "+key)
		return "", false
	}
	return v, true
}

// uuidField 校验请求体里的 id；nil / 空串视为未填
func uuidField(name string, v *string) error {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	if _, err := uuid.Parse(strings.TrimSpace(*v)); err != nil {
		return fmt.Errorf("invalid %s", name)
	}
	return nil
}
