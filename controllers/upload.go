package controllers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"tool_lending_admin/app"
	"tool_lending_admin/storage"

	"github.com/gin-gonic/gin"
)

// storeImage 读取 multipart 的 file 字段，校验后写入存储，返回图片 URL
// 出错时已写好响应，ok=false
func (s *Srv) storeImage(c *gin.Context, kind, ownerID string) (string, bool) {
	limit := s.Cfg.MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20) // 给 multipart 头部留余量

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, app.H{"error": "file too large", "code": "too_large"})
			return "", false
		}
		badRequest(c, "missing file")
		return "", false
	}
	if fh.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, app.H{"error": "file too large", "code": "too_large"})
		return "", false
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return "", false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		fail(c, err)
		return "", false
	}

	ct, ext, err := storage.SniffImage(data)
	if err != nil {
		fail(c, err)
		return "", false
	}
	url, err := s.Storage.Put(c.Request.Context(), storage.ObjectKey(s.Cfg.S3Prefix, kind, ownerID, ext), ct, bytes.NewReader(data))
	if err != nil {
		fail(c, err)
		return "", false
	}
	return url, true
}
