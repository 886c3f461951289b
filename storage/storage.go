// Package storage 图片存储：配置了 S3_BUCKET 用 S3（或兼容服务），否则落本地目录
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"tool_lending_admin/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrUnsupportedType 只接受常见图片格式
var ErrUnsupportedType = errors.New("unsupported file type")

type Storage interface {
	// Put 写入对象并返回可公开访问的 URL
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

var allowedImages = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// SniffImage 按内容判断类型，返回 content-type 和扩展名
func SniffImage(data []byte) (string, string, error) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowedImages[m.String()]; ok {
			return m.String(), ext, nil
		}
	}
	return "", "", fmt.Errorf("%s: %w", mt.String(), ErrUnsupportedType)
}

// ObjectKey 形如 pictures/tools/<id>/<uuid>.png
func ObjectKey(prefix, kind, ownerID, ext string) string {
	return path.Join(strings.Trim(prefix, "/"), kind, ownerID, uuid.NewString()+ext)
}

// New 根据配置选择实现
func New(ctx context.Context, cfg config.Config) (Storage, error) {
	if cfg.S3Bucket != "" {
		return NewS3Store(ctx, cfg)
	}
	base := strings.TrimRight(cfg.PublicBaseURL, "/") + "/uploads"
	return NewDiskStore(cfg.UploadDir, base)
}
