package service

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/filestore-backend/internal/auth/middleware"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/response"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

// BlobUploader stores uploaded bytes and returns the storage handle
type BlobUploader interface {
	Put(ctx context.Context, fileName string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, handles []string) error
}

// Presigner builds temporary download URLs for storage handles
type Presigner interface {
	PresignGet(ctx context.Context, handle, fileName string) (string, error)
}

// Options HTTP 适配层配置
type Options struct {
	// ShareBaseURL 与链接 code 拼接成分享地址，为空时不返回 share_url
	ShareBaseURL string
	// MaxUploadSize multipart 上传的最大字节数，<= 0 表示不限制
	MaxUploadSize int64
}

// actor returns the authenticated platform user. Routes behind JWTAuth always have one.
func actor(c *gin.Context) (int64, bool) {
	id, ok := middleware.GetActorID(c)
	if !ok {
		response.ErrorWithCode(c, apperrors.ErrUnauthorized)
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams, err.Error()))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams, err.Error()))
		return false
	}
	return true
}

// paramID 解析正整数路径参数
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.HandleError(c, apperrors.Newf(apperrors.ErrInvalidParams, "invalid %s", name))
		return 0, false
	}
	return id, true
}

// parseTTL accepts an expiry preset label or a Go duration.
// A nil result means the link never expires.
func parseTTL(raw string) (*time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, p := range biz.ExpiryPresets() {
		if strings.EqualFold(p.Label, raw) {
			return p.TTL, nil
		}
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidTTL, raw)
	}
	return &d, nil
}
