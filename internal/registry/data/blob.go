package data

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/minio"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

const objectPrefix = "attachments"

// objectStore 是 BlobStore 依赖的对象存储操作
type objectStore interface {
	PutObject(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) (minio.UploadInfo, error)
	RemoveObjects(ctx context.Context, objectNames []string) error
	PresignedGetObject(ctx context.Context, objectName, fileName string, expiry time.Duration) (*url.URL, error)
}

// BlobStore 基于 MinIO 的附件存储，存储句柄即对象 key
type BlobStore struct {
	objects objectStore
}

// NewBlobStore 创建附件存储
func NewBlobStore(client *minio.Client) *BlobStore {
	return &BlobStore{objects: client}
}

var _ biz.BlobStore = (*BlobStore)(nil)

// Put 上传附件内容并返回存储句柄
func (b *BlobStore) Put(ctx context.Context, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	key := minio.ObjectKey(objectPrefix, uuid.NewString(), fileName)
	if _, err := b.objects.PutObject(ctx, key, r, size, contentType); err != nil {
		return "", apperrors.NewStoreUnavailableError(err)
	}
	return key, nil
}

// owns reports whether handle is an object key written by Put.
// Handles stored by the chat transport are left alone.
func owns(handle string) bool {
	return strings.HasPrefix(handle, objectPrefix+"/")
}

// PresignGet 生成带下载文件名的临时 URL，非本存储的句柄返回空串
func (b *BlobStore) PresignGet(ctx context.Context, handle, fileName string) (string, error) {
	if !owns(handle) {
		return "", nil
	}
	u, err := b.objects.PresignedGetObject(ctx, handle, fileName, 0)
	if err != nil {
		return "", apperrors.NewStoreUnavailableError(err)
	}
	return u.String(), nil
}

// Remove 批量删除对象，不存在的对象忽略
func (b *BlobStore) Remove(ctx context.Context, handles []string) error {
	keys := make([]string, 0, len(handles))
	for _, h := range handles {
		if owns(h) {
			keys = append(keys, h)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := b.objects.RemoveObjects(ctx, keys); err != nil {
		return apperrors.NewStoreUnavailableError(err)
	}
	return nil
}
