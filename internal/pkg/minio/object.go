package minio

import (
	"context"
	"errors"
	"io"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// UploadInfo contains information about an uploaded object
type UploadInfo struct {
	Key  string
	ETag string
	Size int64
}

// PutObject uploads an object to the configured bucket
func (c *Client) PutObject(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) (UploadInfo, error) {
	if err := c.checkClosed(); err != nil {
		return UploadInfo{}, err
	}

	bucket := c.config.Bucket
	if !validObjectName(objectName) {
		return UploadInfo{}, WrapError("PutObject", ErrInvalidObjectName, bucket, objectName)
	}
	if reader == nil {
		return UploadInfo{}, WrapError("PutObject", ErrInvalidArgument, bucket, objectName)
	}
	if contentType == "" {
		contentType = contentTypeFor(objectName)
	}

	info, err := c.client.PutObject(ctx, bucket, objectName, reader, objectSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return UploadInfo{}, WrapError("PutObject", err, bucket, objectName)
	}

	c.logger.Debug("object uploaded",
		zap.String("bucket", bucket),
		zap.String("object", objectName),
		zap.Int64("size", info.Size),
	)

	return UploadInfo{Key: info.Key, ETag: info.ETag, Size: info.Size}, nil
}

// RemoveObjects deletes objects in one batch. Missing objects are not an error.
func (c *Client) RemoveObjects(ctx context.Context, objectNames []string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if len(objectNames) == 0 {
		return nil
	}

	bucket := c.config.Bucket
	objectsCh := make(chan minio.ObjectInfo, len(objectNames))
	for _, name := range objectNames {
		objectsCh <- minio.ObjectInfo{Key: name}
	}
	close(objectsCh)

	var errs []error
	for res := range c.client.RemoveObjects(ctx, bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if res.Err == nil || IsNotFound(res.Err) {
			continue
		}
		errs = append(errs, WrapError("RemoveObjects", res.Err, bucket, res.ObjectName))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.logger.Debug("objects removed", zap.String("bucket", bucket), zap.Int("count", len(objectNames)))
	return nil
}
