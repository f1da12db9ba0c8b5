package minio

import (
	"context"
	"mime"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// PresignedGetObject generates a presigned download URL. fileName, when set,
// becomes the attachment name the browser saves.
func (c *Client) PresignedGetObject(ctx context.Context, objectName, fileName string, expiry time.Duration) (*url.URL, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	bucket := c.config.Bucket
	if objectName == "" {
		return nil, WrapError("PresignedGetObject", ErrInvalidObjectName, bucket, objectName)
	}
	if expiry <= 0 {
		expiry = c.config.PresignExpiry
	}

	reqParams := make(url.Values)
	if fileName != "" {
		reqParams.Set("response-content-disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	}

	presignedURL, err := c.client.PresignedGetObject(ctx, bucket, objectName, expiry, reqParams)
	if err != nil {
		return nil, WrapError("PresignedGetObject", err, bucket, objectName)
	}

	c.logger.Debug("presigned GET URL generated",
		zap.String("bucket", bucket),
		zap.String("object", objectName),
		zap.Duration("expiry", expiry),
	)

	return presignedURL, nil
}
