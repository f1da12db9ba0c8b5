package minio

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

var (
	ErrInvalidArgument   = errors.New("minio: invalid argument")
	ErrInvalidObjectName = errors.New("minio: invalid object name")
	ErrClientClosed      = errors.New("minio: client is closed")
)

// Error 记录失败的操作以及涉及的 bucket/key，便于日志定位
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("minio ")
	b.WriteString(e.Op)
	if e.Bucket != "" {
		b.WriteString(" bucket=" + e.Bucket)
	}
	if e.Key != "" {
		b.WriteString(" object=" + e.Key)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// WrapError attaches op/bucket/key to err; nil stays nil.
func WrapError(op string, err error, bucket, key string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}

func hasResponseCode(err error, codes ...string) bool {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	for _, c := range codes {
		if resp.Code == c {
			return true
		}
	}
	return false
}

// IsNotFound reports a missing bucket, object or multipart upload.
func IsNotFound(err error) bool {
	return hasResponseCode(err, "NoSuchBucket", "NoSuchKey", "NoSuchUpload")
}

// IsBucketAlreadyExists 并发启动时 MakeBucket 可能返回这两种 code
func IsBucketAlreadyExists(err error) bool {
	return hasResponseCode(err, "BucketAlreadyExists", "BucketAlreadyOwnedByYou")
}
