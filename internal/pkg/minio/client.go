package minio

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var bucketLookups = map[BucketLookupType]minio.BucketLookupType{
	BucketLookupAuto: minio.BucketLookupAuto,
	BucketLookupDNS:  minio.BucketLookupDNS,
	BucketLookupPath: minio.BucketLookupPath,
}

// Client 是附件存储使用的 MinIO 客户端，所有操作都落在 Config.Bucket 上
type Client struct {
	client *minio.Client
	config *Config
	logger *zap.Logger
	closed atomic.Bool
}

// NewClient builds a client from cfg. No request is sent until the first call.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidArgument
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("minio: invalid configuration: %w", err)
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: bucketLookups[cfg.BucketLookup],
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client for %s: %w", cfg.Endpoint, err)
	}

	logger.Info("blob store client ready",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
		zap.Bool("use_ssl", cfg.UseSSL),
	)

	return &Client{client: mc, config: cfg, logger: logger}, nil
}

func (c *Client) Bucket() string {
	return c.config.Bucket
}

// Ping 通过 BucketExists 探测服务端
func (c *Client) Ping(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if _, err := c.client.BucketExists(ctx, c.config.Bucket); err != nil {
		return WrapError("Ping", err, c.config.Bucket, "")
	}
	return nil
}

// Close marks the client closed. Safe to call more than once.
func (c *Client) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.logger.Info("blob store client closed")
	}
	return nil
}

func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

func (c *Client) checkClosed() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return nil
}
