package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrNotInitialized = errors.New("redis: client not initialized")

// IsNil 键不存在
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Client 包装 UniversalClient，供会话存储和限流使用
type Client struct {
	config *Config
	logger *logger.Logger
	master redis.UniversalClient
}

// New 按部署模式建立连接并 Ping 一次，失败时关闭连接返回错误
func New(cfg *Config, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: cfg, logger: log}
	switch cfg.Mode {
	case ModeSingle:
		c.master = redis.NewClient(cfg.singleOptions())
	case ModeSentinel:
		c.master = redis.NewFailoverClient(cfg.failoverOptions())
	default:
		return nil, fmt.Errorf("redis: unsupported mode %q", cfg.Mode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Info("redis connected",
		zap.String("mode", string(cfg.Mode)),
		zap.String("addr", cfg.MasterAddr),
	)
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.master == nil {
		return ErrNotInitialized
	}
	if err := c.master.Ping(ctx).Err(); err != nil {
		c.logger.Warn("redis ping failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *Client) Close() error {
	if c.master == nil {
		return nil
	}
	if err := c.master.Close(); err != nil {
		c.logger.Error("close redis client failed", zap.Error(err))
		return err
	}
	c.logger.Info("redis client closed")
	return nil
}
