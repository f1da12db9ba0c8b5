package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 这里只包装会话存储与限流实际用到的命令，失败统一记录日志后返回原始错误

// HGetAll 键不存在时返回空 map
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := c.master.HGetAll(ctx, key).Result()
	if err != nil {
		c.logger.Error("redis hgetall failed", zap.String("key", key), zap.Error(err))
	}
	return fields, err
}

func (c *Client) ZRem(ctx context.Context, key string, members ...interface{}) (int64, error) {
	n, err := c.master.ZRem(ctx, key, members...).Result()
	if err != nil {
		c.logger.Error("redis zrem failed", zap.String("key", key), zap.Error(err))
	}
	return n, err
}

func (c *Client) ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) ([]string, error) {
	members, err := c.master.ZRangeByScore(ctx, key, opt).Result()
	if err != nil {
		c.logger.Error("redis zrangebyscore failed",
			zap.String("key", key),
			zap.String("max", opt.Max),
			zap.Error(err),
		)
	}
	return members, err
}

// Eval 脚本返回 nil 时 err 为 redis.Nil，调用方自行判断，不记错误日志
func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	result, err := c.master.Eval(ctx, script, keys, args...).Result()
	if err != nil && !IsNil(err) {
		c.logger.Error("redis eval failed", zap.Strings("keys", keys), zap.Error(err))
	}
	return result, err
}

// TxPipelined 在 MULTI/EXEC 中执行 fn 排队的命令
func (c *Client) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) error {
	if _, err := c.master.TxPipelined(ctx, fn); err != nil {
		c.logger.Error("redis tx pipeline failed", zap.Error(err))
		return err
	}
	return nil
}
