package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/metrics"
	"github.com/lk2023060901/filestore-backend/internal/pkg/redis"
	"github.com/lk2023060901/filestore-backend/internal/pkg/response"
	"github.com/lk2023060901/filestore-backend/internal/pkg/validator"
	"go.uber.org/zap"
)

// RateLimiterConfig 限流配置
type RateLimiterConfig struct {
	// 时间窗口内允许的最大请求数，<= 0 表示不限流
	MaxRequests int `mapstructure:"max_requests"`
	// 时间窗口
	Window time.Duration `mapstructure:"window"`
	// 限流策略：actor（已认证时按用户，否则按 IP）、ip（默认）
	Strategy string `mapstructure:"strategy"`
}

// Lua 脚本实现原子性滑动窗口限流，成员带随机后缀，同一毫秒内的请求不会互相覆盖
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local current = redis.call('ZCARD', key)

if current < limit then
    redis.call('ZADD', key, now, ARGV[4])
    redis.call('PEXPIRE', key, window)
    return {1, limit - current - 1, now + window}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')[2]
return {0, 0, tonumber(oldest) + window}
`

// RateLimiter 基于 Redis 的滑动窗口限流中间件。Redis 故障时放行请求。
func RateLimiter(rdb *redis.Client, cfg RateLimiterConfig, m *metrics.Metrics, log *logger.Logger) gin.HandlerFunc {
	if cfg.MaxRequests <= 0 || rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return func(c *gin.Context) {
		key := buildRateLimitKey(c, cfg.Strategy)
		allowed, remaining, resetAt, err := checkRateLimit(c.Request.Context(), rdb, key, cfg, time.Now())
		if err != nil {
			log.WithContext(c.Request.Context()).Error("rate limiter error", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			m.RecordRateLimitBlocked(c.FullPath())
			retry := time.Until(resetAt).Round(time.Second)
			if retry < time.Second {
				retry = time.Second
			}
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())))
			response.ErrorWithCode(c, apperrors.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}

// buildRateLimitKey 构建限流 key
func buildRateLimitKey(c *gin.Context, strategy string) string {
	const prefix = "rate_limit"
	endpoint := c.FullPath()

	if strategy == "actor" {
		if actorID, ok := GetActorID(c); ok {
			return fmt.Sprintf("%s:%s:actor:%d", prefix, endpoint, actorID)
		}
	}
	return fmt.Sprintf("%s:%s:ip:%s", prefix, endpoint, ClientIP(c))
}

// ClientIP 规范化客户端 IP：去掉 IPv6 zone，IPv6 按 /64 聚合
func ClientIP(c *gin.Context) string {
	return validator.ClientKey(c.ClientIP())
}

// checkRateLimit 使用 Redis 滑动窗口算法检查限流
func checkRateLimit(ctx context.Context, rdb *redis.Client, key string, cfg RateLimiterConfig, now time.Time) (allowed bool, remaining int, resetAt time.Time, err error) {
	nowMs := now.UnixMilli()
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	result, err := rdb.Eval(ctx, slidingWindowScript, []string{key}, nowMs, cfg.Window.Milliseconds(), cfg.MaxRequests, member)
	if err != nil {
		return false, 0, time.Time{}, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("invalid rate limit result %v", result)
	}

	allowedInt, _ := values[0].(int64)
	remainingInt, _ := values[1].(int64)
	resetMs, _ := values[2].(int64)

	return allowedInt == 1, int(remainingInt), time.UnixMilli(resetMs), nil
}
