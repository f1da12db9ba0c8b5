package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorIDKey
)

// WithContext 附加 ctx 中的 request_id 与 actor_id，都没有时返回 l 本身
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	var fields []zap.Field
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if actor, ok := ctx.Value(actorIDKey).(int64); ok && actor != 0 {
		fields = append(fields, zap.Int64("actor_id", actor))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithActorID 记录当前请求的平台用户 ID，由 JWT 中间件写入
func WithActorID(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
