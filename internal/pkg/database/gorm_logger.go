package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// gormZap 把 gorm 的日志接到 zap，带上请求上下文里的 request_id/actor_id
type gormZap struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLogger(log *logger.Logger, cfg *Config) gormlogger.Interface {
	level, ok := gormLevels[cfg.LogLevel]
	if !ok {
		level = gormlogger.Warn
	}
	return &gormZap{log: log, level: level, slow: cfg.SlowThreshold}
}

func (g *gormZap) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *gormZap) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Info {
		g.log.WithContext(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (g *gormZap) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.log.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (g *gormZap) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Error {
		g.log.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

func (g *gormZap) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	stmt, rows := fc()
	log := g.log.WithContext(ctx).With(
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", stmt),
	)

	switch {
	case err != nil && (IsRecordNotFoundError(err) || IsDuplicateKeyError(err)):
		// 未找到和唯一冲突是业务分支，上层会翻译成错误码
		log.Debug("database query rejected", zap.Error(err))
	case err != nil:
		if g.level >= gormlogger.Error {
			log.Error("database query error", zap.Error(err))
		}
	case g.slow > 0 && elapsed > g.slow:
		if g.level >= gormlogger.Warn {
			log.Warn("slow SQL query", zap.Duration("threshold", g.slow))
		}
	case g.level >= gormlogger.Info:
		log.Info("database query")
	}
}
