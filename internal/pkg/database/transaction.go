package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TxFunc 在事务中执行，ctx 携带事务句柄，仓储通过 GetDBFromContext 取用
type TxFunc func(ctx context.Context) error

type txKey struct{}

// Transaction runs fn in a transaction. If ctx already carries one, fn joins it.
func (db *DB) Transaction(ctx context.Context, fn TxFunc) error {
	if _, ok := TransactionFromContext(ctx); ok {
		return fn(ctx)
	}

	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := fn(context.WithValue(ctx, txKey{}, tx))
		if err != nil {
			db.logger.WithContext(ctx).Debug("transaction rolled back", zap.Error(err))
		}
		return err
	})
}

// TransactionWithRetry 外层事务遇到序列化失败或死锁时整体重跑，最多 attempts 次。
// 嵌套调用不重试，由外层负责。
func (db *DB) TransactionWithRetry(ctx context.Context, attempts int, fn TxFunc) error {
	if _, nested := TransactionFromContext(ctx); nested || attempts <= 1 {
		return db.Transaction(ctx, fn)
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = db.Transaction(ctx, fn); err == nil || !isRetryableError(err) {
			return err
		}
		db.logger.WithContext(ctx).Warn("transaction conflict, retrying",
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", attempts, err)
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

func TransactionFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok
}

// GetDBFromContext 优先返回 ctx 中的事务，否则返回绑定 ctx 的连接池
func (db *DB) GetDBFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := TransactionFromContext(ctx); ok {
		return tx.WithContext(ctx)
	}
	return db.DB.WithContext(ctx)
}
