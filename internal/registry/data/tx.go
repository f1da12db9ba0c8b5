package data

import (
	"context"

	"github.com/lk2023060901/filestore-backend/internal/pkg/database"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

// txAttempts 并发入库时 groups/stats 行锁可能死锁，外层事务整体重跑
const txAttempts = 3

// Transactor 基于 gorm 事务实现 biz.Transactor
type Transactor struct {
	db *database.DB
}

// NewTransactor 创建事务管理器
func NewTransactor(db *database.DB) biz.Transactor {
	return &Transactor{db: db}
}

// InTx 在事务中执行 fn，嵌套调用会加入外层事务
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := t.db.TransactionWithRetry(ctx, txAttempts, func(ctx context.Context) error {
		return fn(ctx)
	})
	return translate(err, apperrors.ErrNotFound)
}

// NewRepos 组装 PostgreSQL 仓储
func NewRepos(db *database.DB) *biz.Repos {
	return &biz.Repos{
		Tx:     NewTransactor(db),
		Users:  NewUserRepo(db),
		Stats:  NewStatsRepo(db),
		Groups: NewGroupRepo(db),
		Files:  NewFileRepo(db),
		Links:  NewLinkRepo(db),
	}
}
