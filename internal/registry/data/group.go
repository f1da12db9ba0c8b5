package data

import (
	"context"

	"github.com/lk2023060901/filestore-backend/internal/pkg/database"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"gorm.io/gorm"
)

// 锁住分组行，同一分组的序号分配串行执行；唯一约束仍是最终保证
const nextSerialSQL = `
SELECT GREATEST(g.last_serial, COALESCE((SELECT MAX(f.serial) FROM files f WHERE f.group_id = g.id), 0)) + 1 AS next
FROM groups g
WHERE g.id = ?
FOR UPDATE`

// GroupRepo 分组仓储实现
type GroupRepo struct {
	db *database.DB
}

// NewGroupRepo 创建分组仓储
func NewGroupRepo(db *database.DB) biz.GroupRepo {
	return &GroupRepo{db: db}
}

// Create 创建分组
func (r *GroupRepo) Create(ctx context.Context, g *biz.Group) error {
	po := &GroupPO{
		Name:      g.Name,
		OwnerID:   g.OwnerID,
		CreatedAt: g.CreatedAt,
	}
	if err := r.db.GetDBFromContext(ctx).Create(po).Error; err != nil {
		return translate(err, apperrors.ErrGroupNotFound)
	}

	g.ID = po.ID
	return nil
}

// Get 根据ID获取分组
func (r *GroupRepo) Get(ctx context.Context, id int64) (*biz.Group, error) {
	var po GroupPO
	if err := r.db.GetDBFromContext(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		return nil, translate(err, apperrors.ErrGroupNotFound)
	}
	return toGroup(&po), nil
}

// GetByName 按所有者和名称获取分组（名称大小写敏感）
func (r *GroupRepo) GetByName(ctx context.Context, ownerID int64, name string) (*biz.Group, error) {
	var po GroupPO
	err := r.db.GetDBFromContext(ctx).
		Where("owner_id = ? AND name = ?", ownerID, name).
		First(&po).Error
	if err != nil {
		return nil, translate(err, apperrors.ErrGroupNotFound)
	}
	return toGroup(&po), nil
}

// ListByOwner 最新创建的分组在前
func (r *GroupRepo) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*biz.Group, error) {
	var pos []GroupPO
	query := r.db.GetDBFromContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC")
	if err := limited(query, limit).Find(&pos).Error; err != nil {
		return nil, translate(err, apperrors.ErrGroupNotFound)
	}

	groups := make([]*biz.Group, 0, len(pos))
	for i := range pos {
		groups = append(groups, toGroup(&pos[i]))
	}
	return groups, nil
}

// Rename 重命名分组
func (r *GroupRepo) Rename(ctx context.Context, id int64, name string) error {
	res := r.db.GetDBFromContext(ctx).Model(&GroupPO{}).
		Where("id = ?", id).
		Update("name", name)
	return affected(res.RowsAffected, res.Error, apperrors.ErrGroupNotFound)
}

// Delete 删除分组，文件与链接由外键级联删除
func (r *GroupRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.GetDBFromContext(ctx).Where("id = ?", id).Delete(&GroupPO{})
	return affected(res.RowsAffected, res.Error, apperrors.ErrGroupNotFound)
}

// NextSerial 计算下一个序号
func (r *GroupRepo) NextSerial(ctx context.Context, id int64) (int64, error) {
	var row struct{ Next int64 }
	res := r.db.GetDBFromContext(ctx).Raw(nextSerialSQL, id).Scan(&row)
	if err := affected(res.RowsAffected, res.Error, apperrors.ErrGroupNotFound); err != nil {
		return 0, err
	}
	return row.Next, nil
}

func (r *GroupRepo) apply(ctx context.Context, id int64, updates map[string]interface{}) error {
	res := r.db.GetDBFromContext(ctx).Model(&GroupPO{}).
		Where("id = ?", id).
		UpdateColumns(updates)
	return affected(res.RowsAffected, res.Error, apperrors.ErrGroupNotFound)
}

// ApplyFileAdded 文件入库后更新分组统计与序号高水位
func (r *GroupRepo) ApplyFileAdded(ctx context.Context, id, size, serial int64) error {
	return r.apply(ctx, id, map[string]interface{}{
		"total_files": gorm.Expr("total_files + 1"),
		"total_size":  gorm.Expr("total_size + ?", size),
		"last_serial": gorm.Expr("GREATEST(last_serial, ?)", serial),
	})
}

// ApplyFileRemoved 文件删除后更新分组统计，序号高水位不回退
func (r *GroupRepo) ApplyFileRemoved(ctx context.Context, id, size int64) error {
	return r.apply(ctx, id, map[string]interface{}{
		"total_files": gorm.Expr("total_files - 1"),
		"total_size":  gorm.Expr("total_size - ?", size),
	})
}

// AdjustSize 替换文件内容后修正分组大小
func (r *GroupRepo) AdjustSize(ctx context.Context, id, delta int64) error {
	return r.apply(ctx, id, map[string]interface{}{
		"total_size": gorm.Expr("total_size + ?", delta),
	})
}
