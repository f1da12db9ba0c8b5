package data

import (
	"context"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/pkg/database"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

// 单条语句完成“检查 + 计数 + 用尽即停用”，并发兑换不会超发
const consumeLinkSQL = `
UPDATE links SET
    current_uses        = current_uses + 1,
    active              = CASE WHEN max_uses IS NOT NULL AND current_uses + 1 >= max_uses THEN FALSE ELSE active END,
    deactivation_reason = CASE WHEN max_uses IS NOT NULL AND current_uses + 1 >= max_uses THEN 'exhausted' ELSE deactivation_reason END,
    deactivated_at      = CASE WHEN max_uses IS NOT NULL AND current_uses + 1 >= max_uses THEN ? ELSE deactivated_at END
WHERE id = ?
  AND active
  AND (max_uses IS NULL OR current_uses < max_uses)
  AND (expires_at IS NULL OR expires_at > ?)`

// LinkRepo 分享链接仓储实现
type LinkRepo struct {
	db *database.DB
}

// NewLinkRepo 创建链接仓储
func NewLinkRepo(db *database.DB) biz.LinkRepo {
	return &LinkRepo{db: db}
}

// Create 创建链接；文件不存在时返回 FileNotFound
func (r *LinkRepo) Create(ctx context.Context, l *biz.Link) error {
	po := fromLink(l)
	po.ID = 0
	if err := r.db.GetDBFromContext(ctx).Create(po).Error; err != nil {
		return translate(err, apperrors.ErrFileNotFound)
	}

	l.ID = po.ID
	return nil
}

// GetByCode 按兑换码获取链接
func (r *LinkRepo) GetByCode(ctx context.Context, code string) (*biz.Link, error) {
	var po LinkPO
	if err := r.db.GetDBFromContext(ctx).Where("code = ?", code).First(&po).Error; err != nil {
		return nil, translate(err, apperrors.ErrLinkNotFound)
	}
	return toLink(&po), nil
}

// ListByOwner 最新创建的链接在前
func (r *LinkRepo) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*biz.Link, error) {
	var pos []LinkPO
	query := r.db.GetDBFromContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC")
	if err := limited(query, limit).Find(&pos).Error; err != nil {
		return nil, translate(err, apperrors.ErrLinkNotFound)
	}
	return toLinks(pos), nil
}

// Consume 占用一次使用次数
func (r *LinkRepo) Consume(ctx context.Context, id int64, now time.Time) (bool, error) {
	res := r.db.GetDBFromContext(ctx).Exec(consumeLinkSQL, now, id, now)
	if res.Error != nil {
		return false, translate(res.Error, apperrors.ErrLinkNotFound)
	}
	return res.RowsAffected == 1, nil
}

// Deactivate 停用链接，已停用的链接保留首次写入的原因
func (r *LinkRepo) Deactivate(ctx context.Context, id int64, reason biz.DeactivationReason, at time.Time) (bool, error) {
	res := r.db.GetDBFromContext(ctx).Model(&LinkPO{}).
		Where("id = ? AND active", id).
		UpdateColumns(map[string]interface{}{
			"active":              false,
			"deactivation_reason": string(reason),
			"deactivated_at":      at,
		})
	if res.Error != nil {
		return false, translate(res.Error, apperrors.ErrLinkNotFound)
	}
	return res.RowsAffected == 1, nil
}

// SetExpiry 修改有效期，nil 表示永不过期
func (r *LinkRepo) SetExpiry(ctx context.Context, id int64, expiresAt *time.Time) (bool, error) {
	res := r.db.GetDBFromContext(ctx).Model(&LinkPO{}).
		Where("id = ? AND active", id).
		UpdateColumn("expires_at", expiresAt)
	if res.Error != nil {
		return false, translate(res.Error, apperrors.ErrLinkNotFound)
	}
	return res.RowsAffected == 1, nil
}

// ListExpired 已过期但仍处于激活状态的链接
func (r *LinkRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*biz.Link, error) {
	var pos []LinkPO
	query := r.db.GetDBFromContext(ctx).
		Where("active AND expires_at IS NOT NULL AND expires_at <= ?", now).
		Order("expires_at ASC")
	if err := limited(query, limit).Find(&pos).Error; err != nil {
		return nil, translate(err, apperrors.ErrLinkNotFound)
	}
	return toLinks(pos), nil
}

func toLinks(pos []LinkPO) []*biz.Link {
	links := make([]*biz.Link, 0, len(pos))
	for i := range pos {
		links = append(links, toLink(&pos[i]))
	}
	return links
}
