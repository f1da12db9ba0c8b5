package data

import (
	"context"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/pkg/database"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

const upsertUserSQL = `
INSERT INTO users (user_id, display_name, username, is_active, joined_at)
VALUES (?, ?, ?, TRUE, ?)
ON CONFLICT (user_id) DO UPDATE SET
    display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name),
    username     = EXCLUDED.username
RETURNING user_id, display_name, username, is_active, joined_at`

// UserRepo 用户仓储实现
type UserRepo struct {
	db *database.DB
}

// NewUserRepo 创建用户仓储
func NewUserRepo(db *database.DB) biz.UserRepo {
	return &UserRepo{db: db}
}

// Upsert 注册或刷新用户资料
func (r *UserRepo) Upsert(ctx context.Context, u *biz.User) (*biz.User, error) {
	var po UserPO
	err := r.db.GetDBFromContext(ctx).
		Raw(upsertUserSQL, u.ID, u.DisplayName, u.Username, u.JoinedAt).
		Scan(&po).Error
	if err != nil {
		return nil, translate(err, apperrors.ErrUserNotFound)
	}
	return toUser(&po), nil
}

// Get 获取用户
func (r *UserRepo) Get(ctx context.Context, id int64) (*biz.User, error) {
	var po UserPO
	if err := r.db.GetDBFromContext(ctx).Where("user_id = ?", id).First(&po).Error; err != nil {
		return nil, translate(err, apperrors.ErrUserNotFound)
	}
	return toUser(&po), nil
}

// SetActive 启用或停用用户
func (r *UserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res := r.db.GetDBFromContext(ctx).Model(&UserPO{}).
		Where("user_id = ?", id).
		Update("is_active", active)
	return affected(res.RowsAffected, res.Error, apperrors.ErrUserNotFound)
}

// StatsRepo 用户统计仓储实现
type StatsRepo struct {
	db *database.DB
}

// NewStatsRepo 创建统计仓储
func NewStatsRepo(db *database.DB) biz.StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) bump(ctx context.Context, userID int64, at time.Time, uploads, downloads int64) error {
	err := r.db.GetDBFromContext(ctx).Exec(`
INSERT INTO stats (user_id, uploads, downloads, last_active)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    uploads     = stats.uploads + EXCLUDED.uploads,
    downloads   = stats.downloads + EXCLUDED.downloads,
    last_active = EXCLUDED.last_active`,
		userID, uploads, downloads, at).Error
	return translate(err, apperrors.ErrUserNotFound)
}

// Touch 刷新最后活跃时间
func (r *StatsRepo) Touch(ctx context.Context, userID int64, at time.Time) error {
	return r.bump(ctx, userID, at, 0, 0)
}

// AddUpload 上传计数 +1
func (r *StatsRepo) AddUpload(ctx context.Context, userID int64, at time.Time) error {
	return r.bump(ctx, userID, at, 1, 0)
}

// AddDownload 下载计数 +1
func (r *StatsRepo) AddDownload(ctx context.Context, userID int64, at time.Time) error {
	return r.bump(ctx, userID, at, 0, 1)
}

// Get 获取用户统计，没有记录时返回零值
func (r *StatsRepo) Get(ctx context.Context, userID int64) (*biz.Stats, error) {
	var po StatsPO
	err := r.db.GetDBFromContext(ctx).Where("user_id = ?", userID).First(&po).Error
	if database.IsRecordNotFoundError(err) {
		return &biz.Stats{UserID: userID}, nil
	}
	if err != nil {
		return nil, translate(err, apperrors.ErrUserNotFound)
	}
	return toStats(&po), nil
}

// Top 排行榜：上传数、下载数降序
func (r *StatsRepo) Top(ctx context.Context, limit int) ([]*biz.Stats, error) {
	var pos []StatsPO
	err := limited(r.db.GetDBFromContext(ctx).Order("uploads DESC, downloads DESC, user_id ASC"), limit).
		Find(&pos).Error
	if err != nil {
		return nil, translate(err, apperrors.ErrUserNotFound)
	}

	out := make([]*biz.Stats, 0, len(pos))
	for i := range pos {
		out = append(out, toStats(&pos[i]))
	}
	return out, nil
}

// Summary 全局统计
func (r *StatsRepo) Summary(ctx context.Context) (*biz.AdminStats, error) {
	var sum biz.AdminStats
	err := r.db.GetDBFromContext(ctx).Raw(`
SELECT
    (SELECT COUNT(*) FROM users)                      AS users,
    (SELECT COUNT(*) FROM users WHERE is_active)      AS active_users,
    (SELECT COUNT(*) FROM groups)                     AS groups,
    (SELECT COUNT(*) FROM files)                      AS files,
    (SELECT COUNT(*) FROM links WHERE active)         AS active_links,
    (SELECT COALESCE(SUM(total_size), 0) FROM groups) AS total_bytes`).
		Scan(&sum).Error
	if err != nil {
		return nil, translate(err, apperrors.ErrNotFound)
	}
	return &sum, nil
}
