package data

import (
	"context"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/pkg/database"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"gorm.io/gorm"
)

// FileRepo 文件仓储实现
type FileRepo struct {
	db *database.DB
}

// NewFileRepo 创建文件仓储
func NewFileRepo(db *database.DB) biz.FileRepo {
	return &FileRepo{db: db}
}

// Create 登记文件；分组不存在时返回 GroupNotFound
func (r *FileRepo) Create(ctx context.Context, f *biz.File) error {
	po := fromFile(f)
	po.ID = 0
	if err := r.db.GetDBFromContext(ctx).Create(po).Error; err != nil {
		return translate(err, apperrors.ErrGroupNotFound)
	}

	f.ID = po.ID
	return nil
}

func (r *FileRepo) first(ctx context.Context, query string, args ...interface{}) (*biz.File, error) {
	var po FilePO
	if err := r.db.GetDBFromContext(ctx).Where(query, args...).First(&po).Error; err != nil {
		return nil, translate(err, apperrors.ErrFileNotFound)
	}
	return toFile(&po), nil
}

func (r *FileRepo) find(query *gorm.DB, limit int) ([]*biz.File, error) {
	var pos []FilePO
	if err := limited(query, limit).Find(&pos).Error; err != nil {
		return nil, translate(err, apperrors.ErrFileNotFound)
	}

	files := make([]*biz.File, 0, len(pos))
	for i := range pos {
		files = append(files, toFile(&pos[i]))
	}
	return files, nil
}

// Get 根据ID获取文件
func (r *FileRepo) Get(ctx context.Context, id int64) (*biz.File, error) {
	return r.first(ctx, "id = ?", id)
}

// GetBySerial 按分组序号获取文件
func (r *FileRepo) GetBySerial(ctx context.Context, groupID, serial int64) (*biz.File, error) {
	return r.first(ctx, "group_id = ? AND serial = ?", groupID, serial)
}

// ListByGroup 按序号降序列出分组内文件
func (r *FileRepo) ListByGroup(ctx context.Context, groupID int64, limit int) ([]*biz.File, error) {
	return r.find(r.db.GetDBFromContext(ctx).
		Where("group_id = ?", groupID).
		Order("serial DESC"), limit)
}

// ListByUploader 最近上传的文件
func (r *FileRepo) ListByUploader(ctx context.Context, uploaderID int64, limit int) ([]*biz.File, error) {
	return r.find(r.db.GetDBFromContext(ctx).
		Where("uploader_id = ?", uploaderID).
		Order("created_at DESC, id DESC"), limit)
}

// Search 文件名子串匹配（不区分大小写，% 和 _ 按字面匹配）
func (r *FileRepo) Search(ctx context.Context, ownerID int64, query string, limit int) ([]*biz.File, error) {
	return r.find(r.db.GetDBFromContext(ctx).
		Where(`owner_id = ? AND file_name ILIKE ? ESCAPE '\'`, ownerID, database.ContainsPattern(query)).
		Order("created_at DESC, id DESC"), limit)
}

func (r *FileRepo) update(ctx context.Context, id int64, updates map[string]interface{}) error {
	res := r.db.GetDBFromContext(ctx).Model(&FilePO{}).
		Where("id = ?", id).
		UpdateColumns(updates)
	return affected(res.RowsAffected, res.Error, apperrors.ErrFileNotFound)
}

// Update 修改文件名、说明或标签
func (r *FileRepo) Update(ctx context.Context, id int64, upd biz.FileUpdate, at time.Time) error {
	updates := map[string]interface{}{"updated_at": at}
	if upd.FileName != nil {
		updates["file_name"] = *upd.FileName
	}
	if upd.Caption != nil {
		updates["caption"] = *upd.Caption
	}
	if upd.SetTags {
		updates["tags"] = StringArrayJSON(upd.Tags)
	}
	return r.update(ctx, id, updates)
}

// ReplaceContent 替换文件内容，序号和唯一码保持不变
func (r *FileRepo) ReplaceContent(ctx context.Context, id int64, kind biz.AttachmentKind, handle string, size int64, at time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"file_type":      string(kind),
		"storage_handle": handle,
		"file_size":      size,
		"updated_at":     at,
	})
}

// Delete 删除文件，关联链接由外键级联删除
func (r *FileRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.GetDBFromContext(ctx).Where("id = ?", id).Delete(&FilePO{})
	return affected(res.RowsAffected, res.Error, apperrors.ErrFileNotFound)
}

// IncrementViews 浏览数 +1
func (r *FileRepo) IncrementViews(ctx context.Context, id int64) error {
	return r.update(ctx, id, map[string]interface{}{"view_count": gorm.Expr("view_count + 1")})
}

// IncrementDownloads 下载数 +1
func (r *FileRepo) IncrementDownloads(ctx context.Context, id int64) error {
	return r.update(ctx, id, map[string]interface{}{"download_count": gorm.Expr("download_count + 1")})
}

// StorageHandles 分组内所有文件的存储句柄，删除分组前收集
func (r *FileRepo) StorageHandles(ctx context.Context, groupID int64) ([]string, error) {
	var handles []string
	err := r.db.GetDBFromContext(ctx).Model(&FilePO{}).
		Where("group_id = ?", groupID).
		Pluck("storage_handle", &handles).Error
	if err != nil {
		return nil, translate(err, apperrors.ErrGroupNotFound)
	}
	return handles, nil
}
