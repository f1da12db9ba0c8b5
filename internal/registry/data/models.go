package data

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"gorm.io/gorm"
)

// StringArrayJSON 自定义 JSONB 类型（用于存储字符串数组）
type StringArrayJSON []string

func (j *StringArrayJSON) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = []string{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source %T", value)
	}
	return json.Unmarshal(raw, j)
}

func (j StringArrayJSON) Value() (driver.Value, error) {
	if j == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(j)
}

// UserPO 用户数据库模型
type UserPO struct {
	UserID      int64     `gorm:"primarykey;autoIncrement:false"`
	DisplayName string    `gorm:"size:255;not null;default:''"`
	Username    string    `gorm:"size:255;not null;default:''"`
	IsActive    bool      `gorm:"not null;default:true"`
	JoinedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (UserPO) TableName() string {
	return "users"
}

// StatsPO 用户统计数据库模型
type StatsPO struct {
	UserID     int64     `gorm:"primarykey;autoIncrement:false"`
	Uploads    int64     `gorm:"not null;default:0"`
	Downloads  int64     `gorm:"not null;default:0"`
	LastActive time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (StatsPO) TableName() string {
	return "stats"
}

// GroupPO 分组数据库模型
type GroupPO struct {
	ID         int64     `gorm:"primarykey"`
	Name       string    `gorm:"size:80;not null;uniqueIndex:uq_groups_owner_name,priority:2"`
	OwnerID    int64     `gorm:"not null;uniqueIndex:uq_groups_owner_name,priority:1"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	TotalFiles int64     `gorm:"not null;default:0"`
	TotalSize  int64     `gorm:"not null;default:0"`
	LastSerial int64     `gorm:"not null;default:0"`
}

func (GroupPO) TableName() string {
	return "groups"
}

// FilePO 文件数据库模型
type FilePO struct {
	ID            int64           `gorm:"primarykey"`
	GroupID       int64           `gorm:"not null;uniqueIndex:uq_files_group_serial,priority:1"`
	Serial        int64           `gorm:"not null;uniqueIndex:uq_files_group_serial,priority:2"`
	OwnerID       int64           `gorm:"not null;index:idx_files_owner_created,priority:1"`
	UploaderID    int64           `gorm:"not null"`
	UniqueCode    string          `gorm:"size:32;not null;uniqueIndex:uq_files_unique_code"`
	FileName      string          `gorm:"type:text;not null"`
	FileType      string          `gorm:"size:16;not null"`
	FileSize      int64           `gorm:"not null;default:0"`
	StorageHandle string          `gorm:"type:text;not null"`
	Caption       string          `gorm:"type:text;not null;default:''"`
	Tags          StringArrayJSON `gorm:"type:jsonb;not null;default:'[]'"`
	ViewCount     int64           `gorm:"not null;default:0"`
	DownloadCount int64           `gorm:"not null;default:0"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_files_owner_created,priority:2"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FilePO) TableName() string {
	return "files"
}

// LinkPO 分享链接数据库模型
type LinkPO struct {
	ID                 int64      `gorm:"primarykey"`
	Code               string     `gorm:"size:32;not null;uniqueIndex:uq_links_code"`
	FileID             int64      `gorm:"not null"`
	GroupID            int64      `gorm:"not null"`
	OwnerID            int64      `gorm:"not null;index:idx_links_owner_created,priority:1"`
	CreatedAt          time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_links_owner_created,priority:2"`
	ExpiresAt          *time.Time `gorm:"index:idx_links_active_expiry,where:active"`
	MaxUses            *int64     `gorm:"column:max_uses"`
	CurrentUses        int64      `gorm:"not null;default:0"`
	Active             bool       `gorm:"not null;default:true"`
	DeactivationReason *string    `gorm:"size:16"`
	DeactivatedAt      *time.Time `gorm:"column:deactivated_at"`
}

func (LinkPO) TableName() string {
	return "links"
}

func toUser(po *UserPO) *biz.User {
	return &biz.User{
		ID:          po.UserID,
		DisplayName: po.DisplayName,
		Username:    po.Username,
		IsActive:    po.IsActive,
		JoinedAt:    po.JoinedAt,
	}
}

func toStats(po *StatsPO) *biz.Stats {
	return &biz.Stats{
		UserID:     po.UserID,
		Uploads:    po.Uploads,
		Downloads:  po.Downloads,
		LastActive: po.LastActive,
	}
}

func toGroup(po *GroupPO) *biz.Group {
	return &biz.Group{
		ID:         po.ID,
		Name:       po.Name,
		OwnerID:    po.OwnerID,
		CreatedAt:  po.CreatedAt,
		TotalFiles: po.TotalFiles,
		TotalSize:  po.TotalSize,
		LastSerial: po.LastSerial,
	}
}

func toFile(po *FilePO) *biz.File {
	var tags []string
	if len(po.Tags) > 0 {
		tags = append(tags, po.Tags...)
	}
	return &biz.File{
		ID:            po.ID,
		GroupID:       po.GroupID,
		Serial:        po.Serial,
		OwnerID:       po.OwnerID,
		UploaderID:    po.UploaderID,
		UniqueCode:    po.UniqueCode,
		FileName:      po.FileName,
		FileType:      biz.AttachmentKind(po.FileType),
		FileSize:      po.FileSize,
		StorageHandle: po.StorageHandle,
		Caption:       po.Caption,
		Tags:          tags,
		ViewCount:     po.ViewCount,
		DownloadCount: po.DownloadCount,
		CreatedAt:     po.CreatedAt,
		UpdatedAt:     po.UpdatedAt,
	}
}

func fromFile(f *biz.File) *FilePO {
	return &FilePO{
		ID:            f.ID,
		GroupID:       f.GroupID,
		Serial:        f.Serial,
		OwnerID:       f.OwnerID,
		UploaderID:    f.UploaderID,
		UniqueCode:    f.UniqueCode,
		FileName:      f.FileName,
		FileType:      string(f.FileType),
		FileSize:      f.FileSize,
		StorageHandle: f.StorageHandle,
		Caption:       f.Caption,
		Tags:          f.Tags,
		ViewCount:     f.ViewCount,
		DownloadCount: f.DownloadCount,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

func toLink(po *LinkPO) *biz.Link {
	l := &biz.Link{
		ID:            po.ID,
		Code:          po.Code,
		FileID:        po.FileID,
		GroupID:       po.GroupID,
		OwnerID:       po.OwnerID,
		CreatedAt:     po.CreatedAt,
		ExpiresAt:     po.ExpiresAt,
		MaxUses:       po.MaxUses,
		CurrentUses:   po.CurrentUses,
		Active:        po.Active,
		DeactivatedAt: po.DeactivatedAt,
	}
	if po.DeactivationReason != nil {
		l.DeactivationReason = biz.DeactivationReason(*po.DeactivationReason)
	}
	return l
}

func fromLink(l *biz.Link) *LinkPO {
	po := &LinkPO{
		ID:            l.ID,
		Code:          l.Code,
		FileID:        l.FileID,
		GroupID:       l.GroupID,
		OwnerID:       l.OwnerID,
		CreatedAt:     l.CreatedAt,
		ExpiresAt:     l.ExpiresAt,
		MaxUses:       l.MaxUses,
		CurrentUses:   l.CurrentUses,
		Active:        l.Active,
		DeactivatedAt: l.DeactivatedAt,
	}
	if l.DeactivationReason != "" {
		reason := string(l.DeactivationReason)
		po.DeactivationReason = &reason
	}
	return po
}

// limited applies a positive limit; n <= 0 means no limit
func limited(db *gorm.DB, n int) *gorm.DB {
	if n > 0 {
		return db.Limit(n)
	}
	return db
}
