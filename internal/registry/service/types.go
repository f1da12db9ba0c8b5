package service

import (
	"time"

	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

// RegisterUserRequest 注册当前用户
type RegisterUserRequest struct {
	DisplayName string `json:"display_name" binding:"omitempty,max=128"`
	Username    string `json:"username" binding:"omitempty,max=64"`
}

// ListQuery 列表查询参数，limit 为 0 时使用默认值
type ListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// SearchQuery 文件搜索参数
type SearchQuery struct {
	Query string `form:"q" binding:"required,max=128"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// GroupNameRequest 创建或重命名分组
type GroupNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// GroupRefRequest 通过 ID 或名称指定分组
type GroupRefRequest struct {
	GroupID   int64  `json:"group_id" binding:"omitempty,min=1"`
	GroupName string `json:"group_name"`
}

// StartUploadRequest 直接打开指定分组的上传会话
type StartUploadRequest struct {
	GroupRefRequest
	Mode biz.UploadMode `json:"mode" binding:"required"`
}

// BeginUploadRequest 打开等待选择分组的上传会话
type BeginUploadRequest struct {
	Mode biz.UploadMode `json:"mode" binding:"required"`
}

// ChooseGroupRequest 为等待中的会话选择分组
type ChooseGroupRequest struct {
	GroupRefRequest
	Create bool `json:"create"`
}

// AttachmentRequest 传输层已存储的附件
type AttachmentRequest struct {
	Kind          biz.AttachmentKind `json:"kind" form:"kind"`
	FileName      string             `json:"file_name" form:"file_name"`
	ContentCode   string             `json:"content_code" form:"content_code"`
	FileSize      int64              `json:"file_size" form:"file_size" binding:"omitempty,min=0"`
	StorageHandle string             `json:"storage_handle" form:"storage_handle"`
}

// IngestFileRequest 向当前会话登记文件
type IngestFileRequest struct {
	AttachmentRequest
	SessionID string `json:"session_id" form:"session_id"`
}

// UpdateFileRequest 修改文件元数据，未提供的字段保持不变
type UpdateFileRequest struct {
	FileName *string  `json:"file_name" binding:"omitempty,min=1,max=255"`
	Caption  *string  `json:"caption" binding:"omitempty,max=1024"`
	Tags     []string `json:"tags"`
}

// IssueLinkRequest 创建分享链接。TTL 可以是预设（5m, 1d, never）或 Go duration。
type IssueLinkRequest struct {
	TTL     string `json:"ttl"`
	MaxUses *int64 `json:"max_uses"`
}

// ExtendLinkRequest 修改链接有效期
type ExtendLinkRequest struct {
	TTL string `json:"ttl" binding:"required"`
}

// QRQuery 二维码尺寸
type QRQuery struct {
	Size int `form:"size" binding:"omitempty,min=128,max=1024"`
}

// UserResponse 用户
type UserResponse struct {
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Username    string    `json:"username,omitempty"`
	IsActive    bool      `json:"is_active"`
	JoinedAt    time.Time `json:"joined_at"`
}

// GroupResponse 分组
type GroupResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	OwnerID    int64     `json:"owner_id"`
	TotalFiles int64     `json:"total_files"`
	TotalSize  int64     `json:"total_size"`
	CreatedAt  time.Time `json:"created_at"`
}

// FileResponse 文件，storage_handle 只在下载类接口中返回
type FileResponse struct {
	ID            int64     `json:"id"`
	GroupID       int64     `json:"group_id"`
	Serial        int64     `json:"serial"`
	SerialLabel   string    `json:"serial_label"`
	UniqueCode    string    `json:"unique_code"`
	FileName      string    `json:"file_name"`
	FileType      string    `json:"file_type"`
	FileSize      int64     `json:"file_size"`
	Caption       string    `json:"caption,omitempty"`
	Tags          []string  `json:"tags"`
	OwnerID       int64     `json:"owner_id"`
	UploaderID    int64     `json:"uploader_id"`
	ViewCount     int64     `json:"view_count"`
	DownloadCount int64     `json:"download_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DownloadResponse 下载结果
type DownloadResponse struct {
	File          *FileResponse `json:"file"`
	StorageHandle string        `json:"storage_handle"`
	DownloadURL   string        `json:"download_url,omitempty"`
}

// LinkResponse 分享链接
type LinkResponse struct {
	Code               string     `json:"code"`
	ShareURL           string     `json:"share_url,omitempty"`
	FileID             int64      `json:"file_id"`
	GroupID            int64      `json:"group_id"`
	OwnerID            int64      `json:"owner_id"`
	CreatedAt          time.Time  `json:"created_at"`
	ExpiresAt          *time.Time `json:"expires_at"`
	MaxUses            *int64     `json:"max_uses"`
	CurrentUses        int64      `json:"current_uses"`
	Active             bool       `json:"active"`
	DeactivationReason string     `json:"deactivation_reason,omitempty"`
	DeactivatedAt      *time.Time `json:"deactivated_at,omitempty"`
}

// RedeemResponse 兑换结果
type RedeemResponse struct {
	DownloadResponse
	Link *LinkResponse `json:"link"`
}

// SessionResponse 上传会话
type SessionResponse struct {
	ID             string    `json:"id"`
	State          string    `json:"state"`
	Mode           string    `json:"mode"`
	GroupID        int64     `json:"group_id,omitempty"`
	GroupName      string    `json:"group_name,omitempty"`
	FileCount      int       `json:"file_count"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// CurrentSessionResponse 当前会话，没有会话时 session 为 null
type CurrentSessionResponse struct {
	Session *SessionResponse `json:"session"`
}

// IngestResponse 入库结果，session 为 null 表示会话已结束
type IngestResponse struct {
	File    *FileResponse    `json:"file"`
	Session *SessionResponse `json:"session"`
}

// PresetResponse 有效期预设
type PresetResponse struct {
	Label   string `json:"label"`
	Seconds *int64 `json:"seconds"`
}

func toUserResponse(u *biz.User) *UserResponse {
	return &UserResponse{
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		Username:    u.Username,
		IsActive:    u.IsActive,
		JoinedAt:    u.JoinedAt,
	}
}

func toGroupResponse(g *biz.Group) *GroupResponse {
	return &GroupResponse{
		ID:         g.ID,
		Name:       g.Name,
		OwnerID:    g.OwnerID,
		TotalFiles: g.TotalFiles,
		TotalSize:  g.TotalSize,
		CreatedAt:  g.CreatedAt,
	}
}

func toGroupResponses(groups []*biz.Group) []*GroupResponse {
	out := make([]*GroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	return out
}

func toFileResponse(f *biz.File) *FileResponse {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	return &FileResponse{
		ID:            f.ID,
		GroupID:       f.GroupID,
		Serial:        f.Serial,
		SerialLabel:   biz.FormatSerial(f.Serial),
		UniqueCode:    f.UniqueCode,
		FileName:      f.FileName,
		FileType:      string(f.FileType),
		FileSize:      f.FileSize,
		Caption:       f.Caption,
		Tags:          tags,
		OwnerID:       f.OwnerID,
		UploaderID:    f.UploaderID,
		ViewCount:     f.ViewCount,
		DownloadCount: f.DownloadCount,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

func toFileResponses(files []*biz.File) []*FileResponse {
	out := make([]*FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	return out
}

func toSessionResponse(s *biz.UploadSession) *SessionResponse {
	if s == nil {
		return nil
	}
	return &SessionResponse{
		ID:             s.ID,
		State:          string(s.State),
		Mode:           string(s.Mode),
		GroupID:        s.GroupID,
		GroupName:      s.GroupName,
		FileCount:      s.FileCount,
		StartedAt:      s.StartedAt,
		LastActivityAt: s.LastActivityAt,
	}
}

func toPresetResponses(presets []biz.ExpiryPreset) []*PresetResponse {
	out := make([]*PresetResponse, 0, len(presets))
	for _, p := range presets {
		item := &PresetResponse{Label: p.Label}
		if p.TTL != nil {
			secs := int64(p.TTL.Seconds())
			item.Seconds = &secs
		}
		out = append(out, item)
	}
	return out
}

func (r GroupRefRequest) ref() biz.GroupRef {
	if r.GroupID > 0 {
		return biz.GroupByID(r.GroupID)
	}
	return biz.GroupByName(r.GroupName)
}

func (r GroupRefRequest) empty() bool {
	return r.GroupID <= 0 && r.GroupName == ""
}

func (r AttachmentRequest) attachment() (biz.Attachment, error) {
	return biz.NewAttachment(r.Kind, r.FileName, r.ContentCode, r.FileSize, r.StorageHandle)
}
