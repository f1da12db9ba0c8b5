package biz

import (
	"fmt"
	"time"
)

// UploadMode 上传模式
type UploadMode string

const (
	ModeSingle UploadMode = "single"
	ModeBulk   UploadMode = "bulk"
)

// Valid reports whether m is a known upload mode
func (m UploadMode) Valid() bool {
	return m == ModeSingle || m == ModeBulk
}

// SessionState 上传会话状态，Idle 用“无会话”表示
type SessionState string

const (
	StateAwaitingGroup SessionState = "awaiting_group"
	StateActive        SessionState = "active"
)

// DeactivationReason records why a link stopped working. The first reason written wins.
type DeactivationReason string

const (
	ReasonRevoked   DeactivationReason = "revoked"
	ReasonExpired   DeactivationReason = "expired"
	ReasonExhausted DeactivationReason = "exhausted"
)

// User 平台用户
type User struct {
	ID          int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Username    string    `json:"username,omitempty"`
	IsActive    bool      `json:"is_active"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Group 用户命名的文件分组，(OwnerID, Name) 唯一
type Group struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	OwnerID    int64     `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
	TotalFiles int64     `json:"total_files"`
	TotalSize  int64     `json:"total_size"`
	LastSerial int64     `json:"last_serial"`
}

// File 已登记的文件
type File struct {
	ID            int64          `json:"id"`
	GroupID       int64          `json:"group_id"`
	Serial        int64          `json:"serial"`
	OwnerID       int64          `json:"owner_id"`
	UploaderID    int64          `json:"uploader_id"`
	UniqueCode    string         `json:"unique_code"`
	FileName      string         `json:"file_name"`
	FileType      AttachmentKind `json:"file_type"`
	FileSize      int64          `json:"file_size"`
	StorageHandle string         `json:"-"`
	Caption       string         `json:"caption,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	ViewCount     int64          `json:"view_count"`
	DownloadCount int64          `json:"download_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Link 分享链接
type Link struct {
	ID                 int64              `json:"id"`
	Code               string             `json:"code"`
	FileID             int64              `json:"file_id"`
	GroupID            int64              `json:"group_id"`
	OwnerID            int64              `json:"owner_id"`
	CreatedAt          time.Time          `json:"created_at"`
	ExpiresAt          *time.Time         `json:"expires_at,omitempty"`
	MaxUses            *int64             `json:"max_uses,omitempty"`
	CurrentUses        int64              `json:"current_uses"`
	Active             bool               `json:"active"`
	DeactivationReason DeactivationReason `json:"deactivation_reason,omitempty"`
	DeactivatedAt      *time.Time         `json:"deactivated_at,omitempty"`
}

// ExpiredAt reports whether the link's deadline has passed at now
func (l *Link) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// Exhausted reports whether the use budget is spent
func (l *Link) Exhausted() bool {
	return l.MaxUses != nil && l.CurrentUses >= *l.MaxUses
}

// Stats 用户排行榜数据
type Stats struct {
	UserID     int64     `json:"user_id"`
	Uploads    int64     `json:"uploads"`
	Downloads  int64     `json:"downloads"`
	LastActive time.Time `json:"last_active"`
}

// AdminStats 全局统计
type AdminStats struct {
	Users       int64 `json:"users"`
	ActiveUsers int64 `json:"active_users"`
	Groups      int64 `json:"groups"`
	Files       int64 `json:"files"`
	ActiveLinks int64 `json:"active_links"`
	TotalBytes  int64 `json:"total_bytes"`
}

// UploadSession 上传会话（临时状态，不落库）
type UploadSession struct {
	ID             string       `json:"id"`
	UserID         int64        `json:"user_id"`
	State          SessionState `json:"state"`
	Mode           UploadMode   `json:"mode"`
	GroupID        int64        `json:"group_id,omitempty"`
	GroupName      string       `json:"group_name,omitempty"`
	FileCount      int          `json:"file_count"`
	StartedAt      time.Time    `json:"started_at"`
	LastActivityAt time.Time    `json:"last_activity_at"`
}

// UploadSummary is returned when a session finishes
type UploadSummary struct {
	GroupID   int64  `json:"group_id"`
	GroupName string `json:"group_name"`
	FileCount int    `json:"file_count"`
}

// IngestResult 单次入库结果；Session 为 nil 表示会话已结束（single 模式）
type IngestResult struct {
	File    *File          `json:"file"`
	Session *UploadSession `json:"session,omitempty"`
}

// Redemption 兑换链接的结果
type Redemption struct {
	StorageHandle string `json:"-"`
	File          *File  `json:"file"`
	Link          *Link  `json:"link"`
}

// GroupRef identifies a group by id or by name within the actor's groups
type GroupRef struct {
	ID   int64
	Name string
}

// GroupByID builds a reference to a group id
func GroupByID(id int64) GroupRef { return GroupRef{ID: id} }

// GroupByName builds a reference to a group name
func GroupByName(name string) GroupRef { return GroupRef{Name: name} }

func (r GroupRef) String() string {
	if r.ID > 0 {
		return fmt.Sprintf("#%d", r.ID)
	}
	return r.Name
}

// FileUpdate 可编辑的文件元数据，nil 表示不修改
type FileUpdate struct {
	FileName *string
	Caption  *string
	Tags     []string
	SetTags  bool
}

// FormatSerial renders a serial the way users see it, e.g. #007
func FormatSerial(serial int64) string {
	return fmt.Sprintf("#%03d", serial)
}

// ExpiryPreset 链接有效期预设
type ExpiryPreset struct {
	Label string         `json:"label"`
	TTL   *time.Duration `json:"ttl,omitempty"`
}

func durationPtr(d time.Duration) *time.Duration { return &d }

var expiryPresets = []ExpiryPreset{
	{Label: "5m", TTL: durationPtr(5 * time.Minute)},
	{Label: "10m", TTL: durationPtr(10 * time.Minute)},
	{Label: "30m", TTL: durationPtr(30 * time.Minute)},
	{Label: "1h", TTL: durationPtr(time.Hour)},
	{Label: "1d", TTL: durationPtr(24 * time.Hour)},
	{Label: "never"},
}

// ExpiryPresets returns the link expiry choices offered to users
func ExpiryPresets() []ExpiryPreset {
	out := make([]ExpiryPreset, len(expiryPresets))
	copy(out, expiryPresets)
	return out
}
