package biz

import (
	"context"
	"time"
)

// Transactor runs fn in one store transaction. Repositories called with the ctx
// passed to fn take part in that transaction; nested calls join the outer one.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepo 用户仓储
type UserRepo interface {
	// Upsert inserts the user or refreshes display name and username, returning the stored row
	Upsert(ctx context.Context, u *User) (*User, error)
	Get(ctx context.Context, id int64) (*User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// StatsRepo 用户统计仓储
type StatsRepo interface {
	Touch(ctx context.Context, userID int64, at time.Time) error
	AddUpload(ctx context.Context, userID int64, at time.Time) error
	AddDownload(ctx context.Context, userID int64, at time.Time) error
	// Get returns zero stats for a user that never interacted
	Get(ctx context.Context, userID int64) (*Stats, error)
	Top(ctx context.Context, limit int) ([]*Stats, error)
	Summary(ctx context.Context) (*AdminStats, error)
}

// GroupRepo 分组仓储
type GroupRepo interface {
	Create(ctx context.Context, g *Group) error
	Get(ctx context.Context, id int64) (*Group, error)
	GetByName(ctx context.Context, ownerID int64, name string) (*Group, error)
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*Group, error)
	Rename(ctx context.Context, id int64, name string) error
	// Delete removes the group together with its files and links
	Delete(ctx context.Context, id int64) error

	// NextSerial returns 1 + max(last_serial, max(files.serial)) for the group
	NextSerial(ctx context.Context, id int64) (int64, error)
	// ApplyFileAdded bumps totals in-store and raises last_serial to serial
	ApplyFileAdded(ctx context.Context, id, size, serial int64) error
	ApplyFileRemoved(ctx context.Context, id, size int64) error
	AdjustSize(ctx context.Context, id, delta int64) error
}

// FileRepo 文件仓储
type FileRepo interface {
	Create(ctx context.Context, f *File) error
	Get(ctx context.Context, id int64) (*File, error)
	GetBySerial(ctx context.Context, groupID, serial int64) (*File, error)
	ListByGroup(ctx context.Context, groupID int64, limit int) ([]*File, error)
	ListByUploader(ctx context.Context, uploaderID int64, limit int) ([]*File, error)
	// Search matches query as a case-insensitive substring of file names owned by ownerID
	Search(ctx context.Context, ownerID int64, query string, limit int) ([]*File, error)
	Update(ctx context.Context, id int64, upd FileUpdate, at time.Time) error
	ReplaceContent(ctx context.Context, id int64, kind AttachmentKind, handle string, size int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	IncrementViews(ctx context.Context, id int64) error
	IncrementDownloads(ctx context.Context, id int64) error
	StorageHandles(ctx context.Context, groupID int64) ([]string, error)
}

// LinkRepo 分享链接仓储
type LinkRepo interface {
	Create(ctx context.Context, l *Link) error
	GetByCode(ctx context.Context, code string) (*Link, error)
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*Link, error)
	// Consume takes one use if the link is active, unexpired and under budget at now.
	// A link reaching max_uses is deactivated in the same statement.
	Consume(ctx context.Context, id int64, now time.Time) (bool, error)
	// Deactivate flips an active link to inactive. It reports false when the link was already inactive.
	Deactivate(ctx context.Context, id int64, reason DeactivationReason, at time.Time) (bool, error)
	// SetExpiry changes expires_at of an active link
	SetExpiry(ctx context.Context, id int64, expiresAt *time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Link, error)
}

// SessionStore 上传会话存储（Redis 或内存）
type SessionStore interface {
	// Get returns nil, nil when the user has no session
	Get(ctx context.Context, userID int64) (*UploadSession, error)
	// Put stores s, replacing any session the user had
	Put(ctx context.Context, s *UploadSession) error
	// Increment bumps file_count and last_activity_at of session sessionID.
	// It returns nil, nil when the user's session is gone or was replaced.
	Increment(ctx context.Context, userID int64, sessionID string, at time.Time) (*UploadSession, error)
	// Delete removes the user's session. A non-empty sessionID only matches that session.
	Delete(ctx context.Context, userID int64, sessionID string) (bool, error)
	ListIdle(ctx context.Context, before time.Time, limit int) ([]*UploadSession, error)
}

// BlobStore is the optional blob collaborator. Handles are opaque object keys.
type BlobStore interface {
	PresignGet(ctx context.Context, handle, fileName string) (string, error)
	Remove(ctx context.Context, handles []string) error
}

// TaskRunner runs fire-and-forget background work
type TaskRunner interface {
	Go(name string, task func(ctx context.Context) error) error
}

// Scheduler runs fn every interval until ctx is done
type Scheduler interface {
	Every(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) error) error
}

// Repos bundles the registry store
type Repos struct {
	Tx     Transactor
	Users  UserRepo
	Stats  StatsRepo
	Groups GroupRepo
	Files  FileRepo
	Links  LinkRepo
}
