package biz

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadUseCase drives upload sessions and file ingestion.
//
//	Idle --BeginUpload--> AwaitingGroup --ChooseGroup--> Active
//	Idle --StartUploadSession------------------------> Active
//	Active --IngestFile (single)--> Idle
//	any --FinishUpload / CancelUpload--> Idle
type UploadUseCase struct {
	*Registry
	sessions  SessionStore
	groups    *GroupUseCase
	allocator *SerialAllocator
	kinds     map[AttachmentKind]struct{}
}

// NewUploadUseCase creates a new upload use case
func NewUploadUseCase(r *Registry, sessions SessionStore, groups *GroupUseCase, allocator *SerialAllocator) *UploadUseCase {
	kinds := make(map[AttachmentKind]struct{}, len(r.cfg.AllowedKinds))
	for _, k := range r.cfg.AllowedKinds {
		kinds[k] = struct{}{}
	}
	return &UploadUseCase{
		Registry:  r,
		sessions:  sessions,
		groups:    groups,
		allocator: allocator,
		kinds:     kinds,
	}
}

func (uc *UploadUseCase) checkUploader(ctx context.Context, userID int64) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := uc.gate.Can(userID, ActionUpload, userID); err != nil {
		return err
	}
	return uc.retry(ctx, "check_uploader", func(ctx context.Context) error {
		return uc.ensureActive(ctx, userID)
	})
}

func (uc *UploadUseCase) session(ctx context.Context, userID int64) (*UploadSession, error) {
	var s *UploadSession
	err := uc.retry(ctx, "get_session", func(ctx context.Context) error {
		var err error
		s, err = uc.sessions.Get(ctx, userID)
		return err
	})
	return s, err
}

func (uc *UploadUseCase) put(ctx context.Context, s *UploadSession) error {
	return uc.retry(ctx, "put_session", func(ctx context.Context) error {
		return uc.sessions.Put(ctx, s)
	})
}

func (uc *UploadUseCase) newSession(userID int64, mode UploadMode) *UploadSession {
	now := uc.now()
	return &UploadSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		State:          StateAwaitingGroup,
		Mode:           mode,
		StartedAt:      now,
		LastActivityAt: now,
	}
}

// BeginUpload opens a session waiting for a group choice. An existing session is replaced.
func (uc *UploadUseCase) BeginUpload(ctx context.Context, userID int64, mode UploadMode) (*UploadSession, error) {
	if !mode.Valid() {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "unknown upload mode %q", mode)
	}
	if err := uc.checkUploader(ctx, userID); err != nil {
		return nil, err
	}

	s := uc.newSession(userID, mode)
	if err := uc.put(ctx, s); err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Debug("upload session opened",
		zap.String("session_id", s.ID),
		zap.Int64("user_id", userID),
		zap.String("mode", string(mode)),
	)
	return s, nil
}

// ChooseGroup binds the waiting session to a group and activates it
func (uc *UploadUseCase) ChooseGroup(ctx context.Context, userID int64, ref GroupRef, createIfMissing bool) (*UploadSession, error) {
	s, err := uc.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperrors.New(apperrors.ErrNoActiveSession)
	}
	if s.State != StateAwaitingGroup {
		return nil, apperrors.New(apperrors.ErrNoActiveSession, "session is not waiting for a group")
	}

	g, err := uc.groups.ResolveGroup(ctx, userID, ref, createIfMissing)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.CanOn(userID, ActionUpload, g.OwnerID, apperrors.ErrGroupNotFound); err != nil {
		return nil, err
	}

	s.State = StateActive
	s.GroupID = g.ID
	s.GroupName = g.Name
	s.LastActivityAt = uc.now()
	if err := uc.put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// StartUploadSession opens an active session on the named (created if missing) or numbered group
func (uc *UploadUseCase) StartUploadSession(ctx context.Context, userID int64, ref GroupRef, mode UploadMode) (*UploadSession, error) {
	if !mode.Valid() {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "unknown upload mode %q", mode)
	}
	if err := uc.checkUploader(ctx, userID); err != nil {
		return nil, err
	}

	g, err := uc.groups.ResolveGroup(ctx, userID, ref, true)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.CanOn(userID, ActionUpload, g.OwnerID, apperrors.ErrGroupNotFound); err != nil {
		return nil, err
	}

	s := uc.newSession(userID, mode)
	s.State = StateActive
	s.GroupID = g.ID
	s.GroupName = g.Name
	if err := uc.put(ctx, s); err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("upload session started",
		zap.String("session_id", s.ID),
		zap.Int64("user_id", userID),
		zap.Int64("group_id", g.ID),
		zap.String("mode", string(mode)),
	)
	return s, nil
}

func (uc *UploadUseCase) validateAttachment(att Attachment, handle string) (string, error) {
	if att == nil {
		return "", apperrors.New(apperrors.ErrInvalidAttachment, "attachment is required")
	}
	if _, ok := uc.kinds[att.Kind()]; !ok {
		return "", apperrors.New(apperrors.ErrUnsupportedFileType, string(att.Kind()))
	}
	if strings.TrimSpace(att.Name()) == "" {
		return "", apperrors.New(apperrors.ErrInvalidAttachment, "file name is empty")
	}
	if att.Size() < 0 {
		return "", apperrors.New(apperrors.ErrInvalidAttachment, "file size is negative")
	}
	if uc.cfg.MaxFileSize > 0 && att.Size() > uc.cfg.MaxFileSize {
		return "", apperrors.Newf(apperrors.ErrFileTooLarge, "%d > %d bytes", att.Size(), uc.cfg.MaxFileSize)
	}

	if handle == "" {
		handle = att.StorageHandle()
	}
	if strings.TrimSpace(handle) == "" {
		return "", apperrors.New(apperrors.ErrInvalidAttachment, "storage handle is empty")
	}
	return handle, nil
}

// IngestFile records an attachment in the active session's group and assigns its serial.
// storageHandle overrides the attachment's own handle when set. An empty sessionID
// matches whatever session is active.
func (uc *UploadUseCase) IngestFile(ctx context.Context, userID int64, sessionID string, att Attachment, storageHandle string) (*IngestResult, error) {
	handle, err := uc.validateAttachment(att, storageHandle)
	if err != nil {
		return nil, err
	}

	s, err := uc.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.State != StateActive {
		return nil, apperrors.New(apperrors.ErrNoActiveSession)
	}
	if sessionID != "" && sessionID != s.ID {
		return nil, apperrors.New(apperrors.ErrSessionMismatch)
	}

	var g *Group
	err = uc.retry(ctx, "ingest_prepare", func(ctx context.Context) error {
		if err := uc.ensureActive(ctx, userID); err != nil {
			return err
		}
		var err error
		g, err = uc.repos.Groups.Get(ctx, s.GroupID)
		return err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrGroupNotFound) {
			uc.endSession(ctx, userID, s.ID)
		}
		return nil, err
	}
	if err := uc.gate.CanOn(userID, ActionUpload, g.OwnerID, apperrors.ErrGroupNotFound); err != nil {
		return nil, err
	}

	now := uc.now()
	f := &File{
		GroupID:       g.ID,
		OwnerID:       g.OwnerID,
		UploaderID:    userID,
		UniqueCode:    uc.newCode(),
		FileName:      att.Name(),
		FileType:      att.Kind(),
		FileSize:      att.Size(),
		StorageHandle: handle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.allocator.Insert(ctx, f); err != nil {
		return nil, err
	}
	uc.metrics.RecordFileIngested(string(f.FileType))

	uc.log.WithContext(ctx).Info("file ingested",
		zap.Int64("file_id", f.ID),
		zap.Int64("group_id", f.GroupID),
		zap.String("serial", FormatSerial(f.Serial)),
		zap.String("kind", string(f.FileType)),
		zap.Int64("size", f.FileSize),
	)

	res := &IngestResult{File: f}
	if s.Mode == ModeSingle {
		uc.endSession(ctx, userID, s.ID)
		return res, nil
	}

	// 文件已提交，会话计数失败只记日志
	err = uc.once(ctx, func(ctx context.Context) error {
		var err error
		res.Session, err = uc.sessions.Increment(ctx, userID, s.ID, now)
		return err
	})
	if err != nil {
		uc.log.WithContext(ctx).Warn("upload session not updated", zap.String("session_id", s.ID), zap.Error(err))
		res.Session = s
	}
	return res, nil
}

func (uc *UploadUseCase) endSession(ctx context.Context, userID int64, sessionID string) {
	err := uc.once(ctx, func(ctx context.Context) error {
		_, err := uc.sessions.Delete(ctx, userID, sessionID)
		return err
	})
	if err != nil {
		uc.log.WithContext(ctx).Warn("upload session not cleared", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// FinishUpload closes the session and reports what it uploaded
func (uc *UploadUseCase) FinishUpload(ctx context.Context, userID int64) (*UploadSummary, error) {
	s, err := uc.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperrors.New(apperrors.ErrNoActiveSession)
	}

	err = uc.once(ctx, func(ctx context.Context) error {
		_, err := uc.sessions.Delete(ctx, userID, s.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &UploadSummary{
		GroupID:   s.GroupID,
		GroupName: s.GroupName,
		FileCount: s.FileCount,
	}, nil
}

// CancelUpload 取消会话，已提交的文件保留
func (uc *UploadUseCase) CancelUpload(ctx context.Context, userID int64) error {
	var deleted bool
	err := uc.once(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = uc.sessions.Delete(ctx, userID, "")
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.New(apperrors.ErrNoActiveSession)
	}
	return nil
}

// CurrentSession returns the user's session, nil when idle
func (uc *UploadUseCase) CurrentSession(ctx context.Context, userID int64) (*UploadSession, error) {
	return uc.session(ctx, userID)
}

// SweepIdleSessions evicts sessions without activity for maxAge. maxAge <= 0 disables it.
func (uc *UploadUseCase) SweepIdleSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	before := uc.now().Add(-maxAge)

	swept := 0
	for {
		var idle []*UploadSession
		err := uc.retry(ctx, "list_idle_sessions", func(ctx context.Context) error {
			var err error
			idle, err = uc.sessions.ListIdle(ctx, before, uc.cfg.SweepBatchSize)
			return err
		})
		if err != nil {
			return swept, err
		}

		evicted := 0
		for _, s := range idle {
			var deleted bool
			err := uc.once(ctx, func(ctx context.Context) error {
				var err error
				deleted, err = uc.sessions.Delete(ctx, s.UserID, s.ID)
				return err
			})
			if err != nil {
				return swept + evicted, err
			}
			if deleted {
				evicted++
				uc.log.WithContext(ctx).Info("idle upload session evicted",
					zap.String("session_id", s.ID),
					zap.Int64("user_id", s.UserID),
					zap.Time("last_activity_at", s.LastActivityAt),
				)
			}
		}

		swept += evicted
		if len(idle) < uc.cfg.SweepBatchSize || evicted == 0 {
			break
		}
	}

	uc.metrics.RecordSessionsSwept(swept)
	return swept, nil
}
