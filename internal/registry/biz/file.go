package biz

import (
	"context"
	"strings"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"

	"go.uber.org/zap"
)

const (
	maxTags      = 20
	maxTagLength = 32
)

// FileUseCase 文件查询与编辑
type FileUseCase struct {
	*Registry
	cleaner *blobCleaner
	kinds   map[AttachmentKind]struct{}
}

// NewFileUseCase creates a new file use case. blobs and tasks may be nil.
func NewFileUseCase(r *Registry, blobs BlobStore, tasks TaskRunner) *FileUseCase {
	kinds := make(map[AttachmentKind]struct{}, len(r.cfg.AllowedKinds))
	for _, k := range r.cfg.AllowedKinds {
		kinds[k] = struct{}{}
	}
	return &FileUseCase{
		Registry: r,
		cleaner:  newBlobCleaner(blobs, tasks, r.log),
		kinds:    kinds,
	}
}

// ListFiles lists a group's files, highest serial first
func (uc *FileUseCase) ListFiles(ctx context.Context, actor, groupID int64, limit int) ([]*File, error) {
	limit = uc.limit(limit, uc.cfg.FileListLimit)

	var files []*File
	err := uc.retry(ctx, "list_files", func(ctx context.Context) error {
		g, err := uc.repos.Groups.Get(ctx, groupID)
		if err != nil {
			return err
		}
		if err := uc.gate.CanView(actor, g.OwnerID, apperrors.ErrGroupNotFound); err != nil {
			return err
		}
		files, err = uc.repos.Files.ListByGroup(ctx, groupID, limit)
		return err
	})
	return files, err
}

// SearchFiles finds the owner's files whose name contains query
func (uc *FileUseCase) SearchFiles(ctx context.Context, ownerID int64, query string, limit int) ([]*File, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "search query is empty")
	}
	if err := uc.gate.Can(ownerID, ActionView, ownerID); err != nil {
		return nil, err
	}
	limit = uc.limit(limit, uc.cfg.SearchLimit)

	var files []*File
	err := uc.retry(ctx, "search_files", func(ctx context.Context) error {
		var err error
		files, err = uc.repos.Files.Search(ctx, ownerID, query, limit)
		return err
	})
	return files, err
}

// ListRecentFiles 用户最近上传的文件
func (uc *FileUseCase) ListRecentFiles(ctx context.Context, uploaderID int64, limit int) ([]*File, error) {
	if err := uc.gate.Can(uploaderID, ActionView, uploaderID); err != nil {
		return nil, err
	}
	limit = uc.limit(limit, uc.cfg.FileListLimit)

	var files []*File
	err := uc.retry(ctx, "recent_files", func(ctx context.Context) error {
		var err error
		files, err = uc.repos.Files.ListByUploader(ctx, uploaderID, limit)
		return err
	})
	return files, err
}

// GetFile returns file details for its owner and counts the view
func (uc *FileUseCase) GetFile(ctx context.Context, actor, fileID int64) (*File, error) {
	var f *File
	err := uc.retry(ctx, "get_file", func(ctx context.Context) error {
		var err error
		if f, err = uc.repos.Files.Get(ctx, fileID); err != nil {
			return err
		}
		if err := uc.gate.CanView(actor, f.OwnerID, apperrors.ErrFileNotFound); err != nil {
			return err
		}
		if err := uc.repos.Files.IncrementViews(ctx, fileID); err != nil {
			return err
		}
		f.ViewCount++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// FindFileBySerial 按组内序号查找文件
func (uc *FileUseCase) FindFileBySerial(ctx context.Context, actor, groupID, serial int64) (*File, error) {
	if serial <= 0 {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "serial must be positive")
	}

	var f *File
	err := uc.retry(ctx, "find_by_serial", func(ctx context.Context) error {
		g, err := uc.repos.Groups.Get(ctx, groupID)
		if err != nil {
			return err
		}
		if err := uc.gate.CanView(actor, g.OwnerID, apperrors.ErrGroupNotFound); err != nil {
			return err
		}
		f, err = uc.repos.Files.GetBySerial(ctx, groupID, serial)
		return err
	})
	return f, err
}

// mutate loads the file, checks action against its owner and runs fn in one transaction
func (uc *FileUseCase) mutate(ctx context.Context, actor, fileID int64, action Action, fn func(ctx context.Context, f *File) error) (*File, error) {
	var f *File
	err := uc.once(ctx, func(ctx context.Context) error {
		return uc.repos.Tx.InTx(ctx, func(ctx context.Context) error {
			var err error
			if f, err = uc.repos.Files.Get(ctx, fileID); err != nil {
				return err
			}
			if err := uc.gate.CanOn(actor, action, f.OwnerID, apperrors.ErrFileNotFound); err != nil {
				return err
			}
			return fn(ctx, f)
		})
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// RenameFile 重命名文件
func (uc *FileUseCase) RenameFile(ctx context.Context, actor, fileID int64, name string) (*File, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "file name is empty")
	}

	return uc.mutate(ctx, actor, fileID, ActionRename, func(ctx context.Context, f *File) error {
		now := uc.now()
		if err := uc.repos.Files.Update(ctx, f.ID, FileUpdate{FileName: &name}, now); err != nil {
			return err
		}
		f.FileName = name
		f.UpdatedAt = now
		return nil
	})
}

// EditCaption sets the caption; an empty caption clears it
func (uc *FileUseCase) EditCaption(ctx context.Context, actor, fileID int64, caption string) (*File, error) {
	caption = strings.TrimSpace(caption)

	return uc.mutate(ctx, actor, fileID, ActionCaption, func(ctx context.Context, f *File) error {
		now := uc.now()
		if err := uc.repos.Files.Update(ctx, f.ID, FileUpdate{Caption: &caption}, now); err != nil {
			return err
		}
		f.Caption = caption
		f.UpdatedAt = now
		return nil
	})
}

// NormalizeTags trims, lowercases and de-duplicates tags, dropping a leading '#'
func NormalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t == "" {
			continue
		}
		if len(t) > maxTagLength {
			return nil, apperrors.Newf(apperrors.ErrInvalidParams, "tag %q longer than %d", t, maxTagLength)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "at most %d tags", maxTags)
	}
	return out, nil
}

// SetTags replaces the file's tags
func (uc *FileUseCase) SetTags(ctx context.Context, actor, fileID int64, tags []string) (*File, error) {
	tags, err := NormalizeTags(tags)
	if err != nil {
		return nil, err
	}

	return uc.mutate(ctx, actor, fileID, ActionTag, func(ctx context.Context, f *File) error {
		now := uc.now()
		if err := uc.repos.Files.Update(ctx, f.ID, FileUpdate{Tags: tags, SetTags: true}, now); err != nil {
			return err
		}
		f.Tags = tags
		f.UpdatedAt = now
		return nil
	})
}

// ReplaceFile swaps the stored content of a file, keeping its serial, name and links.
// The group's total_size moves by the size delta in the same transaction.
func (uc *FileUseCase) ReplaceFile(ctx context.Context, actor, fileID int64, att Attachment) (*File, error) {
	if att == nil || strings.TrimSpace(att.StorageHandle()) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidAttachment, "storage handle is empty")
	}
	if _, ok := uc.kinds[att.Kind()]; !ok {
		return nil, apperrors.New(apperrors.ErrUnsupportedFileType, string(att.Kind()))
	}
	if att.Size() < 0 {
		return nil, apperrors.New(apperrors.ErrInvalidAttachment, "file size is negative")
	}
	if uc.cfg.MaxFileSize > 0 && att.Size() > uc.cfg.MaxFileSize {
		return nil, apperrors.Newf(apperrors.ErrFileTooLarge, "%d > %d bytes", att.Size(), uc.cfg.MaxFileSize)
	}

	var oldHandle string
	f, err := uc.mutate(ctx, actor, fileID, ActionReplace, func(ctx context.Context, f *File) error {
		now := uc.now()
		if err := uc.repos.Files.ReplaceContent(ctx, f.ID, att.Kind(), att.StorageHandle(), att.Size(), now); err != nil {
			return err
		}
		if delta := att.Size() - f.FileSize; delta != 0 {
			if err := uc.repos.Groups.AdjustSize(ctx, f.GroupID, delta); err != nil {
				return err
			}
		}
		oldHandle = f.StorageHandle
		f.FileType = att.Kind()
		f.StorageHandle = att.StorageHandle()
		f.FileSize = att.Size()
		f.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if oldHandle != "" && oldHandle != f.StorageHandle {
		uc.cleaner.remove([]string{oldHandle})
	}
	return f, nil
}

// DownloadFile is the owner's direct download. It counts the download for the file and the actor.
func (uc *FileUseCase) DownloadFile(ctx context.Context, actor, fileID int64) (*File, error) {
	return uc.mutate(ctx, actor, fileID, ActionDownload, func(ctx context.Context, f *File) error {
		if err := uc.repos.Files.IncrementDownloads(ctx, f.ID); err != nil {
			return err
		}
		if err := uc.repos.Stats.AddDownload(ctx, actor, uc.now()); err != nil {
			return err
		}
		f.DownloadCount++
		return nil
	})
}

// DeleteFile removes the file and its links, decrementing the group totals in the same transaction
func (uc *FileUseCase) DeleteFile(ctx context.Context, actor, fileID int64) error {
	f, err := uc.mutate(ctx, actor, fileID, ActionDelete, func(ctx context.Context, f *File) error {
		if err := uc.repos.Files.Delete(ctx, f.ID); err != nil {
			return err
		}
		return uc.repos.Groups.ApplyFileRemoved(ctx, f.GroupID, f.FileSize)
	})
	if err != nil {
		return err
	}

	uc.log.WithContext(ctx).Info("file deleted",
		zap.Int64("file_id", f.ID),
		zap.Int64("group_id", f.GroupID),
		zap.String("serial", FormatSerial(f.Serial)),
	)
	uc.cleaner.remove([]string{f.StorageHandle})
	return nil
}
