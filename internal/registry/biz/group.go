package biz

import (
	"context"
	"strings"
	"unicode/utf8"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"

	"go.uber.org/zap"
)

// GroupUseCase 分组管理
type GroupUseCase struct {
	*Registry
	cleaner *blobCleaner
}

// NewGroupUseCase creates a new group use case. blobs and tasks may be nil.
func NewGroupUseCase(r *Registry, blobs BlobStore, tasks TaskRunner) *GroupUseCase {
	return &GroupUseCase{
		Registry: r,
		cleaner:  newBlobCleaner(blobs, tasks, r.log),
	}
}

func (uc *GroupUseCase) normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.New(apperrors.ErrGroupNameInvalid, "group name is empty")
	}
	if utf8.RuneCountInString(name) > uc.cfg.MaxGroupNameLen {
		return "", apperrors.Newf(apperrors.ErrGroupNameInvalid, "group name longer than %d characters", uc.cfg.MaxGroupNameLen)
	}
	return name, nil
}

// CreateGroup creates a group named name for owner. Names are unique per owner.
func (uc *GroupUseCase) CreateGroup(ctx context.Context, ownerID int64, name string) (*Group, error) {
	if err := validateUserID(ownerID); err != nil {
		return nil, err
	}
	name, err := uc.normalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.Can(ownerID, ActionCreateGroup, ownerID); err != nil {
		return nil, err
	}

	g := &Group{
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: uc.now(),
	}

	err = uc.retry(ctx, "create_group", func(ctx context.Context) error {
		if err := uc.ensureActive(ctx, ownerID); err != nil {
			return err
		}
		return uc.repos.Groups.Create(ctx, g)
	})
	if err != nil {
		if IsUniqueViolation(err, ConstraintGroupOwnerName) {
			return nil, apperrors.New(apperrors.ErrDuplicateGroupName, name)
		}
		return nil, err
	}

	uc.log.WithContext(ctx).Info("group created",
		zap.Int64("group_id", g.ID),
		zap.Int64("owner_id", ownerID),
		zap.String("name", name),
	)
	return g, nil
}

// ListGroups 列出用户的分组，最新的在前
func (uc *GroupUseCase) ListGroups(ctx context.Context, ownerID int64, limit int) ([]*Group, error) {
	if err := uc.gate.Can(ownerID, ActionView, ownerID); err != nil {
		return nil, err
	}
	limit = uc.limit(limit, uc.cfg.GroupListLimit)

	var groups []*Group
	err := uc.retry(ctx, "list_groups", func(ctx context.Context) error {
		var err error
		groups, err = uc.repos.Groups.ListByOwner(ctx, ownerID, limit)
		return err
	})
	return groups, err
}

// GetGroup returns the group if actor may see it. Other owners' groups read as missing.
func (uc *GroupUseCase) GetGroup(ctx context.Context, actor, groupID int64) (*Group, error) {
	var g *Group
	err := uc.retry(ctx, "get_group", func(ctx context.Context) error {
		var err error
		g, err = uc.repos.Groups.Get(ctx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := uc.gate.CanView(actor, g.OwnerID, apperrors.ErrGroupNotFound); err != nil {
		return nil, err
	}
	return g, nil
}

// RenameGroup 重命名分组
func (uc *GroupUseCase) RenameGroup(ctx context.Context, actor, groupID int64, name string) (*Group, error) {
	name, err := uc.normalizeName(name)
	if err != nil {
		return nil, err
	}

	var g *Group
	err = uc.once(ctx, func(ctx context.Context) error {
		return uc.repos.Tx.InTx(ctx, func(ctx context.Context) error {
			var err error
			if g, err = uc.repos.Groups.Get(ctx, groupID); err != nil {
				return err
			}
			if err := uc.gate.CanOn(actor, ActionRename, g.OwnerID, apperrors.ErrGroupNotFound); err != nil {
				return err
			}
			if g.Name == name {
				return nil
			}
			if err := uc.repos.Groups.Rename(ctx, groupID, name); err != nil {
				return err
			}
			g.Name = name
			return nil
		})
	})
	if err != nil {
		if IsUniqueViolation(err, ConstraintGroupOwnerName) {
			return nil, apperrors.New(apperrors.ErrDuplicateGroupName, name)
		}
		return nil, err
	}
	return g, nil
}

// DeleteGroup deletes the group with its files and links. Stored blobs are removed in the background.
func (uc *GroupUseCase) DeleteGroup(ctx context.Context, actor, groupID int64) error {
	var (
		g       *Group
		handles []string
	)

	err := uc.once(ctx, func(ctx context.Context) error {
		return uc.repos.Tx.InTx(ctx, func(ctx context.Context) error {
			var err error
			if g, err = uc.repos.Groups.Get(ctx, groupID); err != nil {
				return err
			}
			if err := uc.gate.CanOn(actor, ActionDelete, g.OwnerID, apperrors.ErrGroupNotFound); err != nil {
				return err
			}
			if handles, err = uc.repos.Files.StorageHandles(ctx, groupID); err != nil {
				return err
			}
			return uc.repos.Groups.Delete(ctx, groupID)
		})
	})
	if err != nil {
		return err
	}

	uc.log.WithContext(ctx).Info("group deleted",
		zap.Int64("group_id", groupID),
		zap.Int64("owner_id", g.OwnerID),
		zap.Int("files", len(handles)),
	)
	uc.cleaner.remove(handles)
	return nil
}

// ResolveGroup finds the actor's group by id or name, creating it by name when asked
func (uc *GroupUseCase) ResolveGroup(ctx context.Context, actor int64, ref GroupRef, createIfMissing bool) (*Group, error) {
	if ref.ID > 0 {
		return uc.GetGroup(ctx, actor, ref.ID)
	}

	name, err := uc.normalizeName(ref.Name)
	if err != nil {
		return nil, err
	}

	lookup := func() (*Group, error) {
		var g *Group
		err := uc.retry(ctx, "get_group_by_name", func(ctx context.Context) error {
			var err error
			g, err = uc.repos.Groups.GetByName(ctx, actor, name)
			return err
		})
		return g, err
	}

	g, err := lookup()
	if err == nil || !apperrors.Is(err, apperrors.ErrGroupNotFound) || !createIfMissing {
		return g, err
	}

	g, err = uc.CreateGroup(ctx, actor, name)
	if apperrors.Is(err, apperrors.ErrDuplicateGroupName) {
		// 并发创建同名分组，读回已存在的那个
		return lookup()
	}
	return g, err
}
