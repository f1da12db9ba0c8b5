package biz

import (
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
)

// Action 授权动作
type Action string

const (
	ActionView        Action = "view"
	ActionCreateGroup Action = "create_group"
	ActionUpload      Action = "upload"
	ActionShare       Action = "share"
	ActionRedeem      Action = "redeem"
	ActionDelete      Action = "delete"
	ActionRename      Action = "rename"
	ActionRevoke      Action = "revoke"
	ActionExtend      Action = "extend"
	ActionCaption     Action = "caption"
	ActionTag         Action = "tag"
	ActionReplace     Action = "replace"
	ActionDownload    Action = "download"
	ActionAdmin       Action = "admin"
)

// Gate decides whether an actor may perform an action on a resource owned by owner
type Gate struct {
	admins           map[int64]struct{}
	allowListEnabled bool
	allowed          map[int64]struct{}
}

// NewGate builds the gate from the admin and allow lists
func NewGate(cfg *Config) *Gate {
	g := &Gate{
		admins:  make(map[int64]struct{}),
		allowed: make(map[int64]struct{}),
	}
	if cfg == nil {
		return g
	}
	for _, id := range cfg.AdminIDs {
		g.admins[id] = struct{}{}
	}
	for _, id := range cfg.AllowedUserIDs {
		g.allowed[id] = struct{}{}
	}
	g.allowListEnabled = cfg.AllowListEnabled
	return g
}

// IsAdmin 是否管理员
func (g *Gate) IsAdmin(actor int64) bool {
	_, ok := g.admins[actor]
	return ok
}

// Can checks, in order: admin bypass, allow-list, open redemption, ownership.
func (g *Gate) Can(actor int64, action Action, owner int64) error {
	if g.IsAdmin(actor) {
		return nil
	}

	if g.allowListEnabled && action != ActionRedeem {
		if _, ok := g.allowed[actor]; !ok {
			return apperrors.New(apperrors.ErrNotAllowListed)
		}
	}

	switch action {
	case ActionRedeem:
		return nil
	case ActionAdmin:
		return apperrors.New(apperrors.ErrForbidden)
	case ActionCreateGroup:
		// 创建分组只要求通过白名单，owner 即 actor 本人
		return nil
	}

	if actor != owner {
		return apperrors.New(apperrors.ErrForbidden)
	}
	return nil
}

// CanOn is Can for an existing owner-scoped resource. A non-owner gets
// notFoundCode so the answer does not reveal whether the resource exists.
func (g *Gate) CanOn(actor int64, action Action, owner int64, notFoundCode int) error {
	err := g.Can(actor, action, owner)
	if apperrors.Is(err, apperrors.ErrForbidden) {
		return apperrors.New(notFoundCode)
	}
	return err
}

// CanView 读权限
func (g *Gate) CanView(actor, owner int64, notFoundCode int) error {
	return g.CanOn(actor, ActionView, owner, notFoundCode)
}
