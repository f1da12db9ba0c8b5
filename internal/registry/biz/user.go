package biz

import (
	"context"
	"strings"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"

	"go.uber.org/zap"
)

// UserUseCase 用户与统计
type UserUseCase struct {
	*Registry
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(r *Registry) *UserUseCase {
	return &UserUseCase{Registry: r}
}

// RegisterUser upserts the user on interaction and touches last_active
func (uc *UserUseCase) RegisterUser(ctx context.Context, userID int64, displayName, username string) (*User, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	now := uc.now()
	in := &User{
		ID:          userID,
		DisplayName: strings.TrimSpace(displayName),
		Username:    strings.TrimPrefix(strings.TrimSpace(username), "@"),
		IsActive:    true,
		JoinedAt:    now,
	}

	var out *User
	err := uc.retry(ctx, "register_user", func(ctx context.Context) error {
		return uc.repos.Tx.InTx(ctx, func(ctx context.Context) error {
			u, err := uc.repos.Users.Upsert(ctx, in)
			if err != nil {
				return err
			}
			if err := uc.repos.Stats.Touch(ctx, userID, now); err != nil {
				return err
			}
			out = u
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeactivateUser 停用用户（仅管理员）。已签发的链接仍然有效
func (uc *UserUseCase) DeactivateUser(ctx context.Context, actor, userID int64) error {
	if err := uc.gate.Can(actor, ActionAdmin, 0); err != nil {
		return err
	}

	err := uc.once(ctx, func(ctx context.Context) error {
		return uc.repos.Users.SetActive(ctx, userID, false)
	})
	if err != nil {
		return err
	}

	uc.log.WithContext(ctx).Info("user deactivated", zap.Int64("user_id", userID), zap.Int64("by", actor))
	return nil
}

// UserStats 查询用户统计
func (uc *UserUseCase) UserStats(ctx context.Context, userID int64) (*Stats, error) {
	var st *Stats
	err := uc.retry(ctx, "user_stats", func(ctx context.Context) error {
		var err error
		st, err = uc.repos.Stats.Get(ctx, userID)
		return err
	})
	return st, err
}

// Leaderboard returns the most active users, uploads first
func (uc *UserUseCase) Leaderboard(ctx context.Context, limit int) ([]*Stats, error) {
	limit = uc.limit(limit, 10)

	var top []*Stats
	err := uc.retry(ctx, "leaderboard", func(ctx context.Context) error {
		var err error
		top, err = uc.repos.Stats.Top(ctx, limit)
		return err
	})
	return top, err
}

// AdminStats 全局统计（仅管理员）
func (uc *UserUseCase) AdminStats(ctx context.Context, actor int64) (*AdminStats, error) {
	if err := uc.gate.Can(actor, ActionAdmin, 0); err != nil {
		return nil, err
	}

	var st *AdminStats
	err := uc.retry(ctx, "admin_stats", func(ctx context.Context) error {
		var err error
		st, err = uc.repos.Stats.Summary(ctx)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to load admin stats")
	}
	return st, nil
}
