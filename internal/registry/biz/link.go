package biz

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"

	"go.uber.org/zap"
)

// Redemption outcomes as counted in metrics
const (
	OutcomeSuccess   = "success"
	OutcomeNotFound  = "not_found"
	OutcomeRevoked   = "revoked"
	OutcomeExpired   = "expired"
	OutcomeExhausted = "exhausted"
	OutcomeError     = "error"
)

// redeemAttempts bounds how often a lost conditional update is re-classified
const redeemAttempts = 3

var errUseNotTaken = errors.New("link use not taken")

// LinkUseCase 分享链接的签发、兑换、撤销
type LinkUseCase struct {
	*Registry
}

// NewLinkUseCase creates a new link use case
func NewLinkUseCase(r *Registry) *LinkUseCase {
	return &LinkUseCase{Registry: r}
}

// reasonError maps a stored deactivation reason to the error redeemers see
func reasonError(reason DeactivationReason) error {
	switch reason {
	case ReasonExpired:
		return apperrors.New(apperrors.ErrLinkExpired)
	case ReasonExhausted:
		return apperrors.New(apperrors.ErrLinkExhausted)
	default:
		return apperrors.New(apperrors.ErrLinkRevoked)
	}
}

func outcomeOf(err error) string {
	switch apperrors.ExtractCode(err) {
	case apperrors.ErrLinkNotFound:
		return OutcomeNotFound
	case apperrors.ErrLinkRevoked:
		return OutcomeRevoked
	case apperrors.ErrLinkExpired:
		return OutcomeExpired
	case apperrors.ErrLinkExhausted:
		return OutcomeExhausted
	default:
		return OutcomeError
	}
}

func (uc *LinkUseCase) getByCode(ctx context.Context, code string) (*Link, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.New(apperrors.ErrLinkNotFound)
	}

	var l *Link
	err := uc.retry(ctx, "get_link", func(ctx context.Context) error {
		var err error
		l, err = uc.repos.Links.GetByCode(ctx, code)
		return err
	})
	return l, err
}

// IssueLink creates a share link for a file. ttl and maxUses are optional.
func (uc *LinkUseCase) IssueLink(ctx context.Context, actor, fileID int64, ttl *time.Duration, maxUses *int64) (*Link, error) {
	var f *File
	err := uc.retry(ctx, "issue_link_lookup", func(ctx context.Context) error {
		var err error
		f, err = uc.repos.Files.Get(ctx, fileID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := uc.gate.CanOn(actor, ActionShare, f.OwnerID, apperrors.ErrFileNotFound); err != nil {
		return nil, err
	}

	if ttl != nil && *ttl <= 0 {
		return nil, apperrors.New(apperrors.ErrInvalidTTL)
	}
	if maxUses != nil && *maxUses < 1 {
		return nil, apperrors.New(apperrors.ErrInvalidMaxUses)
	}

	now := uc.now()
	link := &Link{
		FileID:    f.ID,
		GroupID:   f.GroupID,
		OwnerID:   f.OwnerID,
		CreatedAt: now,
		Active:    true,
	}
	if ttl != nil {
		expiresAt := now.Add(*ttl)
		link.ExpiresAt = &expiresAt
	}
	if maxUses != nil {
		n := *maxUses
		link.MaxUses = &n
	}

	for attempt := 1; attempt <= uc.cfg.CodeMaxRetries; attempt++ {
		link.Code = uc.newCode()
		err := uc.retry(ctx, "issue_link", func(ctx context.Context) error {
			return uc.repos.Links.Create(ctx, link)
		})
		if err == nil {
			uc.metrics.RecordLinkIssued()
			uc.log.WithContext(ctx).Info("link issued",
				zap.String("link_code", link.Code),
				zap.Int64("file_id", f.ID),
				zap.Int64("actor", actor),
			)
			return link, nil
		}
		if !IsUniqueViolation(err, ConstraintLinkCode) {
			return nil, err
		}
		uc.log.WithContext(ctx).Warn("link code collision", zap.Int("attempt", attempt))
	}

	return nil, apperrors.New(apperrors.ErrCodeCollision)
}

// deactivate flips the link inactive with reason. If another writer got there first
// the stored reason decides the returned error.
func (uc *LinkUseCase) deactivate(ctx context.Context, l *Link, reason DeactivationReason, now time.Time) error {
	var changed bool
	err := uc.once(ctx, func(ctx context.Context) error {
		var err error
		changed, err = uc.repos.Links.Deactivate(ctx, l.ID, reason, now)
		return err
	})
	if err != nil {
		return err
	}
	if changed {
		uc.log.WithContext(ctx).Info("link deactivated",
			zap.String("link_code", l.Code),
			zap.Int64("link_id", l.ID),
			zap.String("reason", string(reason)),
		)
		return reasonError(reason)
	}

	current, err := uc.getByCode(ctx, l.Code)
	if err != nil {
		return err
	}
	return reasonError(current.DeactivationReason)
}

// classify returns the error l must fail with at now, or nil if it is usable
func (uc *LinkUseCase) classify(ctx context.Context, l *Link, now time.Time) error {
	switch {
	case !l.Active:
		return reasonError(l.DeactivationReason)
	case l.ExpiredAt(now):
		return uc.deactivate(ctx, l, ReasonExpired, now)
	case l.Exhausted():
		return uc.deactivate(ctx, l, ReasonExhausted, now)
	}
	return nil
}

// RedeemLink takes one use of the link and returns the file it grants.
// redeemerID is 0 for anonymous redemption.
func (uc *LinkUseCase) RedeemLink(ctx context.Context, code string, redeemerID int64) (*Redemption, error) {
	res, err := uc.redeem(ctx, code, redeemerID)
	if err != nil {
		uc.metrics.RecordRedemption(outcomeOf(err))
		return nil, err
	}
	uc.metrics.RecordRedemption(OutcomeSuccess)
	return res, nil
}

func (uc *LinkUseCase) redeem(ctx context.Context, code string, redeemerID int64) (*Redemption, error) {
	if err := uc.gate.Can(redeemerID, ActionRedeem, 0); err != nil {
		return nil, err
	}

	l, err := uc.getByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < redeemAttempts; attempt++ {
		now := uc.now()
		if err := uc.classify(ctx, l, now); err != nil {
			return nil, err
		}

		var f *File
		err := uc.once(ctx, func(ctx context.Context) error {
			return uc.repos.Tx.InTx(ctx, func(ctx context.Context) error {
				taken, err := uc.repos.Links.Consume(ctx, l.ID, now)
				if err != nil {
					return err
				}
				if !taken {
					return errUseNotTaken
				}
				if err := uc.repos.Files.IncrementDownloads(ctx, l.FileID); err != nil {
					return err
				}
				if redeemerID > 0 {
					if err := uc.repos.Stats.AddDownload(ctx, redeemerID, now); err != nil {
						return err
					}
				}
				f, err = uc.repos.Files.Get(ctx, l.FileID)
				return err
			})
		})

		switch {
		case err == nil:
			l.CurrentUses++
			if l.Exhausted() {
				l.Active = false
				l.DeactivationReason = ReasonExhausted
				l.DeactivatedAt = &now
			}
			uc.log.WithContext(ctx).Info("link redeemed",
				zap.String("link_code", l.Code),
				zap.Int64("file_id", f.ID),
				zap.Int64("redeemer", redeemerID),
				zap.Int64("uses", l.CurrentUses),
			)
			return &Redemption{StorageHandle: f.StorageHandle, File: f, Link: l}, nil
		case errors.Is(err, errUseNotTaken):
			// 条件更新未命中：重新读取并按当前状态分类
			if l, err = uc.getByCode(ctx, l.Code); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}

	return nil, apperrors.New(apperrors.ErrConflict, "link changed concurrently")
}

// RevokeLink deactivates the link for good. Revoking an inactive link is a no-op.
func (uc *LinkUseCase) RevokeLink(ctx context.Context, actor int64, code string) error {
	l, err := uc.getByCode(ctx, code)
	if err != nil {
		return err
	}
	if err := uc.gate.CanOn(actor, ActionRevoke, l.OwnerID, apperrors.ErrLinkNotFound); err != nil {
		return err
	}
	if !l.Active {
		return nil
	}

	err = uc.once(ctx, func(ctx context.Context) error {
		_, err := uc.repos.Links.Deactivate(ctx, l.ID, ReasonRevoked, uc.now())
		return err
	})
	if err != nil {
		return err
	}

	uc.log.WithContext(ctx).Info("link revoked",
		zap.String("link_code", l.Code),
		zap.Int64("link_id", l.ID),
		zap.Int64("actor", actor),
	)
	return nil
}

// ExtendLink resets the expiry to now+ttl, or removes it when ttl is nil
func (uc *LinkUseCase) ExtendLink(ctx context.Context, actor int64, code string, ttl *time.Duration) (*Link, error) {
	l, err := uc.getByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.CanOn(actor, ActionExtend, l.OwnerID, apperrors.ErrLinkNotFound); err != nil {
		return nil, err
	}
	if ttl != nil && *ttl <= 0 {
		return nil, apperrors.New(apperrors.ErrInvalidTTL)
	}

	now := uc.now()
	if err := uc.classify(ctx, l, now); err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if ttl != nil {
		t := now.Add(*ttl)
		expiresAt = &t
	}

	var changed bool
	err = uc.once(ctx, func(ctx context.Context) error {
		var err error
		changed, err = uc.repos.Links.SetExpiry(ctx, l.ID, expiresAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		current, err := uc.getByCode(ctx, l.Code)
		if err != nil {
			return nil, err
		}
		return nil, reasonError(current.DeactivationReason)
	}

	l.ExpiresAt = expiresAt
	return l, nil
}

// GetLink returns one of the actor's links
func (uc *LinkUseCase) GetLink(ctx context.Context, actor int64, code string) (*Link, error) {
	l, err := uc.getByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.CanView(actor, l.OwnerID, apperrors.ErrLinkNotFound); err != nil {
		return nil, err
	}
	return l, nil
}

// ListLinks 我的链接，最新的在前
func (uc *LinkUseCase) ListLinks(ctx context.Context, ownerID int64, limit int) ([]*Link, error) {
	if err := uc.gate.Can(ownerID, ActionView, ownerID); err != nil {
		return nil, err
	}
	limit = uc.limit(limit, uc.cfg.LinkListLimit)

	var links []*Link
	err := uc.retry(ctx, "list_links", func(ctx context.Context) error {
		var err error
		links, err = uc.repos.Links.ListByOwner(ctx, ownerID, limit)
		return err
	})
	return links, err
}
