package memstore

import (
	"context"
	"sort"
	"time"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

type linkRepo struct{ s *Store }

func (r linkRepo) Create(ctx context.Context, l *biz.Link) error {
	unlock, err := r.s.begin(ctx, "Links.Create")
	if err != nil {
		return err
	}
	defer unlock()

	st := r.s.state
	if _, ok := st.files[l.FileID]; !ok {
		return apperrors.New(apperrors.ErrFileNotFound)
	}
	for _, cur := range st.links {
		if cur.Code == l.Code {
			return biz.NewUniqueViolation(biz.ConstraintLinkCode, nil)
		}
	}

	st.nextLinkID++
	l.ID = st.nextLinkID
	st.links[l.ID] = copyLink(l)
	return nil
}

func (r linkRepo) GetByCode(ctx context.Context, code string) (*biz.Link, error) {
	unlock, err := r.s.begin(ctx, "Links.GetByCode")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, l := range r.s.state.links {
		if l.Code == code {
			return copyLink(l), nil
		}
	}
	return nil, apperrors.New(apperrors.ErrLinkNotFound)
}

func (r linkRepo) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*biz.Link, error) {
	unlock, err := r.s.begin(ctx, "Links.ListByOwner")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []*biz.Link
	for _, l := range r.s.state.links {
		if l.OwnerID == ownerID {
			out = append(out, copyLink(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out[:clamp(limit, len(out))], nil
}

func (r linkRepo) Consume(ctx context.Context, id int64, now time.Time) (bool, error) {
	unlock, err := r.s.begin(ctx, "Links.Consume")
	if err != nil {
		return false, err
	}
	defer unlock()

	l, ok := r.s.state.links[id]
	if !ok || !l.Active || l.Exhausted() || l.ExpiredAt(now) {
		return false, nil
	}

	l.CurrentUses++
	if l.Exhausted() {
		l.Active = false
		l.DeactivationReason = biz.ReasonExhausted
		at := now
		l.DeactivatedAt = &at
	}
	return true, nil
}

func (r linkRepo) Deactivate(ctx context.Context, id int64, reason biz.DeactivationReason, at time.Time) (bool, error) {
	unlock, err := r.s.begin(ctx, "Links.Deactivate")
	if err != nil {
		return false, err
	}
	defer unlock()

	l, ok := r.s.state.links[id]
	if !ok || !l.Active {
		return false, nil
	}
	l.Active = false
	l.DeactivationReason = reason
	l.DeactivatedAt = &at
	return true, nil
}

func (r linkRepo) SetExpiry(ctx context.Context, id int64, expiresAt *time.Time) (bool, error) {
	unlock, err := r.s.begin(ctx, "Links.SetExpiry")
	if err != nil {
		return false, err
	}
	defer unlock()

	l, ok := r.s.state.links[id]
	if !ok || !l.Active {
		return false, nil
	}
	if expiresAt == nil {
		l.ExpiresAt = nil
	} else {
		t := *expiresAt
		l.ExpiresAt = &t
	}
	return true, nil
}

func (r linkRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*biz.Link, error) {
	unlock, err := r.s.begin(ctx, "Links.ListExpired")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []*biz.Link
	for _, l := range r.s.state.links {
		if l.Active && l.ExpiredAt(now) {
			out = append(out, copyLink(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out[:clamp(limit, len(out))], nil
}
