package memstore

import (
	"context"
	"sort"
	"time"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

type userRepo struct{ s *Store }

func (r userRepo) Upsert(ctx context.Context, u *biz.User) (*biz.User, error) {
	unlock, err := r.s.begin(ctx, "Users.Upsert")
	if err != nil {
		return nil, err
	}
	defer unlock()

	st := r.s.state
	if cur, ok := st.users[u.ID]; ok {
		if u.DisplayName != "" {
			cur.DisplayName = u.DisplayName
		}
		cur.Username = u.Username
		return copyUser(cur), nil
	}

	row := copyUser(u)
	row.IsActive = true
	st.users[u.ID] = row
	return copyUser(row), nil
}

func (r userRepo) Get(ctx context.Context, id int64) (*biz.User, error) {
	unlock, err := r.s.begin(ctx, "Users.Get")
	if err != nil {
		return nil, err
	}
	defer unlock()

	u, ok := r.s.state.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrUserNotFound)
	}
	return copyUser(u), nil
}

func (r userRepo) SetActive(ctx context.Context, id int64, active bool) error {
	unlock, err := r.s.begin(ctx, "Users.SetActive")
	if err != nil {
		return err
	}
	defer unlock()

	u, ok := r.s.state.users[id]
	if !ok {
		return apperrors.New(apperrors.ErrUserNotFound)
	}
	u.IsActive = active
	return nil
}

type statsRepo struct{ s *Store }

func (r statsRepo) row(userID int64) *biz.Stats {
	st, ok := r.s.state.stats[userID]
	if !ok {
		st = &biz.Stats{UserID: userID}
		r.s.state.stats[userID] = st
	}
	return st
}

func (r statsRepo) Touch(ctx context.Context, userID int64, at time.Time) error {
	unlock, err := r.s.begin(ctx, "Stats.Touch")
	if err != nil {
		return err
	}
	defer unlock()

	r.row(userID).LastActive = at
	return nil
}

func (r statsRepo) AddUpload(ctx context.Context, userID int64, at time.Time) error {
	unlock, err := r.s.begin(ctx, "Stats.AddUpload")
	if err != nil {
		return err
	}
	defer unlock()

	st := r.row(userID)
	st.Uploads++
	st.LastActive = at
	return nil
}

func (r statsRepo) AddDownload(ctx context.Context, userID int64, at time.Time) error {
	unlock, err := r.s.begin(ctx, "Stats.AddDownload")
	if err != nil {
		return err
	}
	defer unlock()

	st := r.row(userID)
	st.Downloads++
	st.LastActive = at
	return nil
}

func (r statsRepo) Get(ctx context.Context, userID int64) (*biz.Stats, error) {
	unlock, err := r.s.begin(ctx, "Stats.Get")
	if err != nil {
		return nil, err
	}
	defer unlock()

	if st, ok := r.s.state.stats[userID]; ok {
		c := *st
		return &c, nil
	}
	return &biz.Stats{UserID: userID}, nil
}

func (r statsRepo) Top(ctx context.Context, limit int) ([]*biz.Stats, error) {
	unlock, err := r.s.begin(ctx, "Stats.Top")
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]*biz.Stats, 0, len(r.s.state.stats))
	for _, st := range r.s.state.stats {
		c := *st
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Uploads != out[j].Uploads {
			return out[i].Uploads > out[j].Uploads
		}
		if out[i].Downloads != out[j].Downloads {
			return out[i].Downloads > out[j].Downloads
		}
		return out[i].UserID < out[j].UserID
	})
	return out[:clamp(limit, len(out))], nil
}

func (r statsRepo) Summary(ctx context.Context) (*biz.AdminStats, error) {
	unlock, err := r.s.begin(ctx, "Stats.Summary")
	if err != nil {
		return nil, err
	}
	defer unlock()

	st := r.s.state
	sum := &biz.AdminStats{
		Users:  int64(len(st.users)),
		Groups: int64(len(st.groups)),
		Files:  int64(len(st.files)),
	}
	for _, u := range st.users {
		if u.IsActive {
			sum.ActiveUsers++
		}
	}
	for _, l := range st.links {
		if l.Active {
			sum.ActiveLinks++
		}
	}
	for _, g := range st.groups {
		sum.TotalBytes += g.TotalSize
	}
	return sum, nil
}
