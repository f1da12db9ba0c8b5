package memstore

import (
	"context"
	"sort"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

type groupRepo struct{ s *Store }

func (r groupRepo) nameTaken(ownerID int64, name string, except int64) bool {
	for _, g := range r.s.state.groups {
		if g.OwnerID == ownerID && g.Name == name && g.ID != except {
			return true
		}
	}
	return false
}

func (r groupRepo) Create(ctx context.Context, g *biz.Group) error {
	unlock, err := r.s.begin(ctx, "Groups.Create")
	if err != nil {
		return err
	}
	defer unlock()

	if r.nameTaken(g.OwnerID, g.Name, 0) {
		return biz.NewUniqueViolation(biz.ConstraintGroupOwnerName, nil)
	}

	st := r.s.state
	st.nextGroupID++
	g.ID = st.nextGroupID
	st.groups[g.ID] = copyGroup(g)
	return nil
}

func (r groupRepo) Get(ctx context.Context, id int64) (*biz.Group, error) {
	unlock, err := r.s.begin(ctx, "Groups.Get")
	if err != nil {
		return nil, err
	}
	defer unlock()

	g, ok := r.s.state.groups[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrGroupNotFound)
	}
	return copyGroup(g), nil
}

func (r groupRepo) GetByName(ctx context.Context, ownerID int64, name string) (*biz.Group, error) {
	unlock, err := r.s.begin(ctx, "Groups.GetByName")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, g := range r.s.state.groups {
		if g.OwnerID == ownerID && g.Name == name {
			return copyGroup(g), nil
		}
	}
	return nil, apperrors.New(apperrors.ErrGroupNotFound)
}

func (r groupRepo) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*biz.Group, error) {
	unlock, err := r.s.begin(ctx, "Groups.ListByOwner")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []*biz.Group
	for _, g := range r.s.state.groups {
		if g.OwnerID == ownerID {
			out = append(out, copyGroup(g))
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

func (r groupRepo) Rename(ctx context.Context, id int64, name string) error {
	unlock, err := r.s.begin(ctx, "Groups.Rename")
	if err != nil {
		return err
	}
	defer unlock()

	g, ok := r.s.state.groups[id]
	if !ok {
		return apperrors.New(apperrors.ErrGroupNotFound)
	}
	if r.nameTaken(g.OwnerID, name, id) {
		return biz.NewUniqueViolation(biz.ConstraintGroupOwnerName, nil)
	}
	g.Name = name
	return nil
}

func (r groupRepo) Delete(ctx context.Context, id int64) error {
	unlock, err := r.s.begin(ctx, "Groups.Delete")
	if err != nil {
		return err
	}
	defer unlock()

	st := r.s.state
	if _, ok := st.groups[id]; !ok {
		return apperrors.New(apperrors.ErrGroupNotFound)
	}
	delete(st.groups, id)
	for fid, f := range st.files {
		if f.GroupID == id {
			delete(st.files, fid)
		}
	}
	for lid, l := range st.links {
		if l.GroupID == id {
			delete(st.links, lid)
		}
	}
	return nil
}

func (r groupRepo) NextSerial(ctx context.Context, id int64) (int64, error) {
	unlock, err := r.s.begin(ctx, "Groups.NextSerial")
	if err != nil {
		return 0, err
	}
	defer unlock()

	g, ok := r.s.state.groups[id]
	if !ok {
		return 0, apperrors.New(apperrors.ErrGroupNotFound)
	}
	high := g.LastSerial
	for _, f := range r.s.state.files {
		if f.GroupID == id && f.Serial > high {
			high = f.Serial
		}
	}
	return high + 1, nil
}

func (r groupRepo) ApplyFileAdded(ctx context.Context, id, size, serial int64) error {
	unlock, err := r.s.begin(ctx, "Groups.ApplyFileAdded")
	if err != nil {
		return err
	}
	defer unlock()

	g, ok := r.s.state.groups[id]
	if !ok {
		return apperrors.New(apperrors.ErrGroupNotFound)
	}
	g.TotalFiles++
	g.TotalSize += size
	if serial > g.LastSerial {
		g.LastSerial = serial
	}
	return nil
}

func (r groupRepo) ApplyFileRemoved(ctx context.Context, id, size int64) error {
	unlock, err := r.s.begin(ctx, "Groups.ApplyFileRemoved")
	if err != nil {
		return err
	}
	defer unlock()

	g, ok := r.s.state.groups[id]
	if !ok {
		return apperrors.New(apperrors.ErrGroupNotFound)
	}
	g.TotalFiles--
	g.TotalSize -= size
	return nil
}

func (r groupRepo) AdjustSize(ctx context.Context, id, delta int64) error {
	unlock, err := r.s.begin(ctx, "Groups.AdjustSize")
	if err != nil {
		return err
	}
	defer unlock()

	g, ok := r.s.state.groups[id]
	if !ok {
		return apperrors.New(apperrors.ErrGroupNotFound)
	}
	g.TotalSize += delta
	return nil
}
