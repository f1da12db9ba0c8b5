package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

type fileRepo struct{ s *Store }

func (r fileRepo) Create(ctx context.Context, f *biz.File) error {
	unlock, err := r.s.begin(ctx, "Files.Create")
	if err != nil {
		return err
	}
	defer unlock()

	st := r.s.state
	if _, ok := st.groups[f.GroupID]; !ok {
		return apperrors.New(apperrors.ErrGroupNotFound)
	}
	for _, cur := range st.files {
		if cur.GroupID == f.GroupID && cur.Serial == f.Serial {
			return biz.NewUniqueViolation(biz.ConstraintFileGroupSerial, nil)
		}
		if cur.UniqueCode == f.UniqueCode {
			return biz.NewUniqueViolation(biz.ConstraintFileUniqueCode, nil)
		}
	}

	st.nextFileID++
	f.ID = st.nextFileID
	st.files[f.ID] = copyFile(f)
	return nil
}

func (r fileRepo) Get(ctx context.Context, id int64) (*biz.File, error) {
	unlock, err := r.s.begin(ctx, "Files.Get")
	if err != nil {
		return nil, err
	}
	defer unlock()

	f, ok := r.s.state.files[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrFileNotFound)
	}
	return copyFile(f), nil
}

func (r fileRepo) GetBySerial(ctx context.Context, groupID, serial int64) (*biz.File, error) {
	unlock, err := r.s.begin(ctx, "Files.GetBySerial")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, f := range r.s.state.files {
		if f.GroupID == groupID && f.Serial == serial {
			return copyFile(f), nil
		}
	}
	return nil, apperrors.New(apperrors.ErrFileNotFound)
}

func (r fileRepo) collect(match func(f *biz.File) bool, less func(a, b *biz.File) bool, limit int) []*biz.File {
	var out []*biz.File
	for _, f := range r.s.state.files {
		if match(f) {
			out = append(out, copyFile(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out[:clamp(limit, len(out))]
}

func newestFirst(a, b *biz.File) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (r fileRepo) ListByGroup(ctx context.Context, groupID int64, limit int) ([]*biz.File, error) {
	unlock, err := r.s.begin(ctx, "Files.ListByGroup")
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.collect(
		func(f *biz.File) bool { return f.GroupID == groupID },
		func(a, b *biz.File) bool { return a.Serial > b.Serial },
		limit,
	), nil
}

func (r fileRepo) ListByUploader(ctx context.Context, uploaderID int64, limit int) ([]*biz.File, error) {
	unlock, err := r.s.begin(ctx, "Files.ListByUploader")
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.collect(func(f *biz.File) bool { return f.UploaderID == uploaderID }, newestFirst, limit), nil
}

func (r fileRepo) Search(ctx context.Context, ownerID int64, query string, limit int) ([]*biz.File, error) {
	unlock, err := r.s.begin(ctx, "Files.Search")
	if err != nil {
		return nil, err
	}
	defer unlock()

	q := strings.ToLower(query)
	return r.collect(func(f *biz.File) bool {
		return f.OwnerID == ownerID && strings.Contains(strings.ToLower(f.FileName), q)
	}, newestFirst, limit), nil
}

func (r fileRepo) Update(ctx context.Context, id int64, upd biz.FileUpdate, at time.Time) error {
	unlock, err := r.s.begin(ctx, "Files.Update")
	if err != nil {
		return err
	}
	defer unlock()

	f, ok := r.s.state.files[id]
	if !ok {
		return apperrors.New(apperrors.ErrFileNotFound)
	}
	if upd.FileName != nil {
		f.FileName = *upd.FileName
	}
	if upd.Caption != nil {
		f.Caption = *upd.Caption
	}
	if upd.SetTags {
		f.Tags = append([]string(nil), upd.Tags...)
	}
	f.UpdatedAt = at
	return nil
}

func (r fileRepo) ReplaceContent(ctx context.Context, id int64, kind biz.AttachmentKind, handle string, size int64, at time.Time) error {
	unlock, err := r.s.begin(ctx, "Files.ReplaceContent")
	if err != nil {
		return err
	}
	defer unlock()

	f, ok := r.s.state.files[id]
	if !ok {
		return apperrors.New(apperrors.ErrFileNotFound)
	}
	f.FileType = kind
	f.StorageHandle = handle
	f.FileSize = size
	f.UpdatedAt = at
	return nil
}

func (r fileRepo) Delete(ctx context.Context, id int64) error {
	unlock, err := r.s.begin(ctx, "Files.Delete")
	if err != nil {
		return err
	}
	defer unlock()

	st := r.s.state
	if _, ok := st.files[id]; !ok {
		return apperrors.New(apperrors.ErrFileNotFound)
	}
	delete(st.files, id)
	for lid, l := range st.links {
		if l.FileID == id {
			delete(st.links, lid)
		}
	}
	return nil
}

func (r fileRepo) bump(ctx context.Context, op string, id int64, apply func(f *biz.File)) error {
	unlock, err := r.s.begin(ctx, op)
	if err != nil {
		return err
	}
	defer unlock()

	f, ok := r.s.state.files[id]
	if !ok {
		return apperrors.New(apperrors.ErrFileNotFound)
	}
	apply(f)
	return nil
}

func (r fileRepo) IncrementViews(ctx context.Context, id int64) error {
	return r.bump(ctx, "Files.IncrementViews", id, func(f *biz.File) { f.ViewCount++ })
}

func (r fileRepo) IncrementDownloads(ctx context.Context, id int64) error {
	return r.bump(ctx, "Files.IncrementDownloads", id, func(f *biz.File) { f.DownloadCount++ })
}

func (r fileRepo) StorageHandles(ctx context.Context, groupID int64) ([]string, error) {
	unlock, err := r.s.begin(ctx, "Files.StorageHandles")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []string
	for _, f := range r.s.state.files {
		if f.GroupID == groupID {
			out = append(out, f.StorageHandle)
		}
	}
	sort.Strings(out)
	return out, nil
}
