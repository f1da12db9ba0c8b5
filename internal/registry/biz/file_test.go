package biz_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteFile_DecrementsTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	files := f.upload(t, alice, "Movies", "a.mkv", "b.mkv", "c.mkv")
	groupID := files[0].GroupID
	require.Equal(t, int64(300), f.group(t, groupID).TotalSize)

	err := f.files.DeleteFile(ctx, bob, files[1].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileNotFound))

	require.NoError(t, f.files.DeleteFile(ctx, alice, files[1].ID))
	g := f.group(t, groupID)
	assert.Equal(t, int64(2), g.TotalFiles)
	assert.Equal(t, int64(200), g.TotalSize)

	err = f.files.DeleteFile(ctx, alice, files[1].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileNotFound))
	g = f.group(t, groupID)
	assert.Equal(t, int64(2), g.TotalFiles, "a failed delete leaves totals alone")
	assert.Equal(t, int64(200), g.TotalSize)
}

func TestDeleteFile_RollsBackOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	files := f.upload(t, alice, "Movies", "a.mkv")
	f.store.FailNext("Groups.ApplyFileRemoved", apperrors.New(apperrors.ErrStoreUnavailable))

	err := f.files.DeleteFile(ctx, alice, files[0].ID)
	require.Error(t, err)

	got, err := f.files.GetFile(ctx, alice, files[0].ID)
	require.NoError(t, err, "file survives the rolled back delete")
	assert.Equal(t, files[0].Serial, got.Serial)
	assert.Equal(t, int64(1), f.group(t, files[0].GroupID).TotalFiles)
}

func TestEditFileMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.upload(t, alice, "Docs", "draft.pdf")[0]

	got, err := f.files.RenameFile(ctx, alice, file.ID, " final.pdf ")
	require.NoError(t, err)
	assert.Equal(t, "final.pdf", got.FileName)

	_, err = f.files.RenameFile(ctx, alice, file.ID, "  ")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))

	got, err = f.files.EditCaption(ctx, alice, file.ID, "Q3 report")
	require.NoError(t, err)
	assert.Equal(t, "Q3 report", got.Caption)

	got, err = f.files.SetTags(ctx, alice, file.ID, []string{"#Work", "work", " q3 ", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "q3"}, got.Tags)

	_, err = f.files.SetTags(ctx, bob, file.ID, []string{"x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrFileNotFound))

	stored, err := f.files.GetFile(ctx, alice, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "final.pdf", stored.FileName)
	assert.Equal(t, "Q3 report", stored.Caption)
	assert.Equal(t, []string{"work", "q3"}, stored.Tags)
	assert.Equal(t, int64(1), stored.ViewCount)
}

func TestReplaceFile_AdjustsGroupSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.upload(t, alice, "Docs", "a.pdf")[0]

	link, err := f.links.IssueLink(ctx, alice, file.ID, nil, nil)
	require.NoError(t, err)

	got, err := f.files.ReplaceFile(ctx, alice, file.ID, biz.Document{FileName: "a.pdf", FileSize: 250, Handle: "blob/a-v2.pdf"})
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.FileSize)
	assert.Equal(t, file.Serial, got.Serial)
	assert.Equal(t, int64(250), f.group(t, file.GroupID).TotalSize)

	res, err := f.links.RedeemLink(ctx, link.Code, bob)
	require.NoError(t, err)
	assert.Equal(t, "blob/a-v2.pdf", res.StorageHandle)

	_, err = f.files.ReplaceFile(ctx, alice, file.ID, biz.Document{FileName: "a.pdf", FileSize: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidAttachment))
}

func TestSearchFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upload(t, alice, "Movies", "The_Matrix.mkv", "matrix-reloaded.mkv", "Alien.mkv", "100%_real.txt")
	f.upload(t, bob, "Movies", "matrix.mkv")

	tests := []struct {
		query string
		want  int
	}{
		{"matrix", 2},
		{"MATRIX", 2},
		{"alien", 1},
		{"%", 1},
		{"_", 2},
		{"nothing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			files, err := f.files.SearchFiles(ctx, alice, tt.query, 0)
			require.NoError(t, err)
			assert.Len(t, files, tt.want)
		})
	}

	_, err := f.files.SearchFiles(ctx, alice, " ", 0)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))
}

func TestListFilesAndFindBySerial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	files := f.upload(t, alice, "Movies", "a.mkv", "b.mkv", "c.mkv")
	groupID := files[0].GroupID

	list, err := f.files.ListFiles(ctx, alice, groupID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(3), list[0].Serial)
	assert.Equal(t, int64(2), list[1].Serial)

	got, err := f.files.FindFileBySerial(ctx, alice, groupID, 2)
	require.NoError(t, err)
	assert.Equal(t, "b.mkv", got.FileName)

	_, err = f.files.FindFileBySerial(ctx, alice, groupID, 9)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileNotFound))

	_, err = f.files.FindFileBySerial(ctx, bob, groupID, 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrGroupNotFound))
}

func TestListRecentFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upload(t, alice, "A", "1.txt")
	f.clock.Advance(time.Second)
	f.upload(t, alice, "B", "2.txt")

	files, err := f.files.ListRecentFiles(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "2.txt", files[0].FileName)
}

func TestDownloadFile_CountsForOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.upload(t, alice, "Docs", "a.pdf")[0]

	got, err := f.files.DownloadFile(ctx, alice, file.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.DownloadCount)
	assert.Equal(t, "blob/a.pdf", got.StorageHandle)

	_, err = f.files.DownloadFile(ctx, bob, file.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileNotFound))

	st, err := f.users.UserStats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Uploads)
	assert.Equal(t, int64(1), st.Downloads)
}

func TestFileMutations_StrangerSeesNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.upload(t, alice, "Docs", "a.pdf")[0]

	tests := []struct {
		name string
		call func(actor, fileID int64) error
	}{
		{name: "rename", call: func(actor, id int64) error {
			_, err := f.files.RenameFile(ctx, actor, id, "b.pdf")
			return err
		}},
		{name: "caption", call: func(actor, id int64) error {
			_, err := f.files.EditCaption(ctx, actor, id, "x")
			return err
		}},
		{name: "tags", call: func(actor, id int64) error {
			_, err := f.files.SetTags(ctx, actor, id, []string{"x"})
			return err
		}},
		{name: "download", call: func(actor, id int64) error {
			_, err := f.files.DownloadFile(ctx, actor, id)
			return err
		}},
		{name: "delete", call: func(actor, id int64) error {
			return f.files.DeleteFile(ctx, actor, id)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			foreign := tt.call(bob, file.ID)
			missing := tt.call(bob, 999)
			require.Error(t, foreign)
			require.Error(t, missing)
			assert.Equal(t, apperrors.ErrFileNotFound, apperrors.ExtractCode(foreign))
			assert.Equal(t, apperrors.ExtractCode(missing), apperrors.ExtractCode(foreign))
		})
	}

	got, err := f.files.GetFile(ctx, alice, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got.FileName)
}
