package data

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/minio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	put     map[string]string
	removed []string
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, name string, r io.Reader, _ int64, _ string) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	b, _ := io.ReadAll(r)
	if f.put == nil {
		f.put = map[string]string{}
	}
	f.put[name] = string(b)
	return minio.UploadInfo{Key: name, Size: int64(len(b))}, nil
}

func (f *fakeObjects) RemoveObjects(_ context.Context, names []string) error {
	f.removed = append(f.removed, names...)
	return f.err
}

func (f *fakeObjects) PresignedGetObject(_ context.Context, name, fileName string, _ time.Duration) (*url.URL, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &url.URL{Scheme: "http", Host: "blob", Path: "/" + name, RawQuery: "name=" + fileName}, nil
}

func TestBlobStore(t *testing.T) {
	objects := &fakeObjects{}
	blobs := &BlobStore{objects: objects}
	ctx := context.Background()

	handle, err := blobs.Put(ctx, "../notes.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(handle, "attachments/"))
	assert.True(t, strings.HasSuffix(handle, "/notes.txt"))
	assert.Equal(t, "hello", objects.put[handle])

	u, err := blobs.PresignGet(ctx, handle, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "http://blob/"+handle+"?name=notes.txt", u)

	require.NoError(t, blobs.Remove(ctx, []string{handle}))
	assert.Equal(t, []string{handle}, objects.removed)
}

func TestBlobStore_Errors(t *testing.T) {
	blobs := &BlobStore{objects: &fakeObjects{err: errors.New("connection refused")}}
	ctx := context.Background()

	_, err := blobs.Put(ctx, "a", strings.NewReader(""), 0, "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindTransientStore))
	_, err = blobs.PresignGet(ctx, "attachments/x/a", "a")
	assert.True(t, apperrors.IsKind(err, apperrors.KindTransientStore))
	assert.True(t, apperrors.IsKind(blobs.Remove(ctx, []string{"attachments/x/a"}), apperrors.KindTransientStore))
}

func TestBlobStore_ForeignHandles(t *testing.T) {
	objects := &fakeObjects{err: errors.New("must not be called")}
	blobs := &BlobStore{objects: objects}
	ctx := context.Background()

	u, err := blobs.PresignGet(ctx, "BQACAgIAAxkBAAIC", "report.pdf")
	require.NoError(t, err)
	assert.Empty(t, u)

	require.NoError(t, blobs.Remove(ctx, []string{"BQACAgIAAxkBAAIC", "photo-file-id"}))
	assert.Empty(t, objects.removed)
}
