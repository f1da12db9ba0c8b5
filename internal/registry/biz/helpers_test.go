package biz_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/metrics"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"github.com/lk2023060901/filestore-backend/internal/registry/data/memstore"

	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 1001
	bob   int64 = 1002
	admin int64 = 9000
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *memstore.Store
	sessions *memstore.SessionStore
	clock    *fakeClock
	metrics  *metrics.Metrics

	registry *biz.Registry
	users    *biz.UserUseCase
	groups   *biz.GroupUseCase
	files    *biz.FileUseCase
	links    *biz.LinkUseCase
	uploads  *biz.UploadUseCase
	sweeper  *biz.Sweeper
}

type fixtureOption func(cfg *biz.Config, opts *[]biz.Option)

func withConfig(fn func(cfg *biz.Config)) fixtureOption {
	return func(cfg *biz.Config, _ *[]biz.Option) { fn(cfg) }
}

func withCodes(codes ...string) fixtureOption {
	return func(_ *biz.Config, opts *[]biz.Option) {
		var mu sync.Mutex
		i := 0
		*opts = append(*opts, biz.WithCodeGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			c := codes[i%len(codes)]
			i++
			return c
		}))
	}
}

func newFixture(t *testing.T, options ...fixtureOption) *fixture {
	t.Helper()

	cfg := biz.DefaultConfig()
	cfg.AdminIDs = []int64{admin}
	cfg.TransientBackoff = time.Millisecond

	clock := newFakeClock()
	opts := []biz.Option{biz.WithClock(clock.Now)}
	for _, o := range options {
		o(cfg, &opts)
	}

	store := memstore.New()
	sessions := memstore.NewSessionStore()
	m := metrics.NewMetrics("filestore_test")

	r := biz.NewRegistry(store.Repos(), cfg, logger.NewNop(), m, opts...)
	groups := biz.NewGroupUseCase(r, nil, nil)
	uploads := biz.NewUploadUseCase(r, sessions, groups, biz.NewSerialAllocator(r))

	return &fixture{
		store:    store,
		sessions: sessions,
		clock:    clock,
		metrics:  m,
		registry: r,
		users:    biz.NewUserUseCase(r),
		groups:   groups,
		files:    biz.NewFileUseCase(r, nil, nil),
		links:    biz.NewLinkUseCase(r),
		uploads:  uploads,
		sweeper:  biz.NewSweeper(r, uploads, biz.SweeperConfig{SessionIdle: 30 * time.Minute}),
	}
}

func doc(name string, size int64) biz.Attachment {
	return biz.Document{FileName: name, FileSize: size, Handle: "blob/" + name}
}

// upload starts a bulk session on group name and ingests the given documents
func (f *fixture) upload(t *testing.T, owner int64, group string, names ...string) []*biz.File {
	t.Helper()
	ctx := context.Background()

	_, err := f.uploads.StartUploadSession(ctx, owner, biz.GroupByName(group), biz.ModeBulk)
	require.NoError(t, err)

	out := make([]*biz.File, 0, len(names))
	for _, n := range names {
		res, err := f.uploads.IngestFile(ctx, owner, "", doc(n, 100), "")
		require.NoError(t, err)
		out = append(out, res.File)
	}

	_, err = f.uploads.FinishUpload(ctx, owner)
	require.NoError(t, err)
	return out
}

func (f *fixture) group(t *testing.T, id int64) *biz.Group {
	t.Helper()
	g, err := f.groups.GetGroup(context.Background(), admin, id)
	require.NoError(t, err)
	return g
}

func ttl(d time.Duration) *time.Duration { return &d }

func uses(n int64) *int64 { return &n }
