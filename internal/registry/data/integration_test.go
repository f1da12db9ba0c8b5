//go:build integration
// +build integration

package data_test

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	appdata "github.com/lk2023060901/filestore-backend/internal/data"
	"github.com/lk2023060901/filestore-backend/internal/pkg/database"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"github.com/lk2023060901/filestore-backend/internal/registry/data"
	"github.com/lk2023060901/filestore-backend/internal/registry/data/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 运行方式: TEST_DB_HOST=localhost go test -tags=integration ./internal/registry/data/
// 测试会清空 public schema，请使用独立的测试库。

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setupRegistry(t *testing.T) *biz.Registry {
	t.Helper()

	cfg := database.DefaultConfig()
	cfg.Host = getEnv("TEST_DB_HOST", "localhost")
	cfg.User = getEnv("TEST_DB_USER", "postgres")
	cfg.Password = getEnv("TEST_DB_PASSWORD", "postgres")
	cfg.DBName = getEnv("TEST_DB_NAME", "filestore_test")
	if port, err := strconv.Atoi(getEnv("TEST_DB_PORT", "5432")); err == nil {
		cfg.Port = port
	}
	cfg.MaxOpenConns = 20

	log := logger.NewNop()
	db, err := database.New(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.SQLDB()
	require.NoError(t, err)

	ctx := context.Background()
	_, err = sqlDB.ExecContext(ctx, "DROP SCHEMA public CASCADE; CREATE SCHEMA public;")
	require.NoError(t, err)
	require.NoError(t, appdata.RunMigrations(ctx, sqlDB))

	bizCfg := biz.DefaultConfig()
	bizCfg.TransientBackoff = 10 * time.Millisecond
	return biz.NewRegistry(data.NewRepos(db), bizCfg, log, nil)
}

func TestPostgres_ConcurrentIngestSerialsAreDense(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	groups := biz.NewGroupUseCase(reg, nil, nil)
	uploads := biz.NewUploadUseCase(reg, memstore.NewSessionStore(), groups, biz.NewSerialAllocator(reg))

	sess, err := uploads.StartUploadSession(ctx, 1, biz.GroupByName("Movies"), biz.ModeBulk)
	require.NoError(t, err)

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		serials []int
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			att := biz.Document{FileName: fmt.Sprintf("part%02d.mkv", i), FileSize: 10, Handle: fmt.Sprintf("tg/%d", i)}
			res, err := uploads.IngestFile(ctx, 1, sess.ID, att, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			serials = append(serials, int(res.File.Serial))
		}(i)
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Ints(serials)
	for i, s := range serials {
		assert.Equal(t, i+1, s)
	}

	g, err := groups.GetGroup(ctx, 1, sess.GroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), g.TotalFiles)
	assert.Equal(t, int64(n*10), g.TotalSize)
}

func TestPostgres_SingleUseLinkRedeemedOnce(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	groups := biz.NewGroupUseCase(reg, nil, nil)
	uploads := biz.NewUploadUseCase(reg, memstore.NewSessionStore(), groups, biz.NewSerialAllocator(reg))
	links := biz.NewLinkUseCase(reg)

	_, err := uploads.StartUploadSession(ctx, 1, biz.GroupByName("Docs"), biz.ModeSingle)
	require.NoError(t, err)
	res, err := uploads.IngestFile(ctx, 1, "", biz.Document{FileName: "a.pdf", FileSize: 5, Handle: "tg/a"}, "")
	require.NoError(t, err)

	one := int64(1)
	link, err := links.IssueLink(ctx, 1, res.File.ID, nil, &one)
	require.NoError(t, err)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		exhausted int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := links.RedeemLink(ctx, link.Code, 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperrors.Is(err, apperrors.ErrLinkExhausted):
				exhausted++
			default:
				t.Errorf("unexpected redeem error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, exhausted)
}
