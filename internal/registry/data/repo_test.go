package data

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lk2023060901/filestore-backend/internal/pkg/database"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := database.NewFromConn(conn, nil, logger.NewNop())
	require.NoError(t, err)
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestUserRepo_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	joined := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(q("INSERT INTO users (user_id, display_name, username, is_active, joined_at)")).
		WithArgs(int64(1001), "Alice", "alice", joined).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "display_name", "username", "is_active", "joined_at"}).
			AddRow(1001, "Alice", "alice", false, joined))

	u, err := repo.Upsert(context.Background(), &biz.User{ID: 1001, DisplayName: "Alice", Username: "alice", JoinedAt: joined})
	require.NoError(t, err)
	assert.Equal(t, int64(1001), u.ID)
	assert.False(t, u.IsActive, "stored activity flag wins over the input")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(q(`FROM "users" WHERE user_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := repo.Get(context.Background(), 42)
	assert.True(t, apperrors.Is(err, apperrors.ErrUserNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_SetActiveMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(q(`UPDATE "users" SET "is_active"=$1 WHERE user_id = $2`)).
		WithArgs(false, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), 7, false)
	assert.True(t, apperrors.Is(err, apperrors.ErrUserNotFound))
}

func TestStatsRepo(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatsRepo(db)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(q("INSERT INTO stats (user_id, uploads, downloads, last_active)")).
		WithArgs(int64(1001), int64(1), int64(0), at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AddUpload(ctx, 1001, at))

	mock.ExpectQuery(q(`FROM "stats" WHERE user_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	st, err := repo.Get(ctx, 1002)
	require.NoError(t, err)
	assert.Equal(t, &biz.Stats{UserID: 1002}, st)

	mock.ExpectQuery(q("SELECT")).
		WillReturnRows(sqlmock.NewRows([]string{"users", "active_users", "groups", "files", "active_links", "total_bytes"}).
			AddRow(3, 2, 4, 9, 1, 2048))
	sum, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, &biz.AdminStats{Users: 3, ActiveUsers: 2, Groups: 4, Files: 9, ActiveLinks: 1, TotalBytes: 2048}, sum)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepo_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupRepo(db)

	mock.ExpectQuery(q(`INSERT INTO "groups"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: biz.ConstraintGroupOwnerName})

	err := repo.Create(context.Background(), &biz.Group{Name: "Movies", OwnerID: 1001, CreatedAt: time.Now()})
	assert.True(t, biz.IsUniqueViolation(err, biz.ConstraintGroupOwnerName))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupRepo(db)

	mock.ExpectQuery(q(`INSERT INTO "groups"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	g := &biz.Group{Name: "Movies", OwnerID: 1001, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), g))
	assert.Equal(t, int64(12), g.ID)
}

func TestGroupRepo_NextSerial(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(q("SELECT GREATEST(g.last_serial")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(4))
	next, err := repo.NextSerial(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)

	mock.ExpectQuery(q("SELECT GREATEST(g.last_serial")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"next"}))
	_, err = repo.NextSerial(ctx, 8)
	assert.True(t, apperrors.Is(err, apperrors.ErrGroupNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepo_RenameAndDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupRepo(db)
	ctx := context.Background()

	mock.ExpectExec(q(`UPDATE "groups" SET "name"=$1 WHERE id = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, apperrors.Is(repo.Rename(ctx, 3, "x"), apperrors.ErrGroupNotFound))

	mock.ExpectExec(q(`DELETE FROM "groups" WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, apperrors.Is(repo.Delete(ctx, 3), apperrors.ErrGroupNotFound))

	mock.ExpectExec(q(`UPDATE "groups" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.ApplyFileAdded(ctx, 3, 100, 9))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepo_CreateErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "serial taken",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: biz.ConstraintFileGroupSerial},
			check: func(t *testing.T, err error) {
				assert.True(t, biz.IsUniqueViolation(err, biz.ConstraintFileGroupSerial))
			},
		},
		{
			name: "group gone",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "files_group_id_fkey"},
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.Is(err, apperrors.ErrGroupNotFound))
			},
		},
		{
			name: "store timeout",
			err:  context.DeadlineExceeded,
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsKind(err, apperrors.KindTransientStore))
			},
		},
		{
			name: "anything else",
			err:  errors.New("boom"),
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.Is(err, apperrors.ErrInternalServer))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewFileRepo(db)

			mock.ExpectQuery(q(`INSERT INTO "files"`)).WillReturnError(tt.err)
			err := repo.Create(context.Background(), &biz.File{GroupID: 1, Serial: 1, UniqueCode: "c", FileName: "a.txt", FileType: biz.KindDocument})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFileRepo_SearchEscapesWildcards(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFileRepo(db)

	mock.ExpectQuery(q(`owner_id = $1 AND file_name ILIKE $2 ESCAPE '\'`)).
		WithArgs(int64(1001), `%50\%\_off%`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_name", "tags"}).AddRow(1, "50%_off.pdf", []byte(`["promo"]`)))

	files, err := repo.Search(context.Background(), 1001, "50%_off", 25)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, []string{"promo"}, files[0].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepo_Consume(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepo(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	mock.ExpectExec(q("UPDATE links SET")).
		WithArgs(now, int64(5), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Consume(ctx, 5, now)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(q("UPDATE links SET")).
		WithArgs(now, int64(5), now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Consume(ctx, 5, now)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepo_DeactivateOnlyActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepo(db)

	mock.ExpectExec(q(`UPDATE "links" SET`) + ".*" + q("WHERE id = $4 AND active")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Deactivate(context.Background(), 9, biz.ReasonRevoked, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepo_GetByCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(q(`FROM "links" WHERE code = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "active", "deactivation_reason"}).
			AddRow(4, "abc", false, "expired"))
	l, err := repo.GetByCode(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, biz.ReasonExpired, l.DeactivationReason)

	mock.ExpectQuery(q(`FROM "links" WHERE code = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.GetByCode(ctx, "nope")
	assert.True(t, apperrors.Is(err, apperrors.ErrLinkNotFound))
}

func TestTransactor(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepos(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(q(`UPDATE "users" SET "is_active"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err := repos.Tx.InTx(ctx, func(ctx context.Context) error {
		return repos.Users.SetActive(ctx, 1, false)
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = repos.Tx.InTx(ctx, func(ctx context.Context) error {
		return apperrors.New(apperrors.ErrForbidden)
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStringArrayJSON(t *testing.T) {
	var tags StringArrayJSON
	require.NoError(t, tags.Scan(nil))
	assert.Equal(t, StringArrayJSON{}, tags)

	require.NoError(t, tags.Scan(`["a","b"]`))
	assert.Equal(t, StringArrayJSON{"a", "b"}, tags)
	assert.Error(t, tags.Scan(42))

	v, err := StringArrayJSON(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}
