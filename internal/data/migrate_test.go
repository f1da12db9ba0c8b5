package data

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lk2023060901/filestore-backend/internal/data/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	tests := []struct {
		name    string
		upErr   error
		wantErr bool
	}{
		{name: "success"},
		{name: "goose failure", upErr: errors.New("boom"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := gooseUpContext
			defer func() { gooseUpContext = orig }()

			var gotDir string
			gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
				gotDir = dir
				return tt.upErr
			}

			err := RunMigrations(context.Background(), conn)
			assert.Equal(t, ".", gotDir)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.upErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMigrationStatus(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	orig := gooseStatusContext
	defer func() { gooseStatusContext = orig }()

	called := false
	gooseStatusContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		return nil
	}

	require.NoError(t, MigrationStatus(context.Background(), conn))
	assert.True(t, called)
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"00001_base_schema.sql",
		"00002_serial_mark_and_link_reason.sql",
		"00003_file_metadata_and_search.sql",
	}, names)

	for _, name := range names {
		body, err := fs.ReadFile(migrations.Migrations, name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}
}
