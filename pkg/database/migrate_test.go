package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubGoose(t *testing.T, up func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error, version func(context.Context, *sql.DB) (int64, error)) {
	t.Helper()
	origUp, origVersion := gooseUp, gooseVersion
	gooseUp, gooseVersion = up, version
	t.Cleanup(func() {
		gooseUp, gooseVersion = origUp, origVersion
	})
}

func newMigrateDB(t *testing.T) *sqlx.DB {
	t.Helper()
	raw, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "sqlmock")
}

func TestMigrateRunsGooseUpFromRoot(t *testing.T) {
	db := newMigrateDB(t)
	fsys := fstest.MapFS{
		"0001_init.sql": {Data: []byte("-- +goose Up\nCREATE TABLE a (id TEXT);\n")},
	}

	var gotDir string
	var gotDB *sql.DB
	stubGoose(t,
		func(_ context.Context, conn *sql.DB, dir string, _ ...goose.OptionsFunc) error {
			gotDB, gotDir = conn, dir
			return nil
		},
		func(context.Context, *sql.DB) (int64, error) { return 1, nil },
	)

	version, err := Migrate(context.Background(), db, fsys, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, ".", gotDir)
	assert.Same(t, db.DB, gotDB)
}

func TestMigrateWrapsGooseErrors(t *testing.T) {
	db := newMigrateDB(t)
	cause := errors.New("relation already exists")

	stubGoose(t,
		func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error { return cause },
		func(context.Context, *sql.DB) (int64, error) {
			t.Fatal("version must not be read after a failed migration")
			return 0, nil
		},
	)

	_, err := Migrate(context.Background(), db, fstest.MapFS{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "goose up")
}
