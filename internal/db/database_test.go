package db

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HardCodeMatter/file-fortress-api/internal/config"
	"github.com/HardCodeMatter/file-fortress-api/internal/db/migrations"
	"github.com/HardCodeMatter/file-fortress-api/internal/models"
)

func TestOpen_SQLiteFileAndMigrate(t *testing.T) {
	cfg := config.DBConfig{
		Driver: "sqlite",
		URL:    filepath.Join(t.TempDir(), "fortress.db"),
	}

	gdb, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, Migrate(context.Background(), cfg, gdb))
	assert.True(t, gdb.Migrator().HasTable(&models.User{}))
	assert.True(t, gdb.Migrator().HasTable(&models.File{}))
	assert.True(t, gdb.Migrator().HasIndex(&models.File{}, "idx_files_storage_key"))
	assert.NoError(t, Ping(context.Background(), gdb))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DBConfig{Driver: "mysql", URL: "x"})
	require.Error(t, err)
}

func TestOpenSQLiteMemory(t *testing.T) {
	gdb, err := OpenSQLiteMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	u := models.User{ID: "u1", Username: "king", Email: "king@fortress.com", HashedPassword: "h", IsActive: true}
	require.NoError(t, gdb.Create(&u).Error)

	dup := models.User{ID: "u2", Username: "king", Email: "other@fortress.com", HashedPassword: "h"}
	assert.Error(t, gdb.Create(&dup).Error)
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_create_users.sql", "00002_create_files.sql"}, names)
}

func TestRunMigrations_PropagatesGooseError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return errors.New("boom")
	}

	err := RunMigrations(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, ".", gotDir)
}
