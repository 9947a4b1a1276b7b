package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db"), MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLoadMigrations_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_index.sql":      {Data: []byte("CREATE INDEX idx_t_name ON t(name);")},
		"001_initial_schema.sql": {Data: []byte("CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);")},
		"README.md":              {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "initial_schema", migrations[0].Name)
	assert.Len(t, migrations[0].Checksum, 64)
	assert.Equal(t, 2, migrations[1].Version)
	assert.NotEqual(t, migrations[0].Checksum, migrations[1].Checksum)
}

func TestLoadMigrations_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name:    "no version",
			fsys:    fstest.MapFS{"initial.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "invalid migration filename",
		},
		{
			name:    "zero version",
			fsys:    fstest.MapFS{"000_base.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "invalid migration filename",
		},
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"001_a.sql": {Data: []byte("SELECT 1;")},
				"001_b.sql": {Data: []byte("SELECT 2;")},
			},
			wantErr: "share version 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.fsys)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMigrator_MigrateIsRepeatable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	migrator := NewMigrator(db, zap.NewNop())

	fsys := fstest.MapFS{
		"001_initial_schema.sql": {Data: []byte("CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);")},
	}

	version, err := migrator.Migrate(ctx, fstest.MapFS{})
	require.NoError(t, err)
	assert.Zero(t, version)

	n, err := migrator.Migrate(ctx, fsys)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = migrator.Migrate(ctx, fsys)
	require.NoError(t, err)
	assert.Zero(t, n)

	fsys["002_add_index.sql"] = &fstest.MapFile{Data: []byte("CREATE INDEX idx_t_name ON t(name);")}
	n, err = migrator.Migrate(ctx, fsys)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	version, err = migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestMigrator_DetectsEditedMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	migrator := NewMigrator(db, zap.NewNop())

	_, err := migrator.Migrate(ctx, fstest.MapFS{
		"001_initial_schema.sql": {Data: []byte("CREATE TABLE t (id INTEGER PRIMARY KEY);")},
	})
	require.NoError(t, err)

	_, err = migrator.Migrate(ctx, fstest.MapFS{
		"001_initial_schema.sql": {Data: []byte("CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);")},
		"002_more.sql":           {Data: []byte("CREATE TABLE u (id INTEGER PRIMARY KEY);")},
	})
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	version, err := migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version, "nothing applied after a mismatch")
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	migrator := NewMigrator(db, zap.NewNop())

	_, err := migrator.Migrate(ctx, fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE t (id INTEGER PRIMARY KEY); SELECT * FROM missing;")},
	})
	require.Error(t, err)

	version, err := migrator.Version(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	assert.Error(t, err)
}
