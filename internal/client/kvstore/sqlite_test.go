package kvstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE settings (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func TestSQLiteRepository_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t))

	_, ok, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Set(ctx, "backend_mode", "cloud"))

	v, ok, err := repo.Get(ctx, "backend_mode")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cloud", v)

	// upsert
	require.NoError(t, repo.Set(ctx, "backend_mode", "local"))
	v, _, err = repo.Get(ctx, "backend_mode")
	require.NoError(t, err)
	require.Equal(t, "local", v)

	require.NoError(t, repo.Delete(ctx, "backend_mode"))
	_, ok, err = repo.Get(ctx, "backend_mode")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteRepository_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t))

	require.NoError(t, repo.Set(ctx, "uiflag:u1:banner", "dismissed"))
	require.NoError(t, repo.Set(ctx, "uiflag:u1:tips", "dismissed"))
	require.NoError(t, repo.Set(ctx, "backend_mode", "cloud"))

	require.NoError(t, repo.DeletePrefix(ctx, "uiflag:u1:"))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"backend_mode": "cloud"}, all)
}

func TestOpen_RunsMigrations(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewSQLiteRepository(db)
	require.NoError(t, repo.Set(ctx, "k", "v"))
}
