// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, found, err := s.Get(ctx, "cached_destination")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Set(ctx, "cached_destination", "https://cached.example"))
	v, found, err := s.Get(ctx, "cached_destination")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "https://cached.example", v)

	require.NoError(t, s.Set(ctx, "cached_destination", "https://newer.example"))
	v, _, err = s.Get(ctx, "cached_destination")
	require.NoError(t, err)
	require.Equal(t, "https://newer.example", v)

	require.NoError(t, s.Set(ctx, "empty", ""))
	v, found, err = s.Get(ctx, "empty")
	require.NoError(t, err)
	require.True(t, found, "empty values are still present")
	require.Equal(t, "", v)

	require.NoError(t, s.Delete(ctx, "cached_destination"))
	require.NoError(t, s.Delete(ctx, "never_set"))
	_, found, err = s.Get(ctx, "cached_destination")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Set(context.Background(), "k", "v"), ErrClosed)
}

func TestSqliteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.sqlite")
	s, err := NewSqliteStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Set(context.Background(), "first_launch_done", "true"))
	require.NoError(t, s.Close())

	reopened, err := NewSqliteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, found, err := reopened.Get(context.Background(), "first_launch_done")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "true", v)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Set(context.Background(), "status", "Inactive"))
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Ping(context.Background()), ErrClosed)

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, found, err := reopened.Get(context.Background(), "status")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Inactive", v)
}

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadgerStore(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Ping(context.Background()), ErrClosed)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
	require.NoError(t, s.Set(context.Background(), "device_id", "abc"))
	got, err := mr.Get("castlog:device_id")
	require.NoError(t, err)
	require.Equal(t, "abc", got)
}

func TestRedisStore_ConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr})
	require.Error(t, err)
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, backend := range []string{"", BackendSQLite, BackendFile, BackendBadger, BackendMemory} {
		t.Run("backend="+backend, func(t *testing.T) {
			s, err := Open(ctx, Config{Backend: backend, Dir: filepath.Join(dir, "b-"+backend)})
			require.NoError(t, err)
			require.NoError(t, s.Ping(ctx))
			require.NoError(t, s.Close())
		})
	}

	s, err := Open(ctx, Config{Backend: BackendSQLite})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, Config{Backend: "bolt"})
	require.ErrorIs(t, err, ErrUnknownBackend)
}
