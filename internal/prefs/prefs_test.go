// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package prefs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/prefs"
	"github.com/marquee-player/marquee/pkg/errutil"
)

var defaults = map[string]any{"fontSize": 14, "theme": "dark"}

func TestFileStore_DefaultsAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")

	s, err := prefs.OpenFile(path, defaults)
	require.NoError(t, err)

	v, ok, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "theme", "light"))
	require.NoError(t, s.Set(ctx, "recent", []any{"a.mkv", "b.mkv"}))
	require.NoError(t, s.Sync(ctx))
	assert.FileExists(t, path)

	reopened, err := prefs.OpenFile(path, defaults)
	require.NoError(t, err)
	v, _, err = reopened.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", v)
	v, _, err = reopened.Get(ctx, "recent")
	require.NoError(t, err)
	assert.Equal(t, []any{"a.mkv", "b.mkv"}, v)
	v, _, err = reopened.Get(ctx, "fontSize")
	require.NoError(t, err)
	assert.Equal(t, 14, v)
}

func TestFileStore_UnsyncedChangesAreNotPersisted(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	s, err := prefs.OpenFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("::: not yaml"), 0o600))

	_, err := prefs.OpenFile(bad, nil)
	require.Error(t, err)

	s, err := prefs.OpenFile(filepath.Join(dir, "ok.yaml"), nil)
	require.NoError(t, err)
	errutil.AssertErrorCode(t, s.Set(ctx, "", 1), fault.CodeInvalidArgument)
	errutil.AssertErrorCode(t, s.Set(ctx, "fn", func() {}), fault.CodeInvalidArgument)
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestRedisStore_SyncWritesHash(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newRedis(t)
	s := prefs.NewRedisStore(rdb, "lyrics", defaults)

	v, ok, err := s.Get(ctx, "fontSize")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 14, v)

	require.NoError(t, s.Set(ctx, "fontSize", 18))
	v, _, err = s.Get(ctx, "fontSize")
	require.NoError(t, err)
	assert.Equal(t, 18, v, "unsynced values are visible to the plugin")
	assert.False(t, mr.Exists(prefs.HashKey("lyrics")))

	require.NoError(t, s.Sync(ctx))
	assert.Equal(t, "18", mr.HGet(prefs.HashKey("lyrics"), "fontSize"))

	fresh := prefs.NewRedisStore(rdb, "lyrics", defaults)
	v, _, err = fresh.Get(ctx, "fontSize")
	require.NoError(t, err)
	assert.Equal(t, float64(18), v)
}

func TestRedisStore_IsolatesPlugins(t *testing.T) {
	ctx := context.Background()
	rdb, _ := newRedis(t)

	a := prefs.NewRedisStore(rdb, "a", nil)
	b := prefs.NewRedisStore(rdb, "b", nil)
	require.NoError(t, a.Set(ctx, "k", map[string]any{"x": true}))
	require.NoError(t, a.Sync(ctx))

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := prefs.NewRedisStore(rdb, "a", nil).Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"x": true}, v)
}

func TestRedisStore_SyncFailureKeepsValues(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newRedis(t)
	s := prefs.NewRedisStore(rdb, "p", nil)
	require.NoError(t, s.Set(ctx, "k", "v"))

	mr.SetError("READONLY replica")
	require.Error(t, s.Sync(ctx))
	mr.SetError("")

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestOpeners(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	fileStore, err := prefs.FileOpener(dir)(ctx, "demo", defaults)
	require.NoError(t, err)
	require.NoError(t, fileStore.Set(ctx, "theme", "light"))
	require.NoError(t, fileStore.Sync(ctx))
	assert.FileExists(t, filepath.Join(dir, "demo.yaml"))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	redisStore, err := prefs.RedisOpener(rdb)(ctx, "demo", defaults)
	require.NoError(t, err)
	v, ok, err := redisStore.Get(ctx, "fontSize")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 14, v)
}
