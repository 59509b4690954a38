// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package player_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/player"
	"github.com/marquee-player/marquee/pkg/errutil"
)

func filenames(t *testing.T, h *player.Headless) []string {
	t.Helper()
	items, err := h.Playlist(0)
	require.NoError(t, err)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Filename
	}
	return out
}

func TestPlaylist_OpenReplacesPlaylist(t *testing.T) {
	h := player.NewHeadless()
	ctx := context.Background()
	_, err := h.PlaylistAdd(0, "/m/old.mkv", -1)
	require.NoError(t, err)

	require.NoError(t, h.Open(ctx, 0, "https://example.com/show/ep1.mp4"))
	items, err := h.Playlist(0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, player.PlaylistItem{
		Filename:  "https://example.com/show/ep1.mp4",
		Title:     "ep1.mp4",
		IsCurrent: true,
		IsPlaying: true,
	}, items[0])

	require.NoError(t, h.Pause(0))
	items, err = h.Playlist(0)
	require.NoError(t, err)
	assert.False(t, items[0].IsPlaying)
	assert.True(t, items[0].IsCurrent)
}

func TestPlaylist_AddRemoveMoveKeepCurrent(t *testing.T) {
	h := player.NewHeadless()
	ctx := context.Background()
	require.NoError(t, h.Open(ctx, 0, "/m/b.mkv"))

	added, err := h.PlaylistAdd(0, "/m/a.mkv", 0)
	require.NoError(t, err)
	assert.Equal(t, "a.mkv", added.Title)
	assert.False(t, added.IsCurrent)
	_, err = h.PlaylistAdd(0, "/m/c.mkv", 99)
	require.NoError(t, err)
	assert.Equal(t, []string{"/m/a.mkv", "/m/b.mkv", "/m/c.mkv"}, filenames(t, h))

	pos, err := h.Property(0, "playlist-pos")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	moved, err := h.PlaylistMove(0, 1, 2)
	require.NoError(t, err)
	assert.True(t, moved.IsCurrent)
	assert.Equal(t, []string{"/m/a.mkv", "/m/c.mkv", "/m/b.mkv"}, filenames(t, h))

	removed, err := h.PlaylistRemove(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "/m/a.mkv", removed.Filename)
	pos, err = h.Property(0, "playlist-pos")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	removed, err = h.PlaylistRemove(0, 1)
	require.NoError(t, err)
	assert.True(t, removed.IsCurrent)
	pos, err = h.Property(0, "playlist-pos")
	require.NoError(t, err)
	assert.Equal(t, -1, pos)
}

func TestPlaylist_PlayAndStep(t *testing.T) {
	h := player.NewHeadless()
	ctx := context.Background()
	require.NoError(t, h.Open(ctx, 0, "/m/1.mkv"))
	_, err := h.PlaylistAdd(0, "/m/2.mkv", -1)
	require.NoError(t, err)

	require.NoError(t, h.PlaylistPlay(ctx, 0, 1))
	status, err := h.Status(0)
	require.NoError(t, err)
	assert.Equal(t, "/m/2.mkv", status.URL)
	assert.Equal(t, []string{"/m/1.mkv", "/m/2.mkv"}, filenames(t, h))

	require.NoError(t, h.Command(ctx, 0, "playlist-prev", nil))
	status, err = h.Status(0)
	require.NoError(t, err)
	assert.Equal(t, "/m/1.mkv", status.URL)

	errutil.AssertErrorCode(t, h.Command(ctx, 0, "playlist-prev", nil), fault.CodeInvalidArgument)
	errutil.AssertErrorCode(t, h.PlaylistPlay(ctx, 0, 5), fault.CodeInvalidArgument)
}

func TestPlaylist_InvalidArguments(t *testing.T) {
	h := player.NewHeadless()
	_, err := h.PlaylistAdd(0, "", -1)
	errutil.AssertErrorCode(t, err, fault.CodeInvalidArgument)
	_, err = h.PlaylistRemove(0, 0)
	errutil.AssertErrorCode(t, err, fault.CodeInvalidArgument)
	_, err = h.PlaylistMove(0, 0, 1)
	errutil.AssertErrorCode(t, err, fault.CodeInvalidArgument)
	_, err = h.Playlist(7)
	errutil.AssertErrorCode(t, err, fault.CodeAddressing)
}
