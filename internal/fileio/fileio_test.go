// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package fileio_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/fileio"
	"github.com/marquee-player/marquee/pkg/errutil"
)

func newManager(t *testing.T) (*fileio.Manager, fileio.Roots) {
	t.Helper()
	base := t.TempDir()
	roots := fileio.Roots{
		Data:   filepath.Join(base, "data"),
		Tmp:    filepath.Join(base, "tmp"),
		Plugin: filepath.Join(base, "plugin"),
	}
	for _, dir := range []string{roots.Data, roots.Tmp, roots.Plugin} {
		require.NoError(t, os.MkdirAll(dir, 0o750))
	}
	m := fileio.NewManager(fileio.Resolver{Roots: roots})
	t.Cleanup(func() { m.CloseAll() })
	return m, roots
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want fileio.Mode
	}{
		{"r", fileio.ModeRead},
		{"read", fileio.ModeRead},
		{"w", fileio.ModeWrite},
		{"a", fileio.ModeAppend},
		{"rw", fileio.ModeReadWrite},
		{"update", fileio.ModeReadWrite},
		{"READ-WRITE", fileio.ModeReadWrite},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := fileio.ParseMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := fileio.ParseMode("x")
	errutil.AssertErrorCode(t, err, fault.CodeInvalidArgument)
}

func TestResolver(t *testing.T) {
	r := fileio.Resolver{Roots: fileio.Roots{Data: "/d", Tmp: "/t", Plugin: "/p"}}

	tests := []struct {
		in   string
		want string
	}{
		{"@data/a.txt", "/d/a.txt"},
		{"@tmp/x/y", "/t/x/y"},
		{"@plugin/overlay.html", "/p/overlay.html"},
		{"notes.txt", "/d/notes.txt"},
		{"@data/sub/../b", "/d/b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := r.Resolve(tt.in)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}

	for _, bad := range []string{"@data/../escape", "../up", "/etc/passwd"} {
		_, err := r.Resolve(bad)
		errutil.AssertErrorCode(t, err, fault.CodeResource)
	}

	_, err := r.Resolve("")
	errutil.AssertErrorCode(t, err, fault.CodeInvalidArgument)

	r.AllowAbsolute = true
	got, err := r.Resolve("/var/media/../a.mkv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/var/a.mkv"), got)
}

func TestHandle_ReadRequiresExistingFile(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.Open("@data/missing.txt", fileio.ModeRead)
	errutil.AssertErrorCode(t, err, fault.CodeResource)
}

func TestHandle_WriteThenReadWithCursor(t *testing.T) {
	m, _ := newManager(t)

	w, err := m.Open("@data/a.txt", fileio.ModeWrite)
	require.NoError(t, err)
	n, err := w.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	off, err := w.Offset()
	require.NoError(t, err)
	assert.Equal(t, int64(11), off)
	require.NoError(t, w.Close())

	r, err := m.Open("@data/a.txt", fileio.ModeRead)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	got, err := r.Read(5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, r.SeekTo(6))
	rest, err := r.ReadToEnd()
	require.NoError(t, err)
	assert.Equal(t, "world", string(rest))

	eof, err := r.Read(10)
	require.NoError(t, err)
	assert.Nil(t, eof)

	end, err := r.SeekToEnd()
	require.NoError(t, err)
	assert.Equal(t, int64(11), end)

	_, err = r.Write([]byte("x"))
	errutil.AssertErrorCode(t, err, fault.CodeResource)
}

func TestHandle_ReadHugeLengthIsBoundedByContent(t *testing.T) {
	m, _ := newManager(t)
	require.NoError(t, m.WriteFile("@data/small.txt", []byte("abc")))

	r, err := m.Open("@data/small.txt", fileio.ModeRead)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	got, err := r.Read(math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, 3, cap(got))

	got, err = r.Read(math.MaxInt)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.SeekTo(100))
	got, err = r.Read(1 << 40)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHandle_WriteDoesNotTruncate(t *testing.T) {
	m, roots := newManager(t)
	path := filepath.Join(roots.Data, "keep.txt")
	require.NoError(t, os.WriteFile(path, []byte("abcdef"), 0o600))

	h, err := m.Open("keep.txt", fileio.ModeWrite)
	require.NoError(t, err)
	_, err = h.Write([]byte("XY"))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "XYcdef", string(data))
}

func TestHandle_AppendAlwaysWritesAtEnd(t *testing.T) {
	m, roots := newManager(t)
	path := filepath.Join(roots.Data, "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o600))

	h, err := m.Open("log.txt", fileio.ModeAppend)
	require.NoError(t, err)
	off, err := h.Offset()
	require.NoError(t, err)
	assert.Equal(t, int64(4), off)

	require.NoError(t, h.SeekTo(0))
	_, err = h.Write([]byte("two\n"))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}

func TestHandle_ReadWriteMode(t *testing.T) {
	m, _ := newManager(t)
	h, err := m.Open("@tmp/rw.bin", fileio.ModeReadWrite)
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	_, err = h.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, h.SeekTo(1))
	got, err := h.Read(2)
	require.NoError(t, err)
	assert.Equal(t, "bc", string(got))
}

func TestHandle_OperationsAfterCloseFail(t *testing.T) {
	m, _ := newManager(t)
	h, err := m.Open("@data/c.txt", fileio.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, h.Close())
	assert.False(t, h.IsOpen())

	errutil.AssertErrorCode(t, h.Close(), fault.CodeResource)
	_, err = h.Read(1)
	errutil.AssertErrorCode(t, err, fault.CodeResource)
	_, err = h.Write([]byte("x"))
	errutil.AssertErrorCode(t, err, fault.CodeResource)
	_, err = h.Offset()
	errutil.AssertErrorCode(t, err, fault.CodeResource)
	errutil.AssertErrorCode(t, h.SeekTo(0), fault.CodeResource)
	_, err = h.SeekToEnd()
	errutil.AssertErrorCode(t, err, fault.CodeResource)
}

func TestManager_WithClosesOnEveryPath(t *testing.T) {
	m, _ := newManager(t)

	var kept *fileio.Handle
	require.NoError(t, m.With("@data/w.txt", fileio.ModeWrite, func(h *fileio.Handle) error {
		kept = h
		_, err := h.Write([]byte("x"))
		return err
	}))
	assert.False(t, kept.IsOpen())

	assert.Panics(t, func() {
		_ = m.With("@data/w.txt", fileio.ModeRead, func(h *fileio.Handle) error {
			kept = h
			panic("boom")
		})
	})
	assert.False(t, kept.IsOpen())
	assert.Zero(t, m.OpenCount())
}

func TestManager_CloseAll(t *testing.T) {
	m, _ := newManager(t)
	a, err := m.Open("@data/a", fileio.ModeWrite)
	require.NoError(t, err)
	b, err := m.Open("@data/b", fileio.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	assert.Equal(t, 1, m.CloseAll())
	assert.False(t, a.IsOpen())

	_, err = m.Open("@data/a", fileio.ModeRead)
	errutil.AssertErrorCode(t, err, fault.CodeResource)
}

func TestManager_WholeFileHelpers(t *testing.T) {
	m, roots := newManager(t)

	require.NoError(t, m.WriteFile("@data/dir/sub/x.txt", []byte("xx")))
	require.NoError(t, m.WriteFile("@data/dir/y.txt", []byte("y")))
	assert.True(t, m.Exists("@data/dir/y.txt"))
	assert.False(t, m.Exists("@data/dir/none"))
	assert.False(t, m.Exists("../outside"))

	data, err := m.ReadFile("@data/dir/sub/x.txt")
	require.NoError(t, err)
	assert.Equal(t, "xx", string(data))

	flat, err := m.List("@data/dir", false)
	require.NoError(t, err)
	assert.Equal(t, []fileio.Entry{
		{Path: "sub", Name: "sub", IsDir: true},
		{Path: "y.txt", Name: "y.txt", Size: 1},
	}, flat)

	deep, err := m.List("@data/dir", true)
	require.NoError(t, err)
	require.Len(t, deep, 3)
	assert.Equal(t, "sub/x.txt", deep[1].Path)

	dest, err := m.Trash("@data/dir/y.txt")
	require.NoError(t, err)
	assert.False(t, m.Exists("@data/dir/y.txt"))
	assert.FileExists(t, dest)
	assert.Equal(t, filepath.Join(roots.Data, ".trash"), filepath.Dir(dest))

	require.NoError(t, m.Delete("@data/dir"))
	assert.False(t, m.Exists("@data/dir"))
	errutil.AssertErrorCode(t, m.Delete("@data/dir"), fault.CodeResource)

	_, err = m.ReadFile("@data/none")
	errutil.AssertErrorCode(t, err, fault.CodeResource)
}
