// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package surface_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/loop"
	"github.com/marquee-player/marquee/internal/surface"
	"github.com/marquee-player/marquee/pkg/errutil"
)

type fixture struct {
	loop *loop.Loop
	peer *surface.MemoryPeer
	ch   *surface.Channel
	rec  *fault.Recorder
}

func newFixture(t *testing.T, kind surface.Kind, opts ...surface.Option) *fixture {
	t.Helper()
	lp := loop.New("surface-test")
	require.NoError(t, lp.Start(context.Background()))

	f := &fixture{loop: lp, peer: surface.NewMemoryPeer(), rec: &fault.Recorder{}}
	opts = append([]surface.Option{surface.WithReporter(f.rec)}, opts...)
	ch, err := surface.New(kind, lp, f.peer, opts...)
	require.NoError(t, err)
	f.ch = ch

	t.Cleanup(func() {
		ch.Dispose()
		lp.Stop(true)
		lp.Wait()
	})
	return f
}

func (f *fixture) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, f.loop.Sync(context.Background()))
}

func names(f *fixture) []string {
	var out []string
	for _, m := range f.peer.Delivered() {
		out = append(out, m.Name)
	}
	return out
}

func TestChannel_BuffersUntilReadyThenFlushesInOrder(t *testing.T) {
	f := newFixture(t, surface.KindOverlay)

	require.NoError(t, f.ch.PostMessage("a", 1))
	require.NoError(t, f.ch.LoadFile("overlay.html"))
	assert.Equal(t, surface.StateLoading, f.ch.State())
	require.NoError(t, f.ch.PostMessage("b", 2))
	assert.Equal(t, 2, f.ch.Pending())
	assert.Empty(t, f.peer.Delivered())

	f.peer.Complete(0, nil)
	f.sync(t)

	assert.Equal(t, surface.StateReady, f.ch.State())
	assert.Equal(t, []string{"a", "b"}, names(f))
	assert.Zero(t, f.ch.Pending())

	require.NoError(t, f.ch.PostMessage("c", 3))
	assert.Equal(t, []string{"a", "b", "c"}, names(f))
}

func TestChannel_PostedDataIsCopied(t *testing.T) {
	f := newFixture(t, surface.KindSidebar)
	data := map[string]any{"k": "v"}
	require.NoError(t, f.ch.PostMessage("m", data))
	data["k"] = "changed"

	require.NoError(t, f.ch.LoadFile("sidebar.html"))
	f.peer.Complete(0, nil)
	f.sync(t)

	delivered := f.peer.Delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, map[string]any{"k": "v"}, delivered[0].Data)
}

func TestChannel_FailedLoadDiscardsPending(t *testing.T) {
	f := newFixture(t, surface.KindOverlay)
	require.NoError(t, f.ch.PostMessage("a", nil))
	require.NoError(t, f.ch.LoadFile("missing.html"))

	f.peer.Complete(0, errors.New("not found"))
	f.sync(t)

	assert.Equal(t, surface.StateFailed, f.ch.State())
	assert.Empty(t, f.peer.Delivered())
	assert.Equal(t, 1, f.rec.Count(fault.CodeLoad))

	err := f.ch.PostMessage("b", nil)
	errutil.AssertErrorCode(t, err, fault.CodeLoad)
}

func TestChannel_ReloadAfterFailure(t *testing.T) {
	f := newFixture(t, surface.KindOverlay)
	require.NoError(t, f.ch.LoadFile("bad.html"))
	f.peer.Complete(0, errors.New("nope"))
	f.sync(t)

	require.NoError(t, f.ch.LoadFile("good.html"))
	require.NoError(t, f.ch.PostMessage("x", nil))
	f.peer.Complete(1, nil)
	f.sync(t)

	assert.Equal(t, surface.StateReady, f.ch.State())
	assert.Equal(t, []string{"x"}, names(f))
}

func TestChannel_SupersededLoadIsIgnored(t *testing.T) {
	f := newFixture(t, surface.KindOverlay)
	require.NoError(t, f.ch.LoadFile("first.html"))
	require.NoError(t, f.ch.LoadFile("second.html"))
	require.NoError(t, f.ch.PostMessage("m", nil))

	f.peer.Complete(0, errors.New("stale failure"))
	f.sync(t)
	assert.Equal(t, surface.StateLoading, f.ch.State())
	assert.Zero(t, f.rec.Count(fault.CodeLoad))
	assert.Equal(t, 1, f.ch.Pending())

	f.peer.Complete(1, nil)
	f.sync(t)
	assert.Equal(t, surface.StateReady, f.ch.State())
	assert.Equal(t, "second.html", f.ch.Path())
	assert.Equal(t, []string{"m"}, names(f))
}

func TestChannel_FlushHappensOnce(t *testing.T) {
	f := newFixture(t, surface.KindOverlay)
	require.NoError(t, f.ch.PostMessage("m", nil))
	require.NoError(t, f.ch.LoadFile("a.html"))

	f.peer.Complete(0, nil)
	f.peer.Complete(0, nil)
	f.sync(t)

	assert.Equal(t, []string{"m"}, names(f))
}

func TestChannel_InboundRunsOnLoopNotSynchronously(t *testing.T) {
	f := newFixture(t, surface.KindSidebar)
	var mu sync.Mutex
	var got []any
	f.ch.OnMessage("clicked", func(data any) error {
		mu.Lock()
		got = append(got, data)
		mu.Unlock()
		return nil
	})

	release := make(chan struct{})
	require.NoError(t, f.loop.Go("block", func(context.Context) error {
		<-release
		return nil
	}))

	require.NoError(t, f.peer.Send("clicked", "row-1"))
	mu.Lock()
	assert.Empty(t, got, "handler must not run inside Send")
	mu.Unlock()

	close(release)
	f.sync(t)
	mu.Lock()
	assert.Equal(t, []any{"row-1"}, got)
	mu.Unlock()
}

func TestChannel_OnMessageLatestWins(t *testing.T) {
	f := newFixture(t, surface.KindSidebar)
	var first, second int
	f.ch.OnMessage("x", func(any) error { first++; return nil })
	f.ch.OnMessage("x", func(any) error { second++; return nil })

	require.NoError(t, f.peer.Send("x", nil))
	f.sync(t)
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}

func TestChannel_InboundHandlerErrorIsReported(t *testing.T) {
	rec := &fault.Recorder{}
	lp := loop.New("reporting", loop.WithReporter(rec))
	require.NoError(t, lp.Start(context.Background()))
	t.Cleanup(func() {
		lp.Stop(true)
		lp.Wait()
	})

	peer := surface.NewMemoryPeer()
	ch, err := surface.New(surface.KindOverlay, lp, peer)
	require.NoError(t, err)
	t.Cleanup(ch.Dispose)

	ch.OnMessage("bad", func(any) error { return errors.New("handler failed") })
	require.NoError(t, peer.Send("bad", nil))
	require.NoError(t, lp.Sync(context.Background()))

	assert.Equal(t, 1, rec.Count(fault.CodeCallback))
}

func TestChannel_ShowHideOnlyToggleVisibility(t *testing.T) {
	f := newFixture(t, surface.KindOverlay)
	require.NoError(t, f.ch.Show())
	assert.True(t, f.ch.Visible())
	assert.True(t, f.peer.Visible())
	assert.Equal(t, surface.StateUnloaded, f.ch.State())

	require.NoError(t, f.ch.Hide())
	assert.False(t, f.peer.Visible())
}

func TestChannel_DisposeRejectsFurtherUse(t *testing.T) {
	f := newFixture(t, surface.KindWindow)
	require.NoError(t, f.ch.PostMessage("lost", nil))

	f.ch.Dispose()
	f.ch.Dispose()

	assert.Equal(t, surface.StateClosed, f.ch.State())
	assert.True(t, f.peer.Disposed())
	assert.Equal(t, 1, f.rec.Count(fault.CodeResource))

	errutil.AssertErrorCode(t, f.ch.PostMessage("x", nil), fault.CodeResource)
	errutil.AssertErrorCode(t, f.ch.LoadFile("a.html"), fault.CodeResource)
	errutil.AssertErrorCode(t, f.ch.Show(), fault.CodeResource)
	errutil.AssertErrorCode(t, f.peer.Send("x", nil), fault.CodeResource)
}

func TestChannel_QueuedInboundRunsAfterDispose(t *testing.T) {
	f := newFixture(t, surface.KindSidebar)
	ran := false
	f.ch.OnMessage("late", func(any) error { ran = true; return nil })

	release := make(chan struct{})
	require.NoError(t, f.loop.Go("block", func(context.Context) error {
		<-release
		return nil
	}))
	require.NoError(t, f.peer.Send("late", nil))
	f.ch.Dispose()
	close(release)
	f.sync(t)

	assert.True(t, ran)
}

func TestChannel_ReadyHookRunsOnLoad(t *testing.T) {
	calls := 0
	f := newFixture(t, surface.KindOverlay, surface.WithReadyHook(func(ctx context.Context, c *surface.Channel) {
		assert.NotNil(t, loop.Current(ctx))
		assert.Equal(t, surface.KindOverlay, c.Kind())
		calls++
	}))
	require.NoError(t, f.ch.LoadFile("a.html"))
	f.peer.Complete(0, nil)
	f.sync(t)
	assert.Equal(t, 1, calls)

	started, completed := f.ch.Loads()
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, completed)
}

func TestChannel_ResolverErrorsStopLoad(t *testing.T) {
	f := newFixture(t, surface.KindOverlay, surface.WithResolver(func(string) (string, error) {
		return "", fault.Resource("../x", "path escapes plugin root")
	}))
	errutil.AssertErrorCode(t, f.ch.LoadFile("../x"), fault.CodeResource)
	assert.Empty(t, f.peer.Loads())
	assert.Equal(t, surface.StateUnloaded, f.ch.State())
}

func TestFilePeer_LoadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>hi</p>"), 0o600))

	lp := loop.New("file-peer")
	require.NoError(t, lp.Start(context.Background()))
	peer := surface.NewFilePeer()
	ch, err := surface.New(surface.KindOverlay, lp, peer)
	require.NoError(t, err)
	t.Cleanup(func() {
		ch.Dispose()
		lp.Stop(true)
		lp.Wait()
	})

	require.NoError(t, ch.PostMessage("hello", "world"))
	require.NoError(t, ch.LoadFile(path))
	peer.Wait()
	require.NoError(t, lp.Sync(context.Background()))

	assert.Equal(t, surface.StateReady, ch.State())
	assert.Equal(t, []byte("<p>hi</p>"), peer.Document())
	require.Len(t, peer.Delivered(), 1)

	require.NoError(t, ch.LoadFile(filepath.Join(dir, "missing.html")))
	peer.Wait()
	require.NoError(t, lp.Sync(context.Background()))
	assert.Equal(t, surface.StateFailed, ch.State())
}

func TestChannel_LifecycleTransitionsAndCounts(t *testing.T) {
	f := newFixture(t, surface.KindOverlay)
	assert.Equal(t, surface.StateUnloaded, f.ch.State())

	require.NoError(t, f.ch.LoadFile("a.html"))
	assert.Equal(t, surface.StateLoading, f.ch.State())
	f.peer.Complete(0, errors.New("boom"))
	f.sync(t)
	assert.Equal(t, surface.StateFailed, f.ch.State())

	require.NoError(t, f.ch.LoadFile("b.html"))
	f.peer.Complete(1, nil)
	f.sync(t)
	assert.Equal(t, surface.StateReady, f.ch.State())

	started, completed := f.ch.Loads()
	assert.Equal(t, 2, started)
	assert.Equal(t, 2, completed)

	f.ch.Dispose()
	assert.Equal(t, surface.StateClosed, f.ch.State())
}
