// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/fileio"
	"github.com/marquee-player/marquee/internal/httpc"
	"github.com/marquee-player/marquee/internal/instance"
	"github.com/marquee-player/marquee/internal/menu"
	"github.com/marquee-player/marquee/internal/player"
	"github.com/marquee-player/marquee/internal/plugin/capability"
	"github.com/marquee-player/marquee/internal/plugin/hostfunc"
	"github.com/marquee-player/marquee/internal/prefs"
	"github.com/marquee-player/marquee/internal/subtitle"
	"github.com/marquee-player/marquee/internal/surface"
)

const (
	testPlugin  = "test-plugin"
	testTimeout = 2 * time.Second
	testTick    = 10 * time.Millisecond
)

// harness is one plugin instance with the iina API installed.
type harness struct {
	t        *testing.T
	L        *lua.LState
	env      *hostfunc.Env
	router   *instance.Router
	core     *player.Headless
	roots    fileio.Roots
	reporter *fault.Recorder
	enforcer *capability.Enforcer
}

func newHarness(t *testing.T, caps ...string) *harness {
	t.Helper()
	ctx := context.Background()

	enforcer := capability.NewEnforcer()
	require.NoError(t, enforcer.SetGrants(testPlugin, caps))

	h := &harness{
		t:        t,
		core:     player.NewHeadless(),
		roots:    fileio.Roots{Data: t.TempDir(), Tmp: t.TempDir(), Plugin: t.TempDir()},
		reporter: &fault.Recorder{},
		enforcer: enforcer,
	}
	r, err := instance.NewRouter(ctx,
		instance.WithName(testPlugin),
		instance.WithReporter(h.reporter),
		instance.WithSpawner(h.core.Spawn),
		instance.WithCreateHook(h.core.Loaded),
		instance.WithPeerFactory(func(instance.ID, surface.Kind) surface.Peer { return surface.NewMemoryPeer() }),
		instance.WithRoots(h.roots),
	)
	require.NoError(t, err)
	h.core.Attach(r)
	h.router = r

	inst, ok := r.Get(0)
	require.True(t, ok)

	store, err := prefs.OpenFile(filepath.Join(t.TempDir(), "prefs.yaml"), map[string]any{"volume": 50})
	require.NoError(t, err)

	client := httpc.NewClient(httpc.WithRetries(0, time.Millisecond))
	h.env = &hostfunc.Env{
		Plugin:    testPlugin,
		Instance:  inst,
		Menu:      menu.NewBuilder(inst.Loop()),
		Prefs:     store,
		HTTP:      client,
		Subtitles: subtitle.NewRegistry(nil),
		Core:      h.core,
	}

	h.L = lua.NewState()
	hostfunc.New(enforcer).Register(h.L, h.env)

	t.Cleanup(func() {
		client.Wait()
		r.Close()
		h.L.Close()
	})
	return h
}

// run executes code as a task on the instance loop.
func (h *harness) run(code string) error {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	return h.env.Instance.Loop().Call(ctx, "test", func(ctx context.Context) error {
		h.L.SetContext(ctx)
		return h.L.DoString(code)
	})
}

// global reads a Lua global on the loop.
func (h *harness) global(name string) lua.LValue {
	h.t.Helper()
	var v lua.LValue
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(h.t, h.env.Instance.Loop().Call(ctx, "read "+name, func(context.Context) error {
		v = h.L.GetGlobal(name)
		return nil
	}))
	return v
}

func (h *harness) sync() {
	h.t.Helper()
	require.NoError(h.t, h.env.Instance.Loop().Sync(context.Background()))
}
