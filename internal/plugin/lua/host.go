// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package lua

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/fileio"
	"github.com/marquee-player/marquee/internal/httpc"
	"github.com/marquee-player/marquee/internal/instance"
	"github.com/marquee-player/marquee/internal/loop"
	"github.com/marquee-player/marquee/internal/menu"
	"github.com/marquee-player/marquee/internal/player"
	plugins "github.com/marquee-player/marquee/internal/plugin"
	"github.com/marquee-player/marquee/internal/plugin/capability"
	"github.com/marquee-player/marquee/internal/plugin/hostfunc"
	"github.com/marquee-player/marquee/internal/prefs"
	"github.com/marquee-player/marquee/internal/subtitle"
)

// Compile-time interface check.
var _ plugins.Host = (*Host)(nil)

// Core is the player core plugins are attached to.
type Core interface {
	player.Core
	Attach(r *instance.Router)
	Detach(r *instance.Router)
	// Loaded is run as an instance create hook after the plugin runtime
	// has queued its entry script.
	Loaded(ctx context.Context, inst *instance.Instance) error
}

// Host runs Lua plugins. Each plugin gets its own instance router, and
// every instance created with EnablePlugins runs the plugin entry in a
// fresh Lua state driven by that instance's loop.
type Host struct {
	factory  *StateFactory
	funcs    *hostfunc.Functions
	enforcer *capability.Enforcer
	core     Core
	logger   *slog.Logger
	reporter fault.Reporter
	prefs    prefs.Opener
	dataDir  string
	tmpDir   string
	limit    int
	peers    instance.PeerFactory
	httpOpts []httpc.Option

	mu      sync.RWMutex
	plugins map[string]*luaPlugin
	closed  bool
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

// WithReporter sets where asynchronous failures are reported.
func WithReporter(r fault.Reporter) Option {
	return func(h *Host) {
		h.reporter = r
	}
}

// WithCore attaches plugin routers to a player core.
func WithCore(c Core) Option {
	return func(h *Host) {
		h.core = c
	}
}

// WithPrefs sets how plugin preference stores are opened.
func WithPrefs(o prefs.Opener) Option {
	return func(h *Host) {
		h.prefs = o
	}
}

// WithDataDir sets the directory plugin data and file preferences live in.
func WithDataDir(dir string) Option {
	return func(h *Host) {
		h.dataDir = dir
	}
}

// WithLimit caps the number of live instances per plugin.
func WithLimit(n int) Option {
	return func(h *Host) {
		h.limit = n
	}
}

// WithPeerFactory sets the rendering peers of plugin surfaces.
func WithPeerFactory(f instance.PeerFactory) Option {
	return func(h *Host) {
		h.peers = f
	}
}

// WithHTTPOptions configures the HTTP client each plugin gets.
func WithHTTPOptions(opts ...httpc.Option) Option {
	return func(h *Host) {
		h.httpOpts = append(h.httpOpts, opts...)
	}
}

// NewHost creates a Lua plugin host whose host functions are checked by
// enforcer. Panics if enforcer is nil.
func NewHost(enforcer *capability.Enforcer, opts ...Option) *Host {
	if enforcer == nil {
		panic("lua.NewHost: enforcer cannot be nil")
	}
	h := &Host{
		factory:  NewStateFactory(),
		enforcer: enforcer,
		logger:   slog.Default(),
		reporter: fault.Discard,
		tmpDir:   filepath.Join(os.TempDir(), "marquee"),
		plugins:  make(map[string]*luaPlugin),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.dataDir == "" {
		h.dataDir = filepath.Join(os.TempDir(), "marquee-data")
	}
	if h.prefs == nil {
		h.prefs = prefs.FileOpener(filepath.Join(h.dataDir, "prefs"))
	}
	h.funcs = hostfunc.New(enforcer, hostfunc.WithLogger(h.logger))
	return h
}

// luaPlugin is one loaded plugin and the runtimes of its instances.
type luaPlugin struct {
	host      *Host
	bundle    *plugins.DiscoveredPlugin
	code      string
	logger    *slog.Logger
	router    *instance.Router
	prefs     prefs.Store
	http      *httpc.Client
	subtitles *subtitle.Registry

	mu       sync.Mutex
	runtimes map[instance.ID]*runtime
}

// runtime is the Lua state of one instance.
type runtime struct {
	L    *lua.LState
	menu *menu.Builder
}

func (p *luaPlugin) name() string {
	return p.bundle.Manifest.Name
}

// Load validates the entry script, grants the plugin its permissions and
// starts its main instance.
func (h *Host) Load(ctx context.Context, dp *plugins.DiscoveredPlugin) error {
	name := dp.Manifest.Name
	errb := oops.In("lua").With("plugin", name).With("operation", "load")

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errb.New("host is closed")
	}
	if _, ok := h.plugins[name]; ok {
		return errb.Errorf("plugin %s is already loaded", name)
	}

	code, err := os.ReadFile(filepath.Clean(dp.EntryPath()))
	if err != nil {
		return errb.With("path", dp.EntryPath()).Hint("failed to read entry file").Wrap(err)
	}
	if err := h.factory.Check(dp.Manifest.Entry, string(code)); err != nil {
		return errb.Wrap(err)
	}

	if err := h.enforcer.SetGrants(name, dp.Manifest.Permissions); err != nil {
		return errb.Wrap(err)
	}
	store, err := h.prefs(ctx, name, dp.Manifest.PreferenceDefaults)
	if err != nil {
		h.enforcer.RemoveGrants(name)
		return errb.Hint("failed to open preferences").Wrap(err)
	}

	logger := h.logger.With("plugin", name)
	p := &luaPlugin{
		host:      h,
		bundle:    dp,
		code:      string(code),
		logger:    logger,
		prefs:     store,
		http:      httpc.NewClient(append([]httpc.Option{httpc.WithLogger(logger)}, h.httpOpts...)...),
		subtitles: subtitle.NewRegistry(logger),
		runtimes:  make(map[instance.ID]*runtime),
	}

	opts := []instance.Option{
		instance.WithName(name),
		instance.WithLogger(logger),
		instance.WithReporter(h.reporter),
		instance.WithLimit(h.limit),
		instance.WithCreateHook(p.start),
		instance.WithCloseHook(p.stop),
		instance.WithRoots(fileio.Roots{
			Data:   filepath.Join(h.dataDir, "plugins", name),
			Tmp:    filepath.Join(h.tmpDir, name),
			Plugin: dp.Dir,
		}),
	}
	if h.core != nil {
		opts = append(opts,
			instance.WithSpawner(h.core.Spawn),
			instance.WithCreateHook(h.core.Loaded))
	}
	if h.peers != nil {
		opts = append(opts, instance.WithPeerFactory(h.peers))
	}

	router, err := instance.NewRouter(context.WithoutCancel(ctx), opts...)
	if err != nil {
		h.enforcer.RemoveGrants(name)
		return errb.Wrap(err)
	}
	p.router = router
	if h.core != nil {
		h.core.Attach(router)
	}
	h.plugins[name] = p

	logger.Debug("lua plugin started",
		"entry", dp.Manifest.Entry,
		"permissions", dp.Manifest.Permissions)
	return nil
}

// start is a create hook: it gives a plugin-enabled instance its own Lua
// state and queues the entry script ahead of any player event.
func (p *luaPlugin) start(ctx context.Context, inst *instance.Instance) error {
	if !inst.Options().EnablePlugins {
		return nil
	}

	L, err := p.host.factory.NewState(ctx)
	if err != nil {
		return err
	}
	rt := &runtime{L: L, menu: menu.NewBuilder(inst.Loop())}

	var core player.Core
	if p.host.core != nil {
		core = p.host.core
	}
	p.host.funcs.Register(L, &hostfunc.Env{
		Plugin:    p.name(),
		Instance:  inst,
		Menu:      rt.menu,
		Prefs:     p.prefs,
		HTTP:      p.http,
		Subtitles: p.subtitles,
		Core:      core,
	})

	p.mu.Lock()
	p.runtimes[inst.ID()] = rt
	p.mu.Unlock()

	entry := p.bundle.Manifest.Entry
	return inst.Loop().Enqueue(loop.Task{
		Label: "run " + entry,
		Run: func(ctx context.Context) error {
			L.SetContext(ctx)
			if err := L.DoString(p.code); err != nil {
				p.host.reporter.Report(p.name()+"/"+inst.ID().String(),
					oops.Code(fault.CodeLoad).
						In("lua").
						With("plugin", p.name()).
						With("entry", entry).
						Wrapf(err, "run %s", entry))
			}
			return nil
		},
	})
}

// stop is a close hook; the instance loop has exited, so nothing else
// touches the state.
func (p *luaPlugin) stop(_ context.Context, inst *instance.Instance) error {
	p.mu.Lock()
	rt, ok := p.runtimes[inst.ID()]
	delete(p.runtimes, inst.ID())
	p.mu.Unlock()
	if !ok {
		return nil
	}
	rt.menu.RemoveAll()
	rt.L.Close()
	return nil
}

// Unload destroys every instance of the plugin, persists its preferences
// and revokes its grants.
func (h *Host) Unload(ctx context.Context, name string) error {
	h.mu.Lock()
	p, ok := h.plugins[name]
	delete(h.plugins, name)
	h.mu.Unlock()
	if !ok {
		return oops.In("lua").With("plugin", name).With("operation", "unload").New("plugin not loaded")
	}
	return h.shutdown(ctx, p)
}

func (h *Host) shutdown(ctx context.Context, p *luaPlugin) error {
	if h.core != nil {
		h.core.Detach(p.router)
	}
	p.router.Close()
	p.http.Wait()
	h.enforcer.RemoveGrants(p.name())
	if err := p.prefs.Sync(ctx); err != nil {
		return oops.In("lua").With("plugin", p.name()).Wrapf(err, "sync preferences")
	}
	p.logger.Debug("lua plugin stopped")
	return nil
}

// Plugins returns names of loaded plugins in sorted order.
func (h *Host) Plugins() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.plugins))
	for name := range h.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Router returns the instance router of a loaded plugin.
func (h *Host) Router(name string) (*instance.Router, bool) {
	p, ok := h.get(name)
	if !ok {
		return nil, false
	}
	return p.router, true
}

// Menu returns the menu a plugin built in instance id.
func (h *Host) Menu(name string, id instance.ID) (*menu.Builder, bool) {
	p, ok := h.get(name)
	if !ok {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	rt, ok := p.runtimes[id]
	if !ok {
		return nil, false
	}
	return rt.menu, true
}

// Subtitles returns the subtitle providers a plugin registered.
func (h *Host) Subtitles(name string) (*subtitle.Registry, bool) {
	p, ok := h.get(name)
	if !ok {
		return nil, false
	}
	return p.subtitles, true
}

func (h *Host) get(name string) (*luaPlugin, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.plugins[name]
	return p, ok
}

// Close unloads every plugin and refuses further loads.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	loaded := make([]*luaPlugin, 0, len(h.plugins))
	for _, p := range h.plugins {
		loaded = append(loaded, p)
	}
	h.plugins = make(map[string]*luaPlugin)
	h.mu.Unlock()

	var errs []error
	for _, p := range loaded {
		if err := h.shutdown(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
