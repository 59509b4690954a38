// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package hostfunc provides the iina.* API to Lua plugins.
//
// Every module except console is gated by a capability the plugin must
// declare in its manifest permissions. Host functions run on the instance
// loop, so Lua callbacks registered through them are only ever invoked
// from that loop.
package hostfunc

import (
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/httpc"
	"github.com/marquee-player/marquee/internal/instance"
	"github.com/marquee-player/marquee/internal/menu"
	"github.com/marquee-player/marquee/internal/player"
	"github.com/marquee-player/marquee/internal/plugin/capability"
	"github.com/marquee-player/marquee/internal/prefs"
	"github.com/marquee-player/marquee/internal/subtitle"
)

// GlobalName is the Lua global the API is installed under.
const GlobalName = "iina"

// Env is what one script context can reach. Prefs, HTTP and Subtitles
// are shared by every instance of a plugin; Instance and Menu belong to
// one instance.
type Env struct {
	Plugin    string
	Instance  *instance.Instance
	Menu      *menu.Builder
	Prefs     prefs.Store
	HTTP      *httpc.Client
	Subtitles *subtitle.Registry
	Core      player.Core
}

// Functions provides host functions to Lua plugins.
type Functions struct {
	enforcer *capability.Enforcer
	logger   *slog.Logger
}

// Option configures Functions.
type Option func(*Functions)

// WithLogger sets the logger console output and internal errors go to.
func WithLogger(l *slog.Logger) Option {
	return func(f *Functions) {
		f.logger = l
	}
}

// New creates host functions checked by enforcer. Panics if enforcer is nil.
func New(enforcer *capability.Enforcer, opts ...Option) *Functions {
	if enforcer == nil {
		panic("hostfunc.New: enforcer cannot be nil")
	}
	f := &Functions{
		enforcer: enforcer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// module collects the functions of one iina.* table.
type module map[string]lua.LGFunction

// Register installs the iina global into ls for env.
func (f *Functions) Register(ls *lua.LState, env *Env) {
	root := ls.NewTable()

	modules := map[string]struct {
		capability string
		fns        module
	}{
		"console":          {"", f.consoleModule(env)},
		"event":            {capability.Event, f.eventModule(env)},
		"overlay":          {capability.Overlay, f.overlayModule(env)},
		"sidebar":          {capability.Sidebar, f.sidebarModule(env)},
		"standaloneWindow": {capability.Window, f.windowModule(env)},
		"global":           {capability.Global, f.globalModule(env)},
		"file":             {"", f.fileModule(env)},
		"preferences":      {capability.Preferences, f.prefsModule(env)},
		"menu":             {capability.Menu, f.menuModule(env)},
		"http":             {capability.HTTP, f.httpModule(env)},
		"subtitle":         {capability.Subtitle, f.subtitleModule(env)},
		"core":             {capability.Core, f.coreModule(env)},
		"playlist":         {capability.Playlist, f.playlistModule(env)},
		"mpv":              {capability.MPV, f.mpvModule(env)},
	}

	for name, m := range modules {
		mod := ls.NewTable()
		for fnName, fn := range m.fns {
			if m.capability != "" {
				fn = f.wrap(env.Plugin, m.capability, fn)
			}
			ls.SetField(mod, fnName, ls.NewFunction(fn))
		}
		ls.SetField(root, name, mod)
	}

	registerMenuItemType(ls)
	registerFileHandleType(ls)
	registerSubtitleItemType(ls)

	ls.SetGlobal(GlobalName, root)
}

func (f *Functions) wrap(plugin, capName string, fn lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		if !f.enforcer.Check(plugin, capName) {
			L.RaiseError("capability denied: %s requires %s", plugin, capName)
			return 0
		}
		return fn(L)
	}
}
