// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	"context"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/menu"
	"github.com/marquee-player/marquee/internal/player"
)

// playlistModule edits the playlist of the calling instance's player.
// Indexes are zero-based, matching the playlist-pos property.
func (f *Functions) playlistModule(env *Env) module {
	id := env.Instance.ID()
	noCore := func(L *lua.LState) int {
		return pushError(L, f.errorMessage(env.Plugin, fault.InvalidArgument("no player core")))
	}
	if env.Core == nil {
		return module{
			"list": noCore, "count": noCore, "add": noCore, "remove": noCore,
			"move": noCore, "play": noCore, "playNext": noCore, "playPrevious": noCore,
			"registerMenuBuilder": noCore,
		}
	}
	core := env.Core
	pushItem := func(L *lua.LState, item player.PlaylistItem, err error) int {
		if err != nil {
			return pushError(L, f.errorMessage(env.Plugin, err))
		}
		return pushSuccess(L, ToLuaValue(L, item))
	}

	return module{
		"list": func(L *lua.LState) int {
			items, err := core.Playlist(id)
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			return pushSuccess(L, ToLuaValue(L, items))
		},
		"count": func(L *lua.LState) int {
			items, err := core.Playlist(id)
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			return pushSuccess(L, lua.LNumber(len(items)))
		},
		// add(url, at) -> item; without at the entry is appended.
		"add": func(L *lua.LState) int {
			target := L.CheckString(1)
			at := L.OptInt(2, -1)
			item, err := core.PlaylistAdd(id, target, at)
			return pushItem(L, item, err)
		},
		"remove": func(L *lua.LState) int {
			item, err := core.PlaylistRemove(id, L.CheckInt(1))
			return pushItem(L, item, err)
		},
		"move": func(L *lua.LState) int {
			item, err := core.PlaylistMove(id, L.CheckInt(1), L.CheckInt(2))
			return pushItem(L, item, err)
		},
		"play": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.PlaylistPlay(luaContext(L), id, L.CheckInt(1)))
		},
		"playNext": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.Command(luaContext(L), id, "playlist-next", nil))
		},
		"playPrevious": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.Command(luaContext(L), id, "playlist-prev", nil))
		},
		// registerMenuBuilder(fn) installs fn(entries) -> {items} as the
		// playlist context menu builder; nil removes it.
		"registerMenuBuilder": func(L *lua.LState) int {
			fn := optFunction(L, 1)
			if fn == nil {
				env.Menu.SetPlaylistBuilder(nil)
				L.Push(lua.LTrue)
				return 1
			}
			env.Menu.SetPlaylistBuilder(func(_ context.Context, entries []player.PlaylistItem) ([]*menu.Item, error) {
				out, err := invoke(L, fn, 1, ToLuaValue(L, entries))
				if err != nil {
					return nil, err
				}
				return menuItems(out[0])
			})
			L.Push(lua.LTrue)
			return 1
		},
	}
}

// menuItems converts a builder result, a sequence of menu items.
func menuItems(lv lua.LValue) ([]*menu.Item, error) {
	if lv == lua.LNil {
		return nil, nil
	}
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil, oops.Code(fault.CodeInvalidArgument).Errorf("menu builder returned %s, not a table", lv.Type())
	}
	items := make([]*menu.Item, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		ud, ok := t.RawGetInt(i).(*lua.LUserData)
		if !ok {
			return nil, oops.Code(fault.CodeInvalidArgument).Errorf("menu builder entry %d is not a menu item", i)
		}
		item, ok := ud.Value.(*menu.Item)
		if !ok {
			return nil, oops.Code(fault.CodeInvalidArgument).Errorf("menu builder entry %d is not a menu item", i)
		}
		items = append(items, item)
	}
	return items, nil
}
