// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/menu"
)

const menuItemType = "marquee.menuitem"

func pushMenuItem(L *lua.LState, item *menu.Item) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = item
	L.SetMetatable(ud, L.GetTypeMetatable(menuItemType))
	return ud
}

func checkMenuItem(L *lua.LState, n int) *menu.Item {
	ud := L.CheckUserData(n)
	if item, ok := ud.Value.(*menu.Item); ok {
		return item
	}
	L.ArgError(n, "menu item expected")
	return nil
}

func (f *Functions) menuModule(env *Env) module {
	return module{
		// item(title, action, {enabled=, selected=, keyBinding=}) -> item
		"item": func(L *lua.LState) int {
			title := L.CheckString(1)
			fn := optFunction(L, 2)
			t := optTable(L, 3)

			var opts menu.Options
			if enabled, ok := boolField(t, "enabled"); ok {
				opts.Enabled = &enabled
			}
			opts.Selected, _ = boolField(t, "selected")
			if t != nil {
				if kb, ok := t.RawGetString("keyBinding").(lua.LString); ok {
					opts.KeyBinding = string(kb)
				}
			}

			var action menu.Action
			if fn != nil {
				action = func(_ context.Context, item *menu.Item) error {
					_, err := invoke(L, fn, 0, pushMenuItem(L, item))
					return err
				}
			}
			item, err := env.Menu.Item(title, action, opts)
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			return pushSuccess(L, pushMenuItem(L, item))
		},
		"addItem": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, env.Menu.AddItem(checkMenuItem(L, 1)))
		},
		"separator": func(L *lua.LState) int {
			L.Push(pushMenuItem(L, env.Menu.Separator()))
			return 1
		},
		"removeAllItems": func(L *lua.LState) int {
			env.Menu.RemoveAll()
			return 0
		},
	}
}

func registerMenuItemType(L *lua.LState) {
	mt := L.NewTypeMetatable(menuItemType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		// addSubMenuItem(child) -> self
		"addSubMenuItem": func(L *lua.LState) int {
			item := checkMenuItem(L, 1)
			item.AddSubMenuItem(checkMenuItem(L, 2))
			L.Push(L.Get(1))
			return 1
		},
		"title": func(L *lua.LState) int {
			L.Push(lua.LString(checkMenuItem(L, 1).Title))
			return 1
		},
		"setEnabled": func(L *lua.LState) int {
			checkMenuItem(L, 1).Enabled = L.CheckBool(2)
			return 0
		},
		"setSelected": func(L *lua.LState) int {
			checkMenuItem(L, 1).Selected = L.CheckBool(2)
			return 0
		},
		"isEnabled": func(L *lua.LState) int {
			L.Push(lua.LBool(checkMenuItem(L, 1).Enabled))
			return 1
		},
		"isSelected": func(L *lua.LState) int {
			L.Push(lua.LBool(checkMenuItem(L, 1).Selected))
			return 1
		},
	}))
}
