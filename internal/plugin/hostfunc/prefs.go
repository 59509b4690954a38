// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	lua "github.com/yuin/gopher-lua"
)

func (f *Functions) prefsModule(env *Env) module {
	return module{
		// get(key) -> value; missing keys without a default return nil
		"get": func(L *lua.LState) int {
			v, _, err := env.Prefs.Get(luaContext(L), L.CheckString(1))
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			return pushSuccess(L, ToLuaValue(L, v))
		},
		"set": func(L *lua.LState) int {
			key := L.CheckString(1)
			return f.pushResult(L, env.Plugin, env.Prefs.Set(luaContext(L), key, ToGoValue(L.Get(2))))
		},
		"sync": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, env.Prefs.Sync(luaContext(L)))
		},
	}
}
