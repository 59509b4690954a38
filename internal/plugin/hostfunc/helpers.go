// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// L is the idiomatic variable name for lua.LState in the gopher-lua community.
//
//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"context"

	"github.com/oklog/ulid/v2"
	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/pkg/errutil"
)

// pushError pushes nil followed by an error string to the Lua stack and returns 2.
// This is the standard pattern for returning errors from host functions.
func pushError(L *lua.LState, errMsg string) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(errMsg))
	return 2
}

// pushSuccess pushes a value followed by nil (no error) to the Lua stack and returns 2.
// This is the standard pattern for returning successful results from host functions.
func pushSuccess(L *lua.LState, value lua.LValue) int {
	L.Push(value)
	L.Push(lua.LNil)
	return 2
}

// pushResult pushes true on success, or nil and the error message.
func (f *Functions) pushResult(L *lua.LState, plugin string, err error) int {
	if err != nil {
		return pushError(L, f.errorMessage(plugin, err))
	}
	L.Push(lua.LTrue)
	return 1
}

// errorMessage renders err for a plugin. Bridge errors carry their code;
// anything else is logged with a correlation ID and returned as a generic
// message so internal details stay out of plugin code.
func (f *Functions) errorMessage(plugin string, err error) string {
	if code := errutil.Code(err); code != "" {
		return code + ": " + err.Error()
	}
	errorID := ulid.Make().String()
	errutil.LogError(f.logger, "internal error in plugin call", err,
		"error_id", errorID,
		"plugin", plugin)
	return "internal error (ref: " + errorID + ")"
}

// luaContext returns the Lua state's context, or context.Background() if none is set.
func luaContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// invoke calls fn in protected mode and returns its first nret results.
func invoke(L *lua.LState, fn *lua.LFunction, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	top := L.GetTop()
	if err := L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		L.SetTop(top)
		return nil, err
	}
	out := make([]lua.LValue, nret)
	for i := range out {
		out[i] = L.Get(top + 1 + i)
	}
	L.SetTop(top)
	return out, nil
}

// optTable returns argument n as a table, or nil when absent or nil.
func optTable(L *lua.LState, n int) *lua.LTable {
	if L.GetTop() < n || L.Get(n) == lua.LNil {
		return nil
	}
	return L.CheckTable(n)
}

// optFunction returns argument n as a function, or nil when absent or nil.
func optFunction(L *lua.LState, n int) *lua.LFunction {
	if L.GetTop() < n || L.Get(n) == lua.LNil {
		return nil
	}
	return L.CheckFunction(n)
}

// boolField reads an optional boolean field of t.
func boolField(t *lua.LTable, key string) (value, ok bool) {
	if t == nil {
		return false, false
	}
	v := t.RawGetString(key)
	if v == lua.LNil {
		return false, false
	}
	return lua.LVAsBool(v), true
}

// numberField stores the numeric field key of t into dst when present.
func numberField(t *lua.LTable, key string, dst *float64) {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		*dst = float64(n)
	}
}

// stringMap converts a table of string pairs, ignoring non-string values.
func stringMap(t *lua.LTable) map[string]string {
	if t == nil {
		return nil
	}
	out := make(map[string]string)
	t.ForEach(func(k, v lua.LValue) {
		ks, kok := k.(lua.LString)
		if !kok {
			return
		}
		switch val := v.(type) {
		case lua.LString:
			out[string(ks)] = string(val)
		case lua.LNumber, lua.LBool:
			out[string(ks)] = val.String()
		}
	})
	return out
}
