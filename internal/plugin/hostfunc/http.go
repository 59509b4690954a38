// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	"context"
	"net/http"

	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/httpc"
)

func (f *Functions) httpModule(env *Env) module {
	m := module{
		"xmlrpc": f.xmlrpc(env),
	}
	for name, method := range map[string]string{
		"get":    http.MethodGet,
		"post":   http.MethodPost,
		"put":    http.MethodPut,
		"patch":  http.MethodPatch,
		"delete": http.MethodDelete,
	} {
		m[name] = f.request(env, method)
	}
	return m
}

// request returns a function of the form fn(url, {params=, headers=,
// data=}, callback). The request runs off the loop; callback(resp, err)
// is queued on the loop when it completes.
func (f *Functions) request(env *Env, method string) lua.LGFunction {
	return func(L *lua.LState) int {
		target := L.CheckString(1)
		t := optTable(L, 2)
		fn := optFunction(L, 3)

		var opts httpc.Options
		if t != nil {
			opts.Params = stringMap(tableField(t, "params"))
			opts.Headers = stringMap(tableField(t, "headers"))
			if data := t.RawGetString("data"); data != lua.LNil {
				opts.Data = ToGoValue(data)
			}
		}

		env.HTTP.Async(luaContext(L), env.Instance.Loop(), method, target, opts,
			func(_ context.Context, resp *httpc.Response, err error) error {
				if fn == nil {
					return nil
				}
				if err != nil {
					_, callErr := invoke(L, fn, 0, lua.LNil, lua.LString(f.errorMessage(env.Plugin, err)))
					return callErr
				}
				_, callErr := invoke(L, fn, 0, responseTable(L, resp))
				return callErr
			})
		L.Push(lua.LTrue)
		return 1
	}
}

// xmlrpc(location) -> {call = fn(method, args, callback)}
func (f *Functions) xmlrpc(env *Env) lua.LGFunction {
	return func(L *lua.LState) int {
		location := L.CheckString(1)
		rpc := env.HTTP.XMLRPC(location)

		obj := L.NewTable()
		L.SetField(obj, "call", L.NewFunction(func(L *lua.LState) int {
			method := L.CheckString(1)
			var args []any
			if t := optTable(L, 2); t != nil {
				for i := 1; i <= t.Len(); i++ {
					args = append(args, ToGoValue(t.RawGetInt(i)))
				}
			}
			fn := optFunction(L, 3)

			rpc.Async(luaContext(L), env.Instance.Loop(), method, args,
				func(_ context.Context, result any, err error) error {
					if fn == nil {
						return nil
					}
					if err != nil {
						_, callErr := invoke(L, fn, 0, lua.LNil, lua.LString(f.errorMessage(env.Plugin, err)))
						return callErr
					}
					_, callErr := invoke(L, fn, 0, ToLuaValue(L, result))
					return callErr
				})
			L.Push(lua.LTrue)
			return 1
		}))
		L.Push(obj)
		return 1
	}
}

func responseTable(L *lua.LState, resp *httpc.Response) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "statusCode", lua.LNumber(resp.StatusCode))
	L.SetField(t, "reason", lua.LString(resp.Reason))
	L.SetField(t, "text", lua.LString(resp.Text))
	if resp.Truncated {
		L.SetField(t, "truncated", lua.LTrue)
	}
	L.SetField(t, "data", ToLuaValue(L, resp.Data))
	return t
}

// tableField returns t[key] when it is a table.
func tableField(t *lua.LTable, key string) *lua.LTable {
	if sub, ok := t.RawGetString(key).(*lua.LTable); ok {
		return sub
	}
	return nil
}
