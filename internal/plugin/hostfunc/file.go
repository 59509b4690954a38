// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/fileio"
	"github.com/marquee-player/marquee/internal/plugin/capability"
)

const fileHandleType = "marquee.filehandle"

type luaFileHandle struct {
	plugin string
	funcs  *Functions
	h      *fileio.Handle
}

func (f *Functions) fileModule(env *Env) module {
	files := func() *fileio.Manager { return env.Instance.Files() }
	read := func(fn lua.LGFunction) lua.LGFunction { return f.wrap(env.Plugin, capability.FileRead, fn) }
	write := func(fn lua.LGFunction) lua.LGFunction { return f.wrap(env.Plugin, capability.FileWrite, fn) }

	return module{
		// list(path, {includeSubDir=}) -> {{filename=, path=, isDir=, size=}, ...}
		"list": read(func(L *lua.LState) int {
			path := L.CheckString(1)
			recursive, _ := boolField(optTable(L, 2), "includeSubDir")
			entries, err := files().List(path, recursive)
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			t := L.CreateTable(len(entries), 0)
			for i, e := range entries {
				row := L.CreateTable(0, 4)
				row.RawSetString("filename", lua.LString(e.Name))
				row.RawSetString("path", lua.LString(e.Path))
				row.RawSetString("isDir", lua.LBool(e.IsDir))
				row.RawSetString("size", lua.LNumber(e.Size))
				t.RawSetInt(i+1, row)
			}
			return pushSuccess(L, t)
		}),
		"exists": read(func(L *lua.LState) int {
			L.Push(lua.LBool(files().Exists(L.CheckString(1))))
			return 1
		}),
		"read": read(func(L *lua.LState) int {
			data, err := files().ReadFile(L.CheckString(1))
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			return pushSuccess(L, lua.LString(data))
		}),
		"write": write(func(L *lua.LState) int {
			path := L.CheckString(1)
			data, err := bytesArg(L, 2)
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			return f.pushResult(L, env.Plugin, files().WriteFile(path, data))
		}),
		"delete": write(func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, files().Delete(L.CheckString(1)))
		}),
		// trash(path) -> path inside the trash directory
		"trash": write(func(L *lua.LState) int {
			dest, err := files().Trash(L.CheckString(1))
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			return pushSuccess(L, lua.LString(dest))
		}),
		// handle(path, mode) -> handle
		"handle": func(L *lua.LState) int {
			path := L.CheckString(1)
			mode, err := fileio.ParseMode(L.OptString(2, string(fileio.ModeRead)))
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			if mode.CanRead() && !f.enforcer.Check(env.Plugin, capability.FileRead) {
				L.RaiseError("capability denied: %s requires %s", env.Plugin, capability.FileRead)
				return 0
			}
			if mode.CanWrite() && !f.enforcer.Check(env.Plugin, capability.FileWrite) {
				L.RaiseError("capability denied: %s requires %s", env.Plugin, capability.FileWrite)
				return 0
			}
			h, err := files().Open(path, mode)
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			ud := L.NewUserData()
			ud.Value = &luaFileHandle{plugin: env.Plugin, funcs: f, h: h}
			L.SetMetatable(ud, L.GetTypeMetatable(fileHandleType))
			return pushSuccess(L, ud)
		},
	}
}

// bytesArg reads argument n as a string or an array of byte values.
func bytesArg(L *lua.LState, n int) ([]byte, error) {
	switch v := L.Get(n).(type) {
	case lua.LString:
		return []byte(v), nil
	case *lua.LTable:
		out := make([]byte, 0, v.Len())
		for i := 1; i <= v.Len(); i++ {
			num, ok := v.RawGetInt(i).(lua.LNumber)
			if !ok || num < 0 || num > 255 || float64(num) != float64(int(num)) {
				return nil, fault.InvalidArgument("byte %d is not an integer in 0..255", i)
			}
			out = append(out, byte(num))
		}
		return out, nil
	default:
		return nil, fault.InvalidArgument("data must be a string or a byte array, got %s", v.Type())
	}
}

func registerFileHandleType(L *lua.LState) {
	mt := L.NewTypeMetatable(fileHandleType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"offset": func(L *lua.LState) int {
			fh := checkFileHandle(L)
			off, err := fh.h.Offset()
			if err != nil {
				return pushError(L, fh.funcs.errorMessage(fh.plugin, err))
			}
			return pushSuccess(L, lua.LNumber(off))
		},
		"seekTo": func(L *lua.LState) int {
			fh := checkFileHandle(L)
			return fh.funcs.pushResult(L, fh.plugin, fh.h.SeekTo(L.CheckInt64(2)))
		},
		"seekToEnd": func(L *lua.LState) int {
			fh := checkFileHandle(L)
			off, err := fh.h.SeekToEnd()
			if err != nil {
				return pushError(L, fh.funcs.errorMessage(fh.plugin, err))
			}
			return pushSuccess(L, lua.LNumber(off))
		},
		// read(n) -> data, or nil at end of file
		"read": func(L *lua.LState) int {
			fh := checkFileHandle(L)
			data, err := fh.h.Read(L.CheckInt(2))
			if err != nil {
				return pushError(L, fh.funcs.errorMessage(fh.plugin, err))
			}
			if data == nil {
				return pushSuccess(L, lua.LNil)
			}
			return pushSuccess(L, lua.LString(data))
		},
		"readToEnd": func(L *lua.LState) int {
			fh := checkFileHandle(L)
			data, err := fh.h.ReadToEnd()
			if err != nil {
				return pushError(L, fh.funcs.errorMessage(fh.plugin, err))
			}
			if data == nil {
				return pushSuccess(L, lua.LNil)
			}
			return pushSuccess(L, lua.LString(data))
		},
		"write": func(L *lua.LState) int {
			fh := checkFileHandle(L)
			data, err := bytesArg(L, 2)
			if err != nil {
				return pushError(L, fh.funcs.errorMessage(fh.plugin, err))
			}
			n, err := fh.h.Write(data)
			if err != nil {
				return pushError(L, fh.funcs.errorMessage(fh.plugin, err))
			}
			return pushSuccess(L, lua.LNumber(n))
		},
		"close": func(L *lua.LState) int {
			fh := checkFileHandle(L)
			return fh.funcs.pushResult(L, fh.plugin, fh.h.Close())
		},
	}))
}

func checkFileHandle(L *lua.LState) *luaFileHandle {
	ud := L.CheckUserData(1)
	if fh, ok := ud.Value.(*luaFileHandle); ok {
		return fh
	}
	L.ArgError(1, "file handle expected")
	return nil
}
