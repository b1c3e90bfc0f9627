// Copyright 2024 Kelvin Clement Mwinuka
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scripting

import (
	"errors"
	"fmt"

	"github.com/hogwarp/scripting/internal"
	lua "github.com/yuin/gopher-lua"
)

func generateLuaCommandInfo(path string) (*lua.LState, scriptInfo, error) {
	L := lua.NewState()

	fail := func(err error) (*lua.LState, scriptInfo, error) {
		L.Close()
		return nil, scriptInfo{}, err
	}

	// Load lua file
	if err := L.DoFile(path); err != nil {
		return fail(fmt.Errorf("could not load lua script file %s: %v", path, err))
	}

	// Get the command name
	cn, ok := L.GetGlobal("command").(lua.LString)
	if !ok || len(cn) == 0 {
		return fail(errors.New("command name does not exist or is not a string"))
	}

	info := scriptInfo{command: string(cn)}

	// Get the description
	switch d := L.GetGlobal("description").(type) {
	case lua.LString:
		info.description = string(d)
	case *lua.LNilType:
	default:
		return fail(errors.New("description is not a string"))
	}

	// Get the permission
	switch p := L.GetGlobal("permission").(type) {
	case lua.LString:
		permission, err := parsePermission(path, string(p))
		if err != nil {
			return fail(err)
		}
		info.permission = permission
	case *lua.LNilType:
	default:
		return fail(errors.New("permission is not a string"))
	}

	// Get the declared parameters
	switch params := L.GetGlobal("parameters").(type) {
	case *lua.LTable:
		for i := 1; i <= params.Len(); i++ {
			switch entry := params.RawGetInt(i).(type) {
			case lua.LString:
				info.arguments = append(info.arguments, internal.Argument{Name: string(entry)})
			case *lua.LTable:
				info.arguments = append(info.arguments, internal.Argument{
					Name:        lua.LVAsString(entry.RawGetString("name")),
					Description: lua.LVAsString(entry.RawGetString("description")),
					Required:    lua.LVAsBool(entry.RawGetString("required")),
				})
			default:
				return fail(fmt.Errorf("parameter %d is not a string or a table", i))
			}
		}
	case *lua.LNilType:
	default:
		return fail(errors.New("parameters is not an array"))
	}

	if _, ok = L.GetGlobal("handlerFunc").(*lua.LFunction); !ok {
		return fail(errors.New("handlerFunc does not exist or is not a function"))
	}

	return L, info, nil
}

// luaHandlerFunc calls handlerFunc(ctx, args, command) in the script's VM.
// A non-empty string returned by the script is treated as an error.
func (server *Server) luaHandlerFunc(L *lua.LState, params internal.HandlerFuncParams) error {
	// Lua table context
	ctx := L.NewTable()
	ctx.RawSetString("player_id", lua.LString(params.Player.ID()))
	ctx.RawSetString("player_name", lua.LString(params.Player.Name()))
	ctx.RawSetString("is_op", lua.LBool(params.IsOp(params.Player.ID())))
	// Function that replies to the player who typed the command
	ctx.RawSetString("send", L.NewFunction(func(state *lua.LState) int {
		params.Player.SendMessage(state.CheckString(1))
		return 0
	}))
	// Function that sends a line to every connected player
	ctx.RawSetString("broadcast", L.NewFunction(func(state *lua.LState) int {
		text := state.CheckString(1)
		for _, p := range server.players.Players() {
			p.SendMessage(text)
		}
		return 0
	}))

	// Bound arguments, absent ones are nil
	args := L.NewTable()
	for name, value := range params.Args {
		if value.Present {
			args.RawSetString(name, lua.LString(value.Raw))
		}
	}

	// Command that triggered the handler (Array)
	cmd := L.NewTable()
	for i, s := range params.Command {
		cmd.RawSetInt(i+1, lua.LString(s))
	}

	// Call the lua handler function
	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("handlerFunc"),
		NRet:    1,
		Protect: true,
	}, ctx, args, cmd); err != nil {
		return err
	}
	ret := L.Get(-1)
	L.Pop(1)
	if s, ok := ret.(lua.LString); ok && len(s) > 0 {
		return errors.New(string(s))
	}
	return nil
}
