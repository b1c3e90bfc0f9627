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
	"os"

	"github.com/hogwarp/scripting/internal"
	"github.com/robertkrimen/otto"
)

func generateJSCommandInfo(path string) (*otto.Otto, scriptInfo, error) {
	// Initialize the Otto vm
	vm := otto.New()

	// Load JS file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, scriptInfo{}, fmt.Errorf("could not load javascript script file %s: %v", path, err)
	}
	if _, err = vm.Run(content); err != nil {
		return nil, scriptInfo{}, fmt.Errorf("could not run javascript script file %s: %v", path, err)
	}

	// Get the command name
	v, err := vm.Get("command")
	if err != nil {
		return nil, scriptInfo{}, fmt.Errorf("could not get javascript command %s: %v", path, err)
	}
	if !v.IsString() {
		return nil, scriptInfo{}, fmt.Errorf("javascript command not found %s", path)
	}
	command, _ := v.ToString()
	if len(command) <= 0 {
		return nil, scriptInfo{}, fmt.Errorf("javascript command not found %s", path)
	}

	info := scriptInfo{command: command}

	// Get the description
	if v, _ = vm.Get("description"); v.IsDefined() {
		if !v.IsString() {
			return nil, scriptInfo{}, fmt.Errorf("javascript command description is not a string %s", path)
		}
		info.description, _ = v.ToString()
	}

	// Get the permission
	if v, _ = vm.Get("permission"); v.IsDefined() {
		raw, _ := v.ToString()
		if info.permission, err = parsePermission(path, raw); err != nil {
			return nil, scriptInfo{}, err
		}
	}

	// Get the declared parameters
	if v, _ = vm.Get("parameters"); v.IsDefined() {
		isArray, _ := vm.Run(`Array.isArray(parameters)`)
		if ok, _ := isArray.ToBoolean(); !ok {
			return nil, scriptInfo{}, fmt.Errorf("javascript command parameters is not an array %s", path)
		}
		exported, _ := v.Export()
		if info.arguments, err = jsArguments(exported); err != nil {
			return nil, scriptInfo{}, fmt.Errorf("javascript command parameters %s: %v", path, err)
		}
	}

	// Check the handler
	if f, _ := vm.Get("handlerFunc"); !f.IsFunction() {
		return nil, scriptInfo{}, fmt.Errorf("handlerFunc is not a function %s", path)
	}

	return vm, info, nil
}

func jsArguments(exported any) ([]internal.Argument, error) {
	var entries []any
	switch e := exported.(type) {
	case []any:
		entries = e
	case []map[string]any:
		for _, m := range e {
			entries = append(entries, m)
		}
	case []string:
		for _, s := range e {
			entries = append(entries, s)
		}
	default:
		return nil, fmt.Errorf("unexpected type %T", exported)
	}

	arguments := make([]internal.Argument, 0, len(entries))
	for i, entry := range entries {
		switch e := entry.(type) {
		case string:
			arguments = append(arguments, internal.Argument{Name: e})
		case map[string]any:
			name, _ := e["name"].(string)
			description, _ := e["description"].(string)
			required, _ := e["required"].(bool)
			arguments = append(arguments, internal.Argument{Name: name, Description: description, Required: required})
		default:
			return nil, fmt.Errorf("parameter %d is not a string or an object", i)
		}
	}
	return arguments, nil
}

// jsHandlerFunc calls handlerFunc(ctx, args, command) in the script's VM.
// A non-empty string returned by the script is treated as an error.
func (server *Server) jsHandlerFunc(vm *otto.Otto, params internal.HandlerFuncParams) error {
	f, _ := vm.Get("handlerFunc")
	if !f.IsFunction() {
		return errors.New("handlerFunc is not a function")
	}

	// Build context
	ctx, err := vm.Object(`({})`)
	if err != nil {
		return err
	}
	_ = ctx.Set("player_id", string(params.Player.ID()))
	_ = ctx.Set("player_name", params.Player.Name())
	_ = ctx.Set("is_op", params.IsOp(params.Player.ID()))
	_ = ctx.Set("send", func(text string) {
		params.Player.SendMessage(text)
	})
	_ = ctx.Set("broadcast", func(text string) {
		for _, p := range server.players.Players() {
			p.SendMessage(text)
		}
	})

	// Bound arguments, absent ones are undefined
	args, err := vm.Object(`({})`)
	if err != nil {
		return err
	}
	for name, value := range params.Args {
		if value.Present {
			_ = args.Set(name, value.Raw)
		}
	}

	v, err := f.Call(otto.UndefinedValue(), ctx.Value(), args.Value(), params.Command)
	if err != nil {
		return err
	}
	if v.IsString() {
		if s, _ := v.ToString(); len(s) > 0 {
			return errors.New(s)
		}
	}
	return nil
}
