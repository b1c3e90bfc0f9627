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
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/constants"
	"github.com/robertkrimen/otto"
	lua "github.com/yuin/gopher-lua"
)

// script is a command implemented by a Lua or JavaScript file.
type script struct {
	engine  string // File extension of the script.
	command string
	vm      any
}

func (s *script) close() {
	if L, ok := s.vm.(*lua.LState); ok {
		L.Close()
	}
}

// scriptInfo is what a script declares through its globals.
type scriptInfo struct {
	command     string
	description string
	permission  internal.Permission
	arguments   []internal.Argument
}

func parsePermission(path string, raw string) (internal.Permission, error) {
	permission, ok := internal.ParsePermission(raw)
	if !ok {
		return permission, fmt.Errorf("script %s: permission %q must be \"default\" or \"operator\"", path, raw)
	}
	return permission, nil
}

// LoadModule loads a Lua or JavaScript script as a chat command at runtime.
// The script's command is owned by a module named after path. Loading a path
// that is already loaded replaces the previous version.
//
// Parameters:
//
// `path` - string - The path to the .lua or .js script to be loaded.
func (server *Server) LoadModule(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load module: module %s not found", path)
		}
		return fmt.Errorf("load module: %v", err)
	}

	var vm any
	var info scriptInfo
	var err error

	engine := strings.ToLower(filepath.Ext(path))
	switch engine {
	case constants.LuaExt:
		vm, info, err = generateLuaCommandInfo(path)
	case constants.JSExt:
		vm, info, err = generateJSCommandInfo(path)
	default:
		return fmt.Errorf("load module: %s is not a .lua or .js script", path)
	}
	if err != nil {
		return err
	}

	s := &script{engine: engine, command: info.command, vm: vm}
	command := internal.Command{
		Command:     info.command,
		Module:      path,
		Description: info.description,
		Permission:  info.permission,
		Arguments:   info.arguments,
		Handlers: []internal.HandlerFunc{
			func(params internal.HandlerFuncParams) error {
				switch s.engine {
				case constants.LuaExt:
					return server.luaHandlerFunc(s.vm.(*lua.LState), params)
				case constants.JSExt:
					return server.jsHandlerFunc(s.vm.(*otto.Otto), params)
				}
				return fmt.Errorf("command %s handler not implemented", s.command)
			},
		},
	}
	// The previous version stays loaded unless the new one can take its place.
	if err = server.registry.CheckReplace(command); err != nil {
		s.close()
		return fmt.Errorf("load module: %w", err)
	}
	server.UnloadModule(path)
	if err = server.RegisterCommand(command); err != nil {
		s.close()
		return fmt.Errorf("load module: %w", err)
	}
	server.scripts[path] = s
	return nil
}

// UnloadModule removes every command, message handler and event subscription
// owned by module.
//
// Parameters:
//
// `module` - string - module name as displayed by the ListModules method.
func (server *Server) UnloadModule(module string) {
	removed := server.registry.UnregisterModule(module)
	removed += server.router.UnregisterSource(module)
	removed += server.hub.UnsubscribeSource(module)
	if s, ok := server.scripts[module]; ok {
		s.close()
		delete(server.scripts, module)
	}
	if removed > 0 {
		server.logger.Info("unloaded module", "module", module, "registrations", removed)
	}
}

// ListModules lists the modules that own at least one command.
//
// Returns: a string slice of module names in order of first registration.
func (server *Server) ListModules() []string {
	return server.registry.Modules()
}
