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

// Package commands holds the command registry and the chat line dispatcher.
package commands

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/hogwarp/scripting/internal"
)

// Registry maps command names to their definitions and remembers the order
// in which they were registered.
type Registry struct {
	order    []string
	commands map[string]internal.Command
}

func NewRegistry() *Registry {
	return &Registry{
		order:    make([]string, 0),
		commands: make(map[string]internal.Command),
	}
}

func validate(cmd internal.Command) error {
	if cmd.Command == "" || strings.ContainsFunc(cmd.Command, unicode.IsSpace) {
		return fmt.Errorf("%w: name %q must be a single non-empty token", ErrInvalidCommand, cmd.Command)
	}
	if len(cmd.Handlers) == 0 {
		return fmt.Errorf("%w: %q has no handlers", ErrInvalidCommand, cmd.Command)
	}
	for i, h := range cmd.Handlers {
		if h == nil {
			return fmt.Errorf("%w: %q handler %d is nil", ErrInvalidCommand, cmd.Command, i)
		}
	}
	seen := make(map[string]struct{}, len(cmd.Arguments))
	for _, arg := range cmd.Arguments {
		if arg.Name == "" {
			return fmt.Errorf("%w: %q has an unnamed argument", ErrInvalidCommand, cmd.Command)
		}
		if _, ok := seen[arg.Name]; ok {
			return fmt.Errorf("%w: %q declares argument %q twice", ErrInvalidCommand, cmd.Command, arg.Name)
		}
		seen[arg.Name] = struct{}{}
	}
	return nil
}

// Register adds cmd to the registry. The first registration of a name wins;
// later ones fail with a *DuplicateCommandError.
func (r *Registry) Register(cmd internal.Command) error {
	if err := validate(cmd); err != nil {
		return err
	}
	if existing, ok := r.commands[cmd.Command]; ok {
		return &DuplicateCommandError{Command: cmd.Command, Module: cmd.Module, Existing: existing.Module}
	}
	cmd.Arguments = slices.Clone(cmd.Arguments)
	cmd.Handlers = slices.Clone(cmd.Handlers)
	r.commands[cmd.Command] = cmd
	r.order = append(r.order, cmd.Command)
	return nil
}

// CheckReplace returns the error Register would return for cmd once every
// command owned by cmd.Module has been removed.
func (r *Registry) CheckReplace(cmd internal.Command) error {
	if err := validate(cmd); err != nil {
		return err
	}
	if existing, ok := r.commands[cmd.Command]; ok && existing.Module != cmd.Module {
		return &DuplicateCommandError{Command: cmd.Command, Module: cmd.Module, Existing: existing.Module}
	}
	return nil
}

func (r *Registry) Unregister(name string) bool {
	if _, ok := r.commands[name]; !ok {
		return false
	}
	delete(r.commands, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	return true
}

// UnregisterModule removes every command owned by module and returns how many were removed.
func (r *Registry) UnregisterModule(module string) int {
	removed := 0
	for _, name := range slices.Clone(r.order) {
		if r.commands[name].Module == module {
			r.Unregister(name)
			removed++
		}
	}
	return removed
}

func (r *Registry) Get(name string) (internal.Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// All returns the registered commands in registration order.
func (r *Registry) All() []internal.Command {
	res := make([]internal.Command, 0, len(r.order))
	for _, name := range r.order {
		res = append(res, r.commands[name])
	}
	return res
}

// Modules returns the distinct owning modules in order of first registration.
func (r *Registry) Modules() []string {
	var res []string
	for _, name := range r.order {
		if module := r.commands[name].Module; !slices.Contains(res, module) {
			res = append(res, module)
		}
	}
	return res
}

func (r *Registry) Len() int {
	return len(r.order)
}
