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

package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-test/deep"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/commands"
	"github.com/hogwarp/scripting/internal/events"
)

type mockPlayer struct {
	id       internal.Identity
	name     string
	messages []string
	kicked   bool
}

func (p *mockPlayer) ID() internal.Identity { return p.id }
func (p *mockPlayer) Name() string { return p.name }
func (p *mockPlayer) SendMessage(text string) { p.messages = append(p.messages, text) }
func (p *mockPlayer) Kick() { p.kicked = true }

type mockAuth map[internal.Identity]bool

func (a mockAuth) IsPrivileged(id internal.Identity) bool { return a[id] }

func ok(internal.HandlerFuncParams) error { return nil }

func Test_Registry(t *testing.T) {
	t.Run("1. Register rejects invalid commands", func(t *testing.T) {
		tests := []struct {
			name string
			cmd  internal.Command
		}{
			{name: "empty name", cmd: internal.Command{Handlers: []internal.HandlerFunc{ok}}},
			{name: "name with space", cmd: internal.Command{Command: "a b", Handlers: []internal.HandlerFunc{ok}}},
			{name: "no handlers", cmd: internal.Command{Command: "a"}},
			{name: "nil handler", cmd: internal.Command{Command: "a", Handlers: []internal.HandlerFunc{nil}}},
			{
				name: "duplicate argument",
				cmd: internal.Command{
					Command:   "a",
					Arguments: []internal.Argument{{Name: "x"}, {Name: "x"}},
					Handlers:  []internal.HandlerFunc{ok},
				},
			},
		}
		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				registry := commands.NewRegistry()
				err := registry.Register(test.cmd)
				if !errors.Is(err, commands.ErrInvalidCommand) {
					t.Errorf("expected ErrInvalidCommand, got %v", err)
				}
				if registry.Len() != 0 {
					t.Errorf("expected empty registry, got %d commands", registry.Len())
				}
			})
		}
	})

	t.Run("2. First registration wins", func(t *testing.T) {
		registry := commands.NewRegistry()
		if err := registry.Register(internal.Command{Command: "ban", Module: "first", Handlers: []internal.HandlerFunc{ok}}); err != nil {
			t.Fatal(err)
		}
		err := registry.Register(internal.Command{Command: "ban", Module: "second", Handlers: []internal.HandlerFunc{ok}})
		var dup *commands.DuplicateCommandError
		if !errors.As(err, &dup) {
			t.Fatalf("expected *DuplicateCommandError, got %v", err)
		}
		if dup.Existing != "first" {
			t.Errorf("expected existing module \"first\", got %q", dup.Existing)
		}
		cmd, _ := registry.Get("ban")
		if cmd.Module != "first" {
			t.Errorf("expected command owned by \"first\", got %q", cmd.Module)
		}
	})

	t.Run("3. Replacement check", func(t *testing.T) {
		registry := commands.NewRegistry()
		if err := registry.Register(internal.Command{Command: "greet", Module: "greet.lua", Handlers: []internal.HandlerFunc{ok}}); err != nil {
			t.Fatal(err)
		}
		if err := registry.CheckReplace(internal.Command{Command: "greet", Module: "greet.lua", Handlers: []internal.HandlerFunc{ok}}); err != nil {
			t.Errorf("expected the owning module to replace its command, got %v", err)
		}
		var dup *commands.DuplicateCommandError
		if err := registry.CheckReplace(internal.Command{Command: "greet", Module: "other.js", Handlers: []internal.HandlerFunc{ok}}); !errors.As(err, &dup) {
			t.Errorf("expected *DuplicateCommandError, got %v", err)
		}
		if err := registry.CheckReplace(internal.Command{Command: "greet", Module: "greet.lua"}); !errors.Is(err, commands.ErrInvalidCommand) {
			t.Errorf("expected ErrInvalidCommand, got %v", err)
		}
		if registry.Len() != 1 {
			t.Errorf("expected the registry to be unchanged, got %d commands", registry.Len())
		}
	})

	t.Run("4. Order, modules and unregistration", func(t *testing.T) {
		registry := commands.NewRegistry()
		for _, c := range []struct{ name, module string }{
			{"help", "Server"}, {"ban", "Moderation"}, {"whoami", "Server"}, {"kick", "Moderation"},
		} {
			if err := registry.Register(internal.Command{Command: c.name, Module: c.module, Handlers: []internal.HandlerFunc{ok}}); err != nil {
				t.Fatal(err)
			}
		}
		var names []string
		for _, cmd := range registry.All() {
			names = append(names, cmd.Command)
		}
		if diff := deep.Equal(names, []string{"help", "ban", "whoami", "kick"}); diff != nil {
			t.Error(diff)
		}
		if diff := deep.Equal(registry.Modules(), []string{"Server", "Moderation"}); diff != nil {
			t.Error(diff)
		}
		if !registry.Unregister("help") {
			t.Error("expected help to be unregistered")
		}
		if registry.Unregister("help") {
			t.Error("expected second unregister to report false")
		}
		if n := registry.UnregisterModule("Moderation"); n != 2 {
			t.Errorf("expected 2 commands removed, got %d", n)
		}
		if registry.Len() != 1 {
			t.Errorf("expected 1 command left, got %d", registry.Len())
		}
	})
}

func Test_Dispatch(t *testing.T) {
	const op internal.Identity = "op-1"

	type record struct {
		ran  []string
		args internal.Args
	}

	newDispatcher := func(rec *record, hub *events.Hub) *commands.Dispatcher {
		registry := commands.NewRegistry()
		_ = registry.Register(internal.Command{
			Command:    "ban",
			Module:     "Moderation",
			Permission: internal.PermissionOperator,
			Arguments:  []internal.Argument{{Name: "player_id", Required: true}},
			Handlers: []internal.HandlerFunc{func(params internal.HandlerFuncParams) error {
				rec.ran = append(rec.ran, "ban")
				rec.args = params.Args
				return nil
			}},
		})
		_ = registry.Register(internal.Command{
			Command: "greet",
			Module:  "Server",
			Arguments: []internal.Argument{
				{Name: "who", Required: true},
				{Name: "greeting"},
			},
			Handlers: []internal.HandlerFunc{func(params internal.HandlerFuncParams) error {
				rec.ran = append(rec.ran, "greet")
				rec.args = params.Args
				return nil
			}},
		})
		_ = registry.Register(internal.Command{
			Command: "flaky",
			Module:  "Server",
			Handlers: []internal.HandlerFunc{
				func(internal.HandlerFuncParams) error { return errors.New("first failed") },
				func(internal.HandlerFuncParams) error {
					rec.ran = append(rec.ran, "flaky-2")
					return nil
				},
			},
		})
		_ = registry.Register(internal.Command{
			Command: "broken",
			Module:  "Server",
			Handlers: []internal.HandlerFunc{
				func(internal.HandlerFuncParams) error { panic("broken") },
			},
		})
		return commands.NewDispatcher(registry, mockAuth{op: true}, hub)
	}

	tests := []struct {
		name         string
		player       internal.Identity
		line         string
		wantConsumed bool
		wantErr      error
		wantMessages []string
		wantRan      []string
		wantArgs     internal.Args
	}{
		{
			name:         "1. Plain chat is not consumed",
			player:       "p-1",
			line:         "hello everyone",
			wantConsumed: false,
		},
		{
			name:         "2. Unknown command",
			player:       "p-1",
			line:         "/fly",
			wantConsumed: true,
			wantErr:      commands.ErrUnknownCommand,
			wantMessages: []string{"Unknown command. Type /help for a list of commands."},
		},
		{
			name:         "3. Bare prefix is an unknown command",
			player:       "p-1",
			line:         "/",
			wantConsumed: true,
			wantErr:      commands.ErrUnknownCommand,
			wantMessages: []string{"Unknown command. Type /help for a list of commands."},
		},
		{
			name:         "4. Operator command from a regular player",
			player:       "p-1",
			line:         "/ban alice",
			wantConsumed: true,
			wantErr:      commands.ErrNotAllowed,
			wantMessages: []string{"You are not allowed to use this command."},
		},
		{
			name:         "5. Missing required argument shows usage",
			player:       op,
			line:         "/ban",
			wantConsumed: true,
			wantErr:      commands.ErrMissingArguments,
			wantMessages: []string{"Usage: /ban player_id"},
		},
		{
			name:         "6. Operator runs operator command",
			player:       op,
			line:         "/ban alice",
			wantConsumed: true,
			wantRan:      []string{"ban"},
			wantArgs:     internal.Args{"player_id": {Raw: "alice", Present: true}},
		},
		{
			name:         "7. Optional argument left absent",
			player:       "p-1",
			line:         "/greet   bob",
			wantConsumed: true,
			wantRan:      []string{"greet"},
			wantArgs: internal.Args{
				"who":      {Raw: "bob", Present: true},
				"greeting": {},
			},
		},
		{
			name:         "8. Extra tokens beyond the declared arguments are ignored",
			player:       "p-1",
			line:         "/greet bob hi there",
			wantConsumed: true,
			wantRan:      []string{"greet"},
			wantArgs: internal.Args{
				"who":      {Raw: "bob", Present: true},
				"greeting": {Raw: "hi", Present: true},
			},
		},
		{
			name:         "9. A failing handler does not stop the next one",
			player:       "p-1",
			line:         "/flaky",
			wantConsumed: true,
			wantRan:      []string{"flaky-2"},
		},
		{
			name:         "10. Command names are case-sensitive",
			player:       op,
			line:         "/BAN alice",
			wantConsumed: true,
			wantErr:      commands.ErrUnknownCommand,
			wantMessages: []string{"Unknown command. Type /help for a list of commands."},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := &record{}
			d := newDispatcher(rec, events.NewHub(nil))
			player := &mockPlayer{id: test.player, name: string(test.player)}

			consumed, err := d.Dispatch(context.Background(), player, test.line)
			if consumed != test.wantConsumed {
				t.Errorf("expected consumed %v, got %v", test.wantConsumed, consumed)
			}
			if test.wantErr == nil && err != nil {
				t.Errorf("expected nil error, got %v", err)
			}
			if test.wantErr != nil && !errors.Is(err, test.wantErr) {
				t.Errorf("expected error %v, got %v", test.wantErr, err)
			}
			if diff := deep.Equal(player.messages, test.wantMessages); diff != nil {
				t.Errorf("messages: %v", diff)
			}
			if diff := deep.Equal(rec.ran, test.wantRan); diff != nil {
				t.Errorf("handlers: %v", diff)
			}
			if test.wantArgs != nil {
				if diff := deep.Equal(rec.args, test.wantArgs); diff != nil {
					t.Errorf("args: %v", diff)
				}
			}
		})
	}

	t.Run("11. All handlers failing returns the fault without telling the player", func(t *testing.T) {
		d := newDispatcher(&record{}, events.NewHub(nil))
		player := &mockPlayer{id: "p-1"}
		consumed, err := d.Dispatch(context.Background(), player, "/broken")
		if !consumed {
			t.Error("expected line to be consumed")
		}
		var fault *events.HandlerFault
		if !errors.As(err, &fault) {
			t.Fatalf("expected *events.HandlerFault, got %v", err)
		}
		if !fault.Panic {
			t.Error("expected fault to record the panic")
		}
		if len(player.messages) != 0 {
			t.Errorf("expected no messages, got %v", player.messages)
		}
	})

	t.Run("12. Chat subscribers decide whether plain chat is consumed", func(t *testing.T) {
		hub := events.NewHub(nil)
		var seen []string
		hub.Chat.Subscribe("test", func(_ internal.Player, message string, cancel *bool) error {
			seen = append(seen, message)
			*cancel = true
			return nil
		})
		d := newDispatcher(&record{}, hub)
		player := &mockPlayer{id: "p-1"}

		consumed, _ := d.Dispatch(context.Background(), player, "hello")
		if !consumed {
			t.Error("expected cancelled chat to be consumed")
		}
		consumed, _ = d.Dispatch(context.Background(), player, "/flaky")
		if !consumed {
			t.Error("expected command to be consumed")
		}
		if diff := deep.Equal(seen, []string{"hello"}); diff != nil {
			t.Errorf("commands must not reach chat subscribers: %v", diff)
		}
	})

	t.Run("13. Custom prefix", func(t *testing.T) {
		rec := &record{}
		registry := commands.NewRegistry()
		_ = registry.Register(internal.Command{
			Command: "ping",
			Handlers: []internal.HandlerFunc{func(params internal.HandlerFuncParams) error {
				rec.ran = append(rec.ran, params.Command[0])
				return nil
			}},
		})
		d := commands.NewDispatcher(registry, nil, nil, commands.WithPrefix("!"))
		player := &mockPlayer{id: "p-1"}

		if consumed, _ := d.Dispatch(context.Background(), player, "/ping"); consumed {
			t.Error("expected /ping to be plain chat under the ! prefix")
		}
		if consumed, _ := d.Dispatch(context.Background(), player, "!ping"); !consumed {
			t.Error("expected !ping to be consumed")
		}
		_, _ = d.Dispatch(context.Background(), player, "!nope")
		if diff := deep.Equal(rec.ran, []string{"ping"}); diff != nil {
			t.Error(diff)
		}
		if diff := deep.Equal(player.messages, []string{"Unknown command. Type !help for a list of commands."}); diff != nil {
			t.Error(diff)
		}
	})
}
