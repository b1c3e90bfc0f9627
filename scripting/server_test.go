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

package scripting_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/buffer"
	"github.com/hogwarp/scripting/internal/clock"
	"github.com/hogwarp/scripting/internal/config"
	"github.com/hogwarp/scripting/internal/extension"
	"github.com/hogwarp/scripting/internal/mock"
	"github.com/hogwarp/scripting/scripting"
)

func newTestServer(t *testing.T, players *mock.PlayerManager, options ...func(*scripting.Server)) *scripting.Server {
	t.Helper()
	conf := config.DefaultConfig()
	conf.DataDir = t.TempDir()
	conf.FlushBackoff = time.Millisecond
	opts := append([]func(*scripting.Server){
		scripting.WithConfig(conf),
		scripting.WithLogger(hclog.NewNullLogger()),
		scripting.WithPlayerManager(players),
		scripting.WithClock(clock.NewMockClock(time.Time{})),
	}, options...)
	server, err := scripting.NewServer(opts...)
	if err != nil {
		t.Fatalf("could not create server: %v", err)
	}
	return server
}

func Test_NewServer(t *testing.T) {
	server := newTestServer(t, mock.NewPlayerManager())

	info := server.GetServerInfo()
	if info.Commands != 4 {
		t.Errorf("expected 4 built-in commands, got %d", info.Commands)
	}
	if diff := deep.Equal(info.Modules, []string{"Server"}); diff != nil {
		t.Error(diff)
	}
	if len(info.Channels) != 0 {
		t.Errorf("expected no channels, got %v", info.Channels)
	}
	if diff := deep.Equal(server.Extensions(), []string{"Server"}); diff != nil {
		t.Error(diff)
	}
}

func Test_ExtensionIsolation(t *testing.T) {
	command := func(name string) internal.Command {
		return internal.Command{
			Command:  name,
			Handlers: []internal.HandlerFunc{func(internal.HandlerFuncParams) error { return nil }},
		}
	}

	broken := extension.Extension{
		Name: "Broken",
		Initialize: func(host extension.Host) error {
			if err := host.RegisterCommand(command("half")); err != nil {
				return err
			}
			stray := command("stray")
			stray.Module = "Elsewhere"
			if err := host.RegisterCommand(stray); err != nil {
				return err
			}
			return errors.New("could not open database")
		},
	}
	panics := extension.Extension{
		Name: "Panics",
		Initialize: func(host extension.Host) error {
			panic("nil map")
		},
	}
	good := extension.Extension{
		Name: "Good",
		Initialize: func(host extension.Host) error {
			return host.RegisterCommand(command("ping"))
		},
	}

	server := newTestServer(t, mock.NewPlayerManager(), scripting.WithExtensions(broken, panics, good))

	if diff := deep.Equal(server.Extensions(), []string{"Server", "Good"}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(server.GetServerInfo().Modules, []string{"Server", "Good"}); diff != nil {
		t.Error(diff)
	}

	alice := mock.NewPlayer("1", "alice")
	for _, line := range []string{"/half", "/stray"} {
		if !server.OnChatLine(alice, line) {
			t.Errorf("expected %s to be consumed", line)
		}
		if alice.Last() != "Unknown command. Type /help for a list of commands." {
			t.Errorf("expected %s of a failed extension to be removed, got %q", line, alice.Last())
		}
	}
}

func Test_OnChatLine(t *testing.T) {
	alice := mock.NewPlayer("1", "alice")
	players := mock.NewPlayerManager(alice)

	tests := []struct {
		name         string
		line         string
		wantConsumed bool
		wantMessages []string
	}{
		{
			name:         "1. Plain chat is not consumed",
			line:         "hello everyone",
			wantConsumed: false,
			wantMessages: nil,
		},
		{
			name:         "2. Known command",
			line:         "/whoami",
			wantConsumed: true,
			wantMessages: []string{"You are alice (1)"},
		},
		{
			name:         "3. Unknown command",
			line:         "/fly",
			wantConsumed: true,
			wantMessages: []string{"Unknown command. Type /help for a list of commands."},
		},
		{
			name:         "4. Operator command without rank",
			line:         "/op 1",
			wantConsumed: true,
			wantMessages: []string{"You are not allowed to use this command."},
		},
	}

	server := newTestServer(t, players)

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			alice.Clear()
			consumed := server.OnChatLine(alice, test.line)
			if consumed != test.wantConsumed {
				t.Errorf("expected consumed %v, got %v", test.wantConsumed, consumed)
			}
			if diff := deep.Equal(alice.Messages, test.wantMessages); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func Test_ChatSubscribers(t *testing.T) {
	alice := mock.NewPlayer("1", "alice")
	server := newTestServer(t, mock.NewPlayerManager(alice))

	var seen []string
	server.Events().Chat.Subscribe("filter", func(player internal.Player, text string, cancel *bool) error {
		seen = append(seen, text)
		*cancel = text == "spam"
		return nil
	})

	if server.OnChatLine(alice, "hello") {
		t.Error("expected hello to reach the host broadcast")
	}
	if !server.OnChatLine(alice, "spam") {
		t.Error("expected spam to be cancelled")
	}
	server.OnChatLine(alice, "/whoami")

	if diff := deep.Equal(seen, []string{"hello", "spam"}); diff != nil {
		t.Error(diff)
	}
}

func Test_OnMessage(t *testing.T) {
	alice := mock.NewPlayer("1", "alice")
	server := newTestServer(t, mock.NewPlayerManager(alice))

	if got := server.OnMessage(alice, "Nowhere", 1, []byte{1, 2, 3}); got != 0 {
		t.Errorf("expected unregistered channel to be dropped, got %d deliveries", got)
	}

	var gotOpcode uint16
	var gotText string
	_, err := server.RegisterMessageHandler("Echo", "test", func(sender internal.Player, opcode uint16, payload *buffer.Buffer) error {
		gotOpcode = opcode
		text, err := payload.ReadString()
		gotText = text
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	payload := buffer.New(64)
	if err = payload.WriteString("accio"); err != nil {
		t.Fatal(err)
	}
	if got := server.OnMessage(alice, "Echo", 7, payload.Bytes()); got != 1 {
		t.Errorf("expected 1 delivery, got %d", got)
	}
	if gotOpcode != 7 {
		t.Errorf("expected opcode 7, got %d", gotOpcode)
	}
	if gotText != "accio" {
		t.Errorf("expected payload \"accio\", got %q", gotText)
	}

	// A truncated payload fails inside the handler only.
	if got := server.OnMessage(alice, "Echo", 7, []byte{9}); got != 1 {
		t.Errorf("expected 1 delivery, got %d", got)
	}
	if diff := deep.Equal(server.GetServerInfo().Channels, []string{"Echo"}); diff != nil {
		t.Error(diff)
	}
}

func Test_CoreCommands(t *testing.T) {
	alice := mock.NewPlayer("1", "alice")
	bob := mock.NewPlayer("2", "bob")
	players := mock.NewPlayerManager(alice, bob)
	server := newTestServer(t, players)

	if _, err := server.Operators().Grant(context.Background(), alice.ID()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		player       *mock.Player
		line         string
		wantMessages []string
		wantOp       bool
	}{
		{
			name:   "1. Help hides operator commands",
			player: bob,
			line:   "/help",
			wantMessages: []string{
				"/help - List all commands",
				"/whoami - View information about yourself",
			},
		},
		{
			name:   "2. Help filtered by pattern",
			player: alice,
			line:   "/help *op",
			wantMessages: []string{
				"/op - Make a player an operator",
				"/deop - Remove operator status from a player",
			},
			wantOp: false,
		},
		{
			name:         "3. Help with invalid pattern",
			player:       bob,
			line:         "/help [",
			wantMessages: []string{"Invalid pattern [."},
		},
		{
			name:         "4. Op unknown player",
			player:       alice,
			line:         "/op 9",
			wantMessages: []string{"Could not find player with ID 9"},
		},
		{
			name:         "5. Op bob",
			player:       alice,
			line:         "/op 2",
			wantMessages: []string{"bob is now an operator."},
			wantOp:       true,
		},
		{
			name:         "6. Op bob again",
			player:       alice,
			line:         "/op 2",
			wantMessages: []string{"Player is already an operator."},
			wantOp:       true,
		},
		{
			name:         "7. Deop bob by name",
			player:       alice,
			line:         "/deop bob",
			wantMessages: []string{"Player is no longer an operator."},
			wantOp:       false,
		},
		{
			name:         "8. Deop player without rank",
			player:       alice,
			line:         "/deop 2",
			wantMessages: []string{"Player is not an operator."},
			wantOp:       false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.player.Clear()
			server.OnChatLine(test.player, test.line)
			if diff := deep.Equal(test.player.Messages, test.wantMessages); diff != nil {
				t.Error(diff)
			}
			if server.IsOp(bob.ID()) != test.wantOp {
				t.Errorf("expected bob operator %v, got %v", test.wantOp, server.IsOp(bob.ID()))
			}
		})
	}
}

func Test_Lifecycle(t *testing.T) {
	alice := mock.NewPlayer("1", "alice")
	server := newTestServer(t, mock.NewPlayerManager(alice))

	var got []string
	hub := server.Events()
	hub.Tick.Subscribe("test", func(delta float32) error {
		got = append(got, "tick")
		return nil
	})
	hub.PlayerJoin.Subscribe("test", func(p internal.Player) error {
		got = append(got, "join "+p.Name())
		return nil
	})
	hub.PlayerLeave.Subscribe("test", func(p internal.Player) error {
		got = append(got, "leave "+p.Name())
		return nil
	})
	hub.Shutdown.Subscribe("test", func() error {
		got = append(got, "shutdown")
		return nil
	})

	server.OnPlayerJoin(alice)
	server.OnTick(0.016)
	server.OnPlayerLeave(alice)
	server.OnShutdown()

	if diff := deep.Equal(got, []string{"join alice", "tick", "leave alice", "shutdown"}); diff != nil {
		t.Error(diff)
	}
}
