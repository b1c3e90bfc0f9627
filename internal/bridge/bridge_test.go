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

package bridge_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/bridge"
	"github.com/hogwarp/scripting/internal/buffer"
	"github.com/hogwarp/scripting/internal/clock"
	"github.com/hogwarp/scripting/internal/config"
	"github.com/hogwarp/scripting/scripting"
	"github.com/tidwall/resp"
)

func setUpBridge(t *testing.T) (*bridge.Bridge, *scripting.Server, *resp.Conn) {
	t.Helper()
	b := bridge.New(bridge.WithLogger(hclog.NewNullLogger()))

	conf := config.DefaultConfig()
	conf.DataDir = t.TempDir()
	server, err := scripting.NewServer(
		scripting.WithConfig(conf),
		scripting.WithLogger(hclog.NewNullLogger()),
		scripting.WithPlayerManager(b),
	)
	if err != nil {
		t.Fatal(err)
	}
	b.Bind(server)

	serverConn, clientConn := net.Pipe()
	go b.HandleConnection(serverConn)
	t.Cleanup(func() {
		_ = clientConn.Close()
	})
	return b, server, resp.NewConn(clientConn)
}

func command(t *testing.T, conn *resp.Conn, args ...resp.Value) resp.Value {
	t.Helper()
	if err := conn.WriteArray(args); err != nil {
		t.Fatal(err)
	}
	res, _, err := conn.ReadValue()
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func str(s string) resp.Value {
	return resp.StringValue(s)
}

// actions flattens the POLL reply into string slices.
func actions(res resp.Value) [][]string {
	var out [][]string
	for _, action := range res.Array() {
		var fields []string
		for _, field := range action.Array() {
			fields = append(fields, field.String())
		}
		out = append(out, fields)
	}
	return out
}

func Test_Commands(t *testing.T) {
	_, _, conn := setUpBridge(t)

	tests := []struct {
		name    string
		command []resp.Value
		want    string
		wantErr bool
	}{
		{
			name:    "1. Ping",
			command: []resp.Value{str("PING")},
			want:    "PONG",
		},
		{
			name:    "2. Join",
			command: []resp.Value{str("JOIN"), str("1"), str("alice")},
			want:    "OK",
		},
		{
			name:    "3. Plain chat is not consumed",
			command: []resp.Value{str("CHAT"), str("1"), str("hello")},
			want:    "0",
		},
		{
			name:    "4. Command line is consumed",
			command: []resp.Value{str("CHAT"), str("1"), str("/whoami")},
			want:    "1",
		},
		{
			name:    "5. Chat from unknown player",
			command: []resp.Value{str("CHAT"), str("9"), str("hello")},
			wantErr: true,
		},
		{
			name:    "6. Message on unregistered channel",
			command: []resp.Value{str("MESSAGE"), str("1"), str("Nowhere"), str("3"), resp.BytesValue([]byte{1})},
			want:    "0",
		},
		{
			name:    "7. Invalid opcode",
			command: []resp.Value{str("MESSAGE"), str("1"), str("Nowhere"), str("70000"), resp.BytesValue(nil)},
			wantErr: true,
		},
		{
			name:    "8. Tick",
			command: []resp.Value{str("TICK"), str("0.016")},
			want:    "OK",
		},
		{
			name:    "9. Wrong number of arguments",
			command: []resp.Value{str("JOIN"), str("2")},
			wantErr: true,
		},
		{
			name:    "10. Unknown command",
			command: []resp.Value{str("FLY")},
			wantErr: true,
		},
		{
			name:    "11. Leave",
			command: []resp.Value{str("LEAVE"), str("1")},
			want:    "OK",
		},
		{
			name:    "12. Leave twice",
			command: []resp.Value{str("LEAVE"), str("1")},
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := command(t, conn, test.command...)
			if test.wantErr {
				if res.Type() != resp.Error {
					t.Errorf("expected error reply, got %q", res.String())
				}
				return
			}
			if res.String() != test.want {
				t.Errorf("expected %q, got %q", test.want, res.String())
			}
		})
	}
}

func Test_Poll(t *testing.T) {
	b, server, conn := setUpBridge(t)

	_, err := server.RegisterMessageHandler("Echo", "test", func(sender internal.Player, opcode uint16, payload *buffer.Buffer) error {
		return b.SendTo(sender, "Echo", opcode+1, payload.Bytes())
	})
	if err != nil {
		t.Fatal(err)
	}
	server.Events().PlayerJoin.Subscribe("test", func(p internal.Player) error {
		if p.Name() == "mallory" {
			p.Kick()
		}
		return nil
	})

	command(t, conn, str("JOIN"), str("1"), str("alice"))
	command(t, conn, str("JOIN"), str("2"), str("mallory"))
	command(t, conn, str("CHAT"), str("1"), str("/whoami"))
	res := command(t, conn, str("MESSAGE"), str("1"), str("Echo"), str("7"), resp.BytesValue([]byte("hi")))
	if res.Integer() != 1 {
		t.Errorf("expected 1 delivery, got %d", res.Integer())
	}

	want := [][]string{
		{"KICK", "2"},
		{"SEND", "1", "You are alice (1)"},
		{"MESSAGE", "1", "Echo", "8", "hi"},
	}
	if diff := deep.Equal(actions(command(t, conn, str("POLL"))), want); diff != nil {
		t.Error(diff)
	}
	if got := actions(command(t, conn, str("POLL"))); len(got) != 0 {
		t.Errorf("expected outbox to be drained, got %v", got)
	}

	if got := len(b.Players()); got != 2 {
		t.Errorf("expected 2 players, got %d", got)
	}
}

type tickCounter struct {
	bridge.Core
	ticks  int
	cancel context.CancelFunc
}

func (c *tickCounter) OnTick(float32) {
	c.ticks++
	if c.ticks == 3 {
		c.cancel()
	}
}

func Test_RunTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core := &tickCounter{cancel: cancel}
	b := bridge.New(
		bridge.WithClock(clock.NewMockClock(time.Time{})),
		bridge.WithTickInterval(50*time.Millisecond),
	)
	b.Bind(core)

	done := make(chan struct{})
	go func() {
		b.RunTicks(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tick loop did not stop")
	}
	if core.ticks < 3 {
		t.Errorf("expected at least 3 ticks, got %d", core.ticks)
	}
}

type shutdownCounter struct {
	bridge.Core
	shutdowns int
}

func (c *shutdownCounter) OnShutdown() {
	c.shutdowns++
}

func Test_ShutDown(t *testing.T) {
	core := &shutdownCounter{}
	b := bridge.New()
	b.Bind(core)

	serverConn, clientConn := net.Pipe()
	go b.HandleConnection(serverConn)
	defer func() {
		_ = clientConn.Close()
	}()

	res := command(t, resp.NewConn(clientConn), str("SHUTDOWN"))
	if res.String() != "OK" {
		t.Errorf("expected OK, got %q", res.String())
	}
	b.ShutDown()
	b.ShutDown()

	if core.shutdowns != 1 {
		t.Errorf("expected shutdown to be published once, got %d", core.shutdowns)
	}
}

func Test_Serve(t *testing.T) {
	port, err := internal.GetFreePort()
	if err != nil {
		t.Fatal(err)
	}
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	b := bridge.New()
	b.Bind(&shutdownCounter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Serve(ctx, addr)
	}()

	var conn net.Conn
	for i := 0; i < 50; i++ {
		if conn, err = net.Dial("tcp", addr); err == nil {
			break
		}
		<-time.After(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("could not connect to bridge: %v", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	if res := command(t, resp.NewConn(conn), str("PING")); res.String() != "PONG" {
		t.Errorf("expected PONG, got %q", res.String())
	}

	cancel()
	select {
	case err = <-errCh:
		if err != nil {
			t.Errorf("expected clean stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop")
	}
}
