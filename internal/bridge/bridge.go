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

// Package bridge lets a host process drive the scripting core over a RESP
// socket. The host reports players, chat lines, messages and ticks as
// commands and collects the core's outbound actions with POLL.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/clock"
	"github.com/tidwall/resp"
)

var ErrUnknownPlayer = errors.New("player is not connected")

// Core is the inbound interface of the scripting server.
type Core interface {
	OnTick(deltaSeconds float32)
	OnShutdown()
	OnPlayerJoin(player internal.Player)
	OnPlayerLeave(player internal.Player)
	OnChatLine(player internal.Player, text string) bool
	OnMessage(player internal.Player, channel string, opcode uint16, payload []byte) int
}

type player struct {
	id     internal.Identity
	name   string
	bridge *Bridge
}

func (p *player) ID() internal.Identity {
	return p.id
}

func (p *player) Name() string {
	return p.name
}

func (p *player) SendMessage(text string) {
	p.bridge.push("SEND", resp.StringValue(string(p.id)), resp.StringValue(text))
}

func (p *player) Kick() {
	p.bridge.push("KICK", resp.StringValue(string(p.id)))
}

// Bridge implements internal.PlayerManager for players reported by the host.
//
// Every call into the core runs with mut held, so extensions observe a single
// event thread no matter how many host connections are open. Outbound actions
// are queued under the same lock.
type Bridge struct {
	mut     sync.Mutex
	core    Core
	players []*player
	outbox  []resp.Value
	closed  bool // The core has seen OnShutdown.

	logger       hclog.Logger
	clock        clock.Clock
	tickInterval time.Duration

	listener atomic.Value
	quit     chan struct{}
	stop     sync.Once
}

func WithLogger(logger hclog.Logger) func(b *Bridge) {
	return func(b *Bridge) {
		b.logger = logger
	}
}

func WithClock(clock clock.Clock) func(b *Bridge) {
	return func(b *Bridge) {
		b.clock = clock
	}
}

// WithTickInterval makes Serve publish ticks itself. Zero leaves ticks to
// the host's TICK command.
func WithTickInterval(interval time.Duration) func(b *Bridge) {
	return func(b *Bridge) {
		b.tickInterval = interval
	}
}

func New(options ...func(b *Bridge)) *Bridge {
	b := &Bridge{
		logger: hclog.NewNullLogger(),
		clock:  clock.NewClock(),
		quit:   make(chan struct{}),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// Bind sets the core that receives host events. The core is usually built
// with this bridge as its player manager, so it is bound after construction.
func (b *Bridge) Bind(core Core) {
	b.mut.Lock()
	defer b.mut.Unlock()
	b.core = core
}

// push queues an outbound action. The caller holds mut.
func (b *Bridge) push(action string, args ...resp.Value) {
	b.outbox = append(b.outbox, resp.ArrayValue(append([]resp.Value{resp.StringValue(action)}, args...)))
}

func (b *Bridge) find(id internal.Identity) *player {
	idx := slices.IndexFunc(b.players, func(p *player) bool { return p.id == id })
	if idx == -1 {
		return nil
	}
	return b.players[idx]
}

// Players returns the connected players in join order.
func (b *Bridge) Players() []internal.Player {
	res := make([]internal.Player, 0, len(b.players))
	for _, p := range b.players {
		res = append(res, p)
	}
	return res
}

// SendTo queues a MESSAGE action for the host.
func (b *Bridge) SendTo(target internal.Player, channel string, opcode uint16, payload []byte) error {
	if b.find(target.ID()) == nil {
		return fmt.Errorf("send to %s: %w", target.ID(), ErrUnknownPlayer)
	}
	b.push("MESSAGE",
		resp.StringValue(string(target.ID())),
		resp.StringValue(channel),
		resp.IntegerValue(int(opcode)),
		resp.BytesValue(slices.Clone(payload)),
	)
	return nil
}

// Tick publishes a tick to the core.
func (b *Bridge) Tick(deltaSeconds float32) {
	b.mut.Lock()
	defer b.mut.Unlock()
	if b.core != nil {
		b.core.OnTick(deltaSeconds)
	}
}

// RunTicks publishes a tick every tick interval until ctx is done or the
// bridge shuts down.
func (b *Bridge) RunTicks(ctx context.Context) {
	if b.tickInterval <= 0 {
		return
	}
	last := b.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.quit:
			return
		case now := <-b.clock.After(b.tickInterval):
			b.Tick(float32(now.Sub(last).Seconds()))
			last = now
		}
	}
}

// Serve accepts host connections on addr until ctx is done or ShutDown is
// called.
func (b *Bridge) Serve(ctx context.Context, addr string) error {
	listenConfig := net.ListenConfig{
		KeepAlive: 200 * time.Millisecond,
	}
	listener, err := listenConfig.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	b.listener.Store(listener)
	b.logger.Info("listening for host connections", "addr", listener.Addr().String())

	go b.RunTicks(ctx)
	go func() {
		select {
		case <-ctx.Done():
			b.ShutDown()
		case <-b.quit:
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-b.quit:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			b.logger.Warn("accept failed", "error", err)
			continue
		}
		go b.HandleConnection(conn)
	}
}

// ShutDown closes the listener, stops the tick loop and publishes the
// shutdown event unless the host already sent SHUTDOWN.
func (b *Bridge) ShutDown() {
	b.stop.Do(func() {
		close(b.quit)
		if listener, ok := b.listener.Load().(net.Listener); ok {
			b.logger.Info("closing listener")
			if err := listener.Close(); err != nil {
				b.logger.Warn("listener close", "error", err)
			}
		}
	})

	b.mut.Lock()
	defer b.mut.Unlock()
	b.shutdownCore()
}

// shutdownCore publishes the shutdown event once. The caller holds mut.
func (b *Bridge) shutdownCore() {
	if b.core == nil || b.closed {
		return
	}
	b.closed = true
	b.core.OnShutdown()
}

// HandleConnection reads commands from conn until it is closed.
func (b *Bridge) HandleConnection(conn net.Conn) {
	logger := b.logger.With("conn", uuid.New().String())
	logger.Info("host connected", "remote", conn.RemoteAddr().String())

	defer func() {
		logger.Info("host disconnected")
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Debug("close connection", "error", err)
		}
	}()

	c := resp.NewConn(conn)
	for {
		v, _, err := c.ReadValue()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				logger.Warn("read failed", "error", err)
			}
			return
		}
		if v.Type() != resp.Array || len(v.Array()) == 0 {
			if err = c.WriteError(errors.New("ERR expected a command array")); err != nil {
				return
			}
			continue
		}
		if err = c.WriteValue(b.handle(v.Array())); err != nil {
			logger.Warn("write failed", "error", err)
			return
		}
	}
}

func wrongArgs(command string) resp.Value {
	return resp.ErrorValue(fmt.Errorf("ERR wrong number of arguments for '%s' command", strings.ToLower(command)))
}

func (b *Bridge) handle(args []resp.Value) resp.Value {
	command := strings.ToUpper(args[0].String())
	params := args[1:]

	b.mut.Lock()
	defer b.mut.Unlock()

	if b.core == nil && command != "PING" {
		return resp.ErrorValue(errors.New("ERR core not ready"))
	}

	switch command {
	case "PING":
		return resp.SimpleStringValue("PONG")

	case "JOIN":
		if len(params) != 2 {
			return wrongArgs(command)
		}
		id := internal.Identity(params[0].String())
		p := b.find(id)
		if p == nil {
			p = &player{id: id, bridge: b}
			b.players = append(b.players, p)
		}
		p.name = params[1].String()
		b.core.OnPlayerJoin(p)
		return resp.SimpleStringValue("OK")

	case "LEAVE":
		if len(params) != 1 {
			return wrongArgs(command)
		}
		p := b.find(internal.Identity(params[0].String()))
		if p == nil {
			return resp.ErrorValue(fmt.Errorf("ERR %s: %v", params[0].String(), ErrUnknownPlayer))
		}
		b.core.OnPlayerLeave(p)
		b.players = slices.DeleteFunc(b.players, func(q *player) bool { return q == p })
		return resp.SimpleStringValue("OK")

	case "TICK":
		if len(params) != 1 {
			return wrongArgs(command)
		}
		delta, err := strconv.ParseFloat(params[0].String(), 32)
		if err != nil {
			return resp.ErrorValue(errors.New("ERR delta must be a number"))
		}
		b.core.OnTick(float32(delta))
		return resp.SimpleStringValue("OK")

	case "SHUTDOWN":
		b.shutdownCore()
		return resp.SimpleStringValue("OK")

	case "CHAT":
		if len(params) != 2 {
			return wrongArgs(command)
		}
		p := b.find(internal.Identity(params[0].String()))
		if p == nil {
			return resp.ErrorValue(fmt.Errorf("ERR %s: %v", params[0].String(), ErrUnknownPlayer))
		}
		if b.core.OnChatLine(p, params[1].String()) {
			return resp.IntegerValue(1)
		}
		return resp.IntegerValue(0)

	case "MESSAGE":
		if len(params) != 4 {
			return wrongArgs(command)
		}
		p := b.find(internal.Identity(params[0].String()))
		if p == nil {
			return resp.ErrorValue(fmt.Errorf("ERR %s: %v", params[0].String(), ErrUnknownPlayer))
		}
		opcode, err := strconv.ParseUint(params[2].String(), 10, 16)
		if err != nil {
			return resp.ErrorValue(errors.New("ERR opcode must be an unsigned 16-bit integer"))
		}
		return resp.IntegerValue(b.core.OnMessage(p, params[1].String(), uint16(opcode), params[3].Bytes()))

	case "POLL":
		actions := b.outbox
		b.outbox = nil
		if actions == nil {
			actions = []resp.Value{}
		}
		return resp.ArrayValue(actions)
	}

	return resp.ErrorValue(fmt.Errorf("ERR unknown command '%s'", args[0].String()))
}
