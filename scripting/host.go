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
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/auth"
	"github.com/hogwarp/scripting/internal/buffer"
	"github.com/hogwarp/scripting/internal/clock"
	"github.com/hogwarp/scripting/internal/config"
	"github.com/hogwarp/scripting/internal/events"
	"github.com/hogwarp/scripting/internal/persist"
	"github.com/hogwarp/scripting/internal/router"
)

// host is the extension.Host handed to one extension.
type host struct {
	server *Server
	name   string
	logger hclog.Logger
}

func (server *Server) newHost(name string) *host {
	return &host{
		server: server,
		name:   name,
		logger: server.logger.Named(name),
	}
}

func (h *host) Name() string {
	return h.name
}

func (h *host) Context() context.Context {
	return h.server.context
}

func (h *host) Config() config.Config {
	return h.server.config
}

func (h *host) Logger() hclog.Logger {
	return h.logger
}

func (h *host) Clock() clock.Clock {
	return h.server.clock
}

// RegisterCommand registers cmd as owned by the calling extension, whatever
// Module it names.
func (h *host) RegisterCommand(cmd internal.Command) error {
	cmd.Module = h.name
	return h.server.RegisterCommand(cmd)
}

func (h *host) UnregisterCommand(name string) bool {
	return h.server.UnregisterCommand(name)
}

func (h *host) Commands() []internal.Command {
	return h.server.Commands()
}

func (h *host) CommandPrefix() string {
	return h.server.dispatcher.Prefix()
}

func (h *host) RegisterMessageHandler(channel string, handler router.MessageHandler) (router.HandlerID, error) {
	return h.server.router.RegisterChannel(channel, h.name, handler)
}

func (h *host) RegisterMessagePattern(pattern string, handler router.MessageHandler) (router.HandlerID, error) {
	return h.server.router.RegisterPattern(pattern, h.name, handler)
}

func (h *host) UnregisterMessageHandler(channel string, id router.HandlerID) bool {
	return h.server.router.UnregisterChannel(channel, id)
}

func (h *host) Events() *events.Hub {
	return h.server.hub
}

func (h *host) IsOp(id internal.Identity) bool {
	return h.server.IsOp(id)
}

func (h *host) Operators() *auth.Store {
	return h.server.operators
}

func (h *host) Players() []internal.Player {
	return h.server.players.Players()
}

func (h *host) NewBuffer() *buffer.Buffer {
	return buffer.New(h.server.config.BufferCapacity)
}

func (h *host) SendTo(player internal.Player, channel string, opcode uint16, payload *buffer.Buffer) error {
	var data []byte
	if payload != nil {
		data = payload.Bytes()
	}
	return h.server.players.SendTo(player, channel, opcode, data)
}

func (h *host) DataFile(name string) *persist.File {
	return h.server.extensionFile(h.name, name)
}
