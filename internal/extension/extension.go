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

// Package extension defines how compiled-in extensions plug into the server.
package extension

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

// Extension is a unit of functionality registered with the server at startup.
type Extension struct {
	Name        string
	Description string
	// Initialize registers the extension's commands, message handlers and
	// event subscriptions. A returned error or a panic is logged and the
	// server carries on with the remaining extensions.
	Initialize func(host Host) error
}

// Host is the server as seen by one extension. Registrations made through it
// are owned by that extension.
type Host interface {
	// Name returns the name of the extension this host was handed to.
	Name() string
	Context() context.Context
	Config() config.Config
	// Logger is named after the extension.
	Logger() hclog.Logger
	Clock() clock.Clock

	// RegisterCommand registers cmd. An empty cmd.Module is set to the extension name.
	RegisterCommand(cmd internal.Command) error
	UnregisterCommand(name string) bool
	Commands() []internal.Command
	// CommandPrefix is the string that marks a chat line as a command.
	CommandPrefix() string

	RegisterMessageHandler(channel string, handler router.MessageHandler) (router.HandlerID, error)
	RegisterMessagePattern(pattern string, handler router.MessageHandler) (router.HandlerID, error)
	UnregisterMessageHandler(channel string, id router.HandlerID) bool

	// Events returns the server's event hub. Pass Name() as the source when subscribing.
	Events() *events.Hub

	IsOp(id internal.Identity) bool
	Operators() *auth.Store

	Players() []internal.Player
	// NewBuffer returns an empty buffer with the configured message capacity.
	NewBuffer() *buffer.Buffer
	SendTo(player internal.Player, channel string, opcode uint16, payload *buffer.Buffer) error

	// DataFile returns a document stored under the extension's data directory.
	DataFile(name string) *persist.File
}
