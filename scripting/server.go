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
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/auth"
	"github.com/hogwarp/scripting/internal/buffer"
	"github.com/hogwarp/scripting/internal/clock"
	"github.com/hogwarp/scripting/internal/commands"
	"github.com/hogwarp/scripting/internal/config"
	"github.com/hogwarp/scripting/internal/constants"
	"github.com/hogwarp/scripting/internal/events"
	"github.com/hogwarp/scripting/internal/extension"
	"github.com/hogwarp/scripting/internal/modules/core"
	"github.com/hogwarp/scripting/internal/persist"
	"github.com/hogwarp/scripting/internal/router"
)

type Server struct {
	// clock is an implementation of a time interface that allows mocking of time functions during testing.
	clock clock.Clock

	// config holds the server configuration variables.
	config config.Config

	context context.Context

	logger hclog.Logger

	// players is the host's view of connected players.
	players internal.PlayerManager

	registry   *commands.Registry
	dispatcher *commands.Dispatcher
	router     *router.Router
	hub        *events.Hub

	operators *auth.Store
	persister auth.Persister

	// extensions are initialised in order after the built-in commands.
	extensions []extension.Extension
	// initialised holds the names of extensions whose Initialize returned without fault.
	initialised []string

	// scripts maps a script module path to its loaded VM.
	scripts map[string]*script
}

// WithContext is an option for the NewServer function that allows you to
// configure a custom context object to be passed to every command handler.
// If you don't provide this option, the server uses context.Background().
func WithContext(ctx context.Context) func(server *Server) {
	return func(server *Server) {
		server.context = ctx
	}
}

// WithConfig is an option for the NewServer function that allows you to pass a
// custom configuration to the server.
// If not specified, the server will use the default configuration from config.DefaultConfig().
func WithConfig(config config.Config) func(server *Server) {
	return func(server *Server) {
		server.config = config
	}
}

// WithLogger sets the root logger. Extensions receive loggers named after them.
func WithLogger(logger hclog.Logger) func(server *Server) {
	return func(server *Server) {
		server.logger = logger
	}
}

func WithClock(clock clock.Clock) func(server *Server) {
	return func(server *Server) {
		server.clock = clock
	}
}

// WithPlayerManager connects the server to the host's player list.
func WithPlayerManager(players internal.PlayerManager) func(server *Server) {
	return func(server *Server) {
		server.players = players
	}
}

// WithExtensions appends extensions to be initialised by NewServer.
func WithExtensions(extensions ...extension.Extension) func(server *Server) {
	return func(server *Server) {
		server.extensions = append(server.extensions, extensions...)
	}
}

// WithPersister replaces the file that stores the operator list.
func WithPersister(persister auth.Persister) func(server *Server) {
	return func(server *Server) {
		server.persister = persister
	}
}

// NewServer creates a new Server instance.
// It loads the operator list, registers the built-in commands, initialises the
// extensions and loads the script modules listed in the configuration.
// Extension and script failures are logged and skipped. Only a failure to
// load the operator list is returned.
func NewServer(options ...func(server *Server)) (*Server, error) {
	server := &Server{
		clock:   clock.NewClock(),
		context: context.Background(),
		config:  config.DefaultConfig(),
		scripts: make(map[string]*script),
	}

	for _, option := range options {
		option(server)
	}

	if server.logger == nil {
		server.logger = hclog.New(&hclog.LoggerOptions{
			Name:  "scripting",
			Level: hclog.LevelFromString(server.config.LogLevel),
		})
	}
	if server.players == nil {
		server.players = noPlayers{}
	}
	if server.persister == nil {
		server.persister = auth.NewFilePersister(server.dataFile(server.config.DataPath(server.config.OpsFile)))
	}

	server.hub = events.NewHub(server.logger.Named("events"))
	server.registry = commands.NewRegistry()
	server.router = router.NewRouter(router.WithLogger(server.logger.Named("router")))
	server.operators = auth.NewStore(
		auth.WithPersister(server.persister),
		auth.WithLogger(server.logger.Named("auth")),
	)
	server.dispatcher = commands.NewDispatcher(
		server.registry,
		server.operators,
		server.hub,
		commands.WithPrefix(server.config.CommandPrefix),
		commands.WithLogger(server.logger.Named("commands")),
	)

	if err := server.operators.Load(server.context); err != nil {
		return nil, fmt.Errorf("load operators: %w", err)
	}

	server.initExtension(core.Extension())
	for _, ext := range server.extensions {
		server.initExtension(ext)
	}
	server.logger.Info("extensions initialised", "count", len(server.initialised))

	// Load script modules from config
	for _, path := range server.config.Modules {
		if err := server.LoadModule(path); err != nil {
			server.logger.Error("could not load module", "path", path, "error", err)
			continue
		}
		server.logger.Info("loaded module", "path", path)
	}

	server.logger.Info("server initialised", "commands", server.registry.Len())
	return server, nil
}

func (server *Server) initExtension(ext extension.Extension) {
	if ext.Initialize == nil {
		server.logger.Warn("extension has no initializer", "extension", ext.Name)
		return
	}
	host := server.newHost(ext.Name)
	err := events.Isolate(server.logger, fmt.Sprintf("extension %q initialise", ext.Name), func() error {
		return ext.Initialize(host)
	})
	if err != nil {
		// Drop whatever the extension registered before it failed.
		server.UnloadModule(ext.Name)
		return
	}
	server.initialised = append(server.initialised, ext.Name)
	server.logger.Info("loaded extension", "extension", ext.Name, "description", ext.Description)
}

func (server *Server) dataFile(path string) *persist.File {
	return persist.NewFile(
		path,
		persist.WithRetries(server.config.FlushRetries),
		persist.WithBackoff(server.config.FlushBackoff),
		persist.WithLogger(server.logger.Named("persist")),
	)
}

func (server *Server) extensionFile(extension, name string) *persist.File {
	return server.dataFile(server.config.DataPath(filepath.Join(constants.PluginsDir, extension, name)))
}

// OnTick publishes a tick to every tick subscriber.
func (server *Server) OnTick(deltaSeconds float32) {
	server.hub.PublishTick(deltaSeconds)
}

// OnShutdown publishes the shutdown event and releases script VMs.
func (server *Server) OnShutdown() {
	server.hub.PublishShutdown()
	for module := range server.scripts {
		server.UnloadModule(module)
	}
	server.logger.Info("server shut down")
}

func (server *Server) OnPlayerJoin(player internal.Player) {
	server.logger.Debug("player joined", "player", player.ID(), "name", player.Name())
	server.hub.PublishPlayerJoin(player)
}

func (server *Server) OnPlayerLeave(player internal.Player) {
	server.logger.Debug("player left", "player", player.ID(), "name", player.Name())
	server.hub.PublishPlayerLeave(player)
}

// OnChatLine handles one chat line and reports whether the host should
// suppress its default broadcast.
func (server *Server) OnChatLine(player internal.Player, text string) bool {
	consumed := false
	_ = events.Isolate(server.logger, "chat line", func() error {
		var err error
		consumed, err = server.dispatcher.Dispatch(server.context, player, text)
		if err != nil {
			server.logger.Debug("command not run", "player", player.ID(), "line", text, "error", err)
		}
		return nil
	})
	return consumed
}

// OnMessage routes a binary message to the handlers of channel and returns
// how many handlers received it.
func (server *Server) OnMessage(player internal.Player, channel string, opcode uint16, payload []byte) int {
	delivered := 0
	_ = events.Isolate(server.logger, "message", func() error {
		delivered = server.router.Route(player, channel, opcode, buffer.FromBytes(payload))
		return nil
	})
	return delivered
}

// RegisterCommand registers a command owned by cmd.Module.
func (server *Server) RegisterCommand(cmd internal.Command) error {
	if err := server.registry.Register(cmd); err != nil {
		return err
	}
	server.logger.Info("registered command", "module", cmd.Module, "command", cmd.Command)
	return nil
}

func (server *Server) UnregisterCommand(name string) bool {
	return server.registry.Unregister(name)
}

// Commands returns every registered command in registration order.
func (server *Server) Commands() []internal.Command {
	return server.registry.All()
}

func (server *Server) RegisterMessageHandler(channel, source string, handler router.MessageHandler) (router.HandlerID, error) {
	return server.router.RegisterChannel(channel, source, handler)
}

func (server *Server) UnregisterMessageHandler(channel string, id router.HandlerID) bool {
	return server.router.UnregisterChannel(channel, id)
}

func (server *Server) Events() *events.Hub {
	return server.hub
}

func (server *Server) IsOp(id internal.Identity) bool {
	return server.operators.IsPrivileged(id)
}

func (server *Server) Operators() *auth.Store {
	return server.operators
}

func (server *Server) Logger() hclog.Logger {
	return server.logger
}

// Extensions returns the names of the extensions that initialised successfully.
func (server *Server) Extensions() []string {
	return append([]string(nil), server.initialised...)
}

func (server *Server) GetServerInfo() internal.ServerInfo {
	return internal.ServerInfo{
		Server:   "scripting",
		Version:  constants.Version,
		Modules:  server.registry.Modules(),
		Commands: server.registry.Len(),
		Channels: server.router.Channels(),
	}
}

type noPlayers struct{}

func (noPlayers) Players() []internal.Player { return nil }

func (noPlayers) SendTo(internal.Player, string, uint16, []byte) error {
	return fmt.Errorf("no player manager configured")
}
