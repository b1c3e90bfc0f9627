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

package commands

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/constants"
	"github.com/hogwarp/scripting/internal/events"
)

// Authorizer reports whether an identity holds operator rank.
type Authorizer interface {
	IsPrivileged(id internal.Identity) bool
}

type Dispatcher struct {
	registry *Registry
	auth     Authorizer
	hub      *events.Hub
	prefix   string
	logger   hclog.Logger
}

// WithPrefix sets the string that marks a chat line as a command.
func WithPrefix(prefix string) func(d *Dispatcher) {
	return func(d *Dispatcher) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

func WithLogger(logger hclog.Logger) func(d *Dispatcher) {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher builds a dispatcher over registry. Lines without the prefix
// are published on hub's chat bus. A nil auth treats nobody as privileged.
func NewDispatcher(registry *Registry, auth Authorizer, hub *events.Hub, options ...func(d *Dispatcher)) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		auth:     auth,
		hub:      hub,
		prefix:   constants.DefaultCommandPrefix,
		logger:   hclog.NewNullLogger(),
	}
	for _, option := range options {
		option(d)
	}
	return d
}

func (d *Dispatcher) Prefix() string {
	return d.prefix
}

func (d *Dispatcher) isOp(id internal.Identity) bool {
	return d.auth != nil && d.auth.IsPrivileged(id)
}

// Dispatch handles one chat line typed by player.
//
// A line without the command prefix is plain chat: it is published to the
// chat subscribers and consumed reports whether one of them cancelled it.
// A line with the prefix is always consumed. The returned error describes
// why a command did not run, or carries the handler faults when none of the
// command's handlers completed. Everything the player needs to know has
// already been sent to them; the error is for logging.
func (d *Dispatcher) Dispatch(ctx context.Context, player internal.Player, line string) (bool, error) {
	if !strings.HasPrefix(line, d.prefix) {
		if d.hub == nil {
			return false, nil
		}
		return d.hub.PublishChat(player, line), nil
	}

	tokens := strings.Fields(line)
	name := ""
	if len(tokens) > 0 {
		name = strings.TrimPrefix(tokens[0], d.prefix)
		tokens[0] = name
	} else {
		tokens = []string{name}
	}

	cmd, ok := d.registry.Get(name)
	if !ok {
		player.SendMessage(fmt.Sprintf(constants.UnknownCommandResponse, d.prefix))
		return true, &NotFoundError{Command: name}
	}

	if cmd.Permission == internal.PermissionOperator && !d.isOp(player.ID()) {
		player.SendMessage(constants.NotAllowedResponse)
		return true, &PermissionError{Command: name, Identity: player.ID()}
	}

	args := make(internal.Args, len(cmd.Arguments))
	var missing []string
	for i, arg := range cmd.Arguments {
		if i+1 < len(tokens) {
			args[arg.Name] = internal.ArgValue{Raw: tokens[i+1], Present: true}
			continue
		}
		args[arg.Name] = internal.ArgValue{}
		if arg.Required {
			missing = append(missing, arg.Name)
		}
	}
	if len(missing) > 0 {
		usage := cmd.Usage(d.prefix)
		player.SendMessage(fmt.Sprintf(constants.UsageResponse, usage))
		return true, &ValidationError{Command: name, Missing: missing, Usage: usage}
	}

	d.logger.Debug("dispatching command", "command", name, "module", cmd.Module, "player", player.ID())

	var faults []error
	for i, handler := range cmd.Handlers {
		params := internal.HandlerFuncParams{
			Context: ctx,
			Player:  player,
			Command: slices.Clone(tokens),
			Args:    maps.Clone(args),
			IsOp:    d.isOp,
		}
		source := fmt.Sprintf("command %q handler %d (%s)", name, i, cmd.Module)
		if err := events.Isolate(d.logger, source, func() error { return handler(params) }); err != nil {
			faults = append(faults, err)
		}
	}
	if len(faults) == len(cmd.Handlers) {
		return true, errors.Join(faults...)
	}
	return true, nil
}
