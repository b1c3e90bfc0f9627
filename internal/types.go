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

package internal

import (
	"context"
	"strings"
)

// Identity is the stable key of a player as handed over by the host.
// It is compared, never parsed.
type Identity string

// Player is the host's handle to a connected player.
type Player interface {
	ID() Identity
	Name() string
	// SendMessage delivers one line of chat text to this player only.
	SendMessage(text string)
	// Kick disconnects the player.
	Kick()
}

// PlayerManager is implemented by the host. It lists connected players and
// delivers binary payloads to them.
type PlayerManager interface {
	Players() []Player
	SendTo(player Player, channel string, opcode uint16, payload []byte) error
}

// FindPlayer returns the connected player whose identity or, failing that,
// whose name matches target.
func FindPlayer(players []Player, target string) (Player, bool) {
	for _, p := range players {
		if string(p.ID()) == target {
			return p, true
		}
	}
	for _, p := range players {
		if p.Name() == target {
			return p, true
		}
	}
	return nil, false
}

type Permission int

const (
	PermissionDefault Permission = iota
	PermissionOperator
)

func (p Permission) String() string {
	switch p {
	case PermissionOperator:
		return "operator"
	default:
		return "default"
	}
}

// ParsePermission accepts "default" and "operator" in any case.
func ParsePermission(s string) (Permission, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return PermissionDefault, true
	case "operator", "op":
		return PermissionOperator, true
	}
	return PermissionDefault, false
}

// Argument declares one positional argument of a command.
type Argument struct {
	Name        string
	Description string
	Required    bool
}

// ArgValue is the bound value of one argument for one invocation.
// Present is false when the caller did not supply a token.
type ArgValue struct {
	Raw     string
	Present bool
}

// Args maps argument names to their values for a single invocation.
// A fresh map is built on every dispatch.
type Args map[string]ArgValue

// Get returns the raw token bound to name and whether one was supplied.
func (a Args) Get(name string) (string, bool) {
	v, ok := a[name]
	if !ok || !v.Present {
		return "", false
	}
	return v.Raw, true
}

// String returns the raw token bound to name or "".
func (a Args) String(name string) string {
	s, _ := a.Get(name)
	return s
}

// HandlerFuncParams is the object passed to a command handler when a command is triggered.
type HandlerFuncParams struct {
	// Context is the context of the server that dispatched the command.
	Context context.Context
	// Player is the player that typed the command. Replies go through Player.SendMessage.
	Player Player
	// Command holds the tokens of the chat line. Command[0] is the command name without the prefix.
	Command []string
	// Args holds the bound values of the declared arguments.
	Args Args
	// IsOp reports whether an identity holds operator rank.
	IsOp func(id Identity) bool
}

// HandlerFunc runs a command. A returned error or a panic is logged by the
// dispatcher and does not stop the other handlers of the same command.
type HandlerFunc func(params HandlerFuncParams) error

type Command struct {
	Command     string        // The command keyword typed after the prefix (e.g. "ban"). Case-sensitive.
	Module      string        // The extension that owns this command.
	Description string        // One line shown by /help.
	Permission  Permission    // Who may run the command.
	Arguments   []Argument    // Positional arguments in declared order.
	Handlers    []HandlerFunc // Every handler runs on each invocation.
}

// Usage renders the usage line of the command for the given prefix,
// e.g. "/ban player_id".
func (c Command) Usage(prefix string) string {
	parts := []string{prefix + c.Command}
	for _, arg := range c.Arguments {
		parts = append(parts, arg.Name)
	}
	return strings.Join(parts, " ")
}

// ServerInfo holds information about the running core.
type ServerInfo struct {
	Server   string
	Version  string
	Modules  []string
	Commands int
	Channels []string
}
