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

package router

import (
	"slices"

	"github.com/gobwas/glob"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/buffer"
)

// MessageHandler receives one binary message. payload is the handler's own
// copy with the read cursor at the start.
type MessageHandler func(sender internal.Player, opcode uint16, payload *buffer.Buffer) error

type HandlerID uint64

type handler struct {
	id     HandlerID
	source string
	fn     MessageHandler
}

// Channel holds the ordered handlers registered under one channel name or,
// when pattern is set, under one glob pattern.
type Channel struct {
	name     string
	pattern  glob.Glob
	handlers []handler
}

func WithName(name string) func(channel *Channel) {
	return func(channel *Channel) {
		channel.name = name
	}
}

func WithPattern(pattern string) func(channel *Channel) {
	return func(channel *Channel) {
		channel.name = pattern
		channel.pattern = glob.MustCompile(pattern)
	}
}

func NewChannel(options ...func(channel *Channel)) *Channel {
	channel := &Channel{
		name:     "",
		pattern:  nil,
		handlers: make([]handler, 0),
	}

	for _, option := range options {
		option(channel)
	}

	return channel
}

func (ch *Channel) Name() string {
	return ch.name
}

func (ch *Channel) Pattern() glob.Glob {
	return ch.pattern
}

// Matches reports whether a message sent on name reaches this channel.
func (ch *Channel) Matches(name string) bool {
	if ch.pattern != nil {
		return ch.pattern.Match(name)
	}
	return ch.name == name
}

func (ch *Channel) Add(id HandlerID, source string, fn MessageHandler) {
	ch.handlers = append(ch.handlers, handler{id: id, source: source, fn: fn})
}

func (ch *Channel) Remove(id HandlerID) bool {
	n := len(ch.handlers)
	ch.handlers = slices.DeleteFunc(ch.handlers, func(h handler) bool { return h.id == id })
	return len(ch.handlers) != n
}

func (ch *Channel) RemoveSource(source string) int {
	n := len(ch.handlers)
	ch.handlers = slices.DeleteFunc(ch.handlers, func(h handler) bool { return h.source == source })
	return n - len(ch.handlers)
}

func (ch *Channel) Len() int {
	return len(ch.handlers)
}

func (ch *Channel) snapshot() []handler {
	return slices.Clone(ch.handlers)
}
