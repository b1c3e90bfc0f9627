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

// Package router delivers binary messages to the handlers registered for
// their channel.
//
// A channel may have any number of handlers and every one of them receives
// every message sent on it. Messages on a channel nobody listens to are
// dropped. The router is not safe for concurrent use.
package router

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/buffer"
	"github.com/hogwarp/scripting/internal/events"
)

var ErrInvalidRegistration = errors.New("invalid message handler registration")

type Router struct {
	nextID   HandlerID
	channels map[string]*Channel
	patterns []*Channel
	logger   hclog.Logger
}

func WithLogger(logger hclog.Logger) func(r *Router) {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRouter(options ...func(r *Router)) *Router {
	r := &Router{
		channels: make(map[string]*Channel),
		patterns: make([]*Channel, 0),
		logger:   hclog.NewNullLogger(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// RegisterChannel adds fn to the handlers of the named channel. source names
// the owning extension.
func (r *Router) RegisterChannel(name, source string, fn MessageHandler) (HandlerID, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty channel name", ErrInvalidRegistration)
	}
	if fn == nil {
		return 0, fmt.Errorf("%w: nil handler for channel %q", ErrInvalidRegistration, name)
	}
	ch, ok := r.channels[name]
	if !ok {
		ch = NewChannel(WithName(name))
		r.channels[name] = ch
	}
	r.nextID++
	ch.Add(r.nextID, source, fn)
	return r.nextID, nil
}

// RegisterPattern adds fn to every channel whose name matches the glob pattern.
// Pattern handlers run after the handlers registered for the exact name.
func (r *Router) RegisterPattern(pattern, source string, fn MessageHandler) (HandlerID, error) {
	if fn == nil {
		return 0, fmt.Errorf("%w: nil handler for pattern %q", ErrInvalidRegistration, pattern)
	}
	if _, err := glob.Compile(pattern); err != nil {
		return 0, fmt.Errorf("%w: pattern %q: %v", ErrInvalidRegistration, pattern, err)
	}
	idx := slices.IndexFunc(r.patterns, func(ch *Channel) bool { return ch.Name() == pattern })
	var ch *Channel
	if idx == -1 {
		ch = NewChannel(WithPattern(pattern))
		r.patterns = append(r.patterns, ch)
	} else {
		ch = r.patterns[idx]
	}
	r.nextID++
	ch.Add(r.nextID, source, fn)
	return r.nextID, nil
}

// UnregisterChannel removes handler id from the channel or pattern registered as name.
func (r *Router) UnregisterChannel(name string, id HandlerID) bool {
	if ch, ok := r.channels[name]; ok && ch.Remove(id) {
		if ch.Len() == 0 {
			delete(r.channels, name)
		}
		return true
	}
	for i, ch := range r.patterns {
		if ch.Name() == name && ch.Remove(id) {
			if ch.Len() == 0 {
				r.patterns = slices.Delete(r.patterns, i, i+1)
			}
			return true
		}
	}
	return false
}

// UnregisterSource removes every handler owned by source.
func (r *Router) UnregisterSource(source string) int {
	removed := 0
	for name, ch := range r.channels {
		removed += ch.RemoveSource(source)
		if ch.Len() == 0 {
			delete(r.channels, name)
		}
	}
	for _, ch := range r.patterns {
		removed += ch.RemoveSource(source)
	}
	r.patterns = slices.DeleteFunc(r.patterns, func(ch *Channel) bool { return ch.Len() == 0 })
	return removed
}

// Channels returns the sorted names of channels and patterns with handlers.
func (r *Router) Channels() []string {
	res := make([]string, 0, len(r.channels)+len(r.patterns))
	for name := range r.channels {
		res = append(res, name)
	}
	for _, ch := range r.patterns {
		res = append(res, ch.Name())
	}
	slices.Sort(res)
	return slices.Compact(res)
}

// Route delivers payload to every handler of channel and returns how many were
// invoked. A handler failure is logged and does not stop the others.
func (r *Router) Route(sender internal.Player, channel string, opcode uint16, payload *buffer.Buffer) int {
	if payload == nil {
		payload = buffer.FromBytes(nil)
	}

	var targets []handler
	if ch, ok := r.channels[channel]; ok {
		targets = append(targets, ch.snapshot()...)
	}
	for _, ch := range r.patterns {
		if ch.Matches(channel) {
			targets = append(targets, ch.snapshot()...)
		}
	}

	if len(targets) == 0 {
		r.logger.Debug("dropped message", "channel", channel, "opcode", opcode, "bytes", payload.Len())
		return 0
	}

	for _, h := range targets {
		source := fmt.Sprintf("channel %q handler %d (%s)", channel, h.id, h.source)
		data := payload.Clone()
		_ = events.Isolate(r.logger, source, func() error {
			return h.fn(sender, opcode, data)
		})
	}
	return len(targets)
}
