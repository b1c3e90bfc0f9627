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

package events

import (
	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal"
)

type TickFunc func(deltaSeconds float32) error
type ShutdownFunc func() error
type PlayerFunc func(player internal.Player) error

// ChatFunc receives a chat line that is not a command. Setting *cancel to true
// suppresses the default broadcast; setting it to false restores it.
type ChatFunc func(player internal.Player, message string, cancel *bool) error

// Hub holds one bus per host event kind.
type Hub struct {
	Tick        *Bus[TickFunc]
	Shutdown    *Bus[ShutdownFunc]
	PlayerJoin  *Bus[PlayerFunc]
	PlayerLeave *Bus[PlayerFunc]
	Chat        *Bus[ChatFunc]
}

func NewHub(logger hclog.Logger) *Hub {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Hub{
		Tick:        NewBus[TickFunc]("tick", logger),
		Shutdown:    NewBus[ShutdownFunc]("shutdown", logger),
		PlayerJoin:  NewBus[PlayerFunc]("player-join", logger),
		PlayerLeave: NewBus[PlayerFunc]("player-leave", logger),
		Chat:        NewBus[ChatFunc]("chat", logger),
	}
}

func (h *Hub) PublishTick(deltaSeconds float32) []Outcome {
	return h.Tick.Publish(func(fn TickFunc) error {
		return fn(deltaSeconds)
	})
}

func (h *Hub) PublishShutdown() []Outcome {
	return h.Shutdown.Publish(func(fn ShutdownFunc) error {
		return fn()
	})
}

func (h *Hub) PublishPlayerJoin(player internal.Player) []Outcome {
	return h.PlayerJoin.Publish(func(fn PlayerFunc) error {
		return fn(player)
	})
}

func (h *Hub) PublishPlayerLeave(player internal.Player) []Outcome {
	return h.PlayerLeave.Publish(func(fn PlayerFunc) error {
		return fn(player)
	})
}

// PublishChat threads one cancel flag through every chat subscriber and
// returns its final value. Subscribers cannot stop the loop, so the last one
// to write the flag decides.
func (h *Hub) PublishChat(player internal.Player, message string) bool {
	cancel := false
	h.Chat.Publish(func(fn ChatFunc) error {
		return fn(player, message, &cancel)
	})
	return cancel
}

// UnsubscribeSource removes every subscription owned by source from all buses.
func (h *Hub) UnsubscribeSource(source string) int {
	return h.Tick.UnsubscribeSource(source) +
		h.Shutdown.UnsubscribeSource(source) +
		h.PlayerJoin.UnsubscribeSource(source) +
		h.PlayerLeave.UnsubscribeSource(source) +
		h.Chat.UnsubscribeSource(source)
}
