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

// Package mock provides in-memory players and a player manager that record
// everything sent to them.
package mock

import (
	"slices"

	"github.com/hogwarp/scripting/internal"
)

type Player struct {
	id       internal.Identity
	name     string
	Messages []string
	Kicked   int
}

func NewPlayer(id, name string) *Player {
	return &Player{id: internal.Identity(id), name: name}
}

func (p *Player) ID() internal.Identity {
	return p.id
}

func (p *Player) Name() string {
	return p.name
}

func (p *Player) SendMessage(text string) {
	p.Messages = append(p.Messages, text)
}

func (p *Player) Kick() {
	p.Kicked++
}

// Last returns the most recent message or "".
func (p *Player) Last() string {
	if len(p.Messages) == 0 {
		return ""
	}
	return p.Messages[len(p.Messages)-1]
}

func (p *Player) Clear() {
	p.Messages = nil
}

// Sent is one payload delivered through PlayerManager.SendTo.
type Sent struct {
	Player  internal.Identity
	Channel string
	Opcode  uint16
	Payload []byte
}

type PlayerManager struct {
	players []*Player
	Sent    []Sent
	SendErr error
}

func NewPlayerManager(players ...*Player) *PlayerManager {
	return &PlayerManager{players: players}
}

func (m *PlayerManager) Add(p *Player) {
	m.players = append(m.players, p)
}

func (m *PlayerManager) Remove(id internal.Identity) {
	m.players = slices.DeleteFunc(m.players, func(p *Player) bool { return p.ID() == id })
}

func (m *PlayerManager) Players() []internal.Player {
	res := make([]internal.Player, 0, len(m.players))
	for _, p := range m.players {
		res = append(res, p)
	}
	return res
}

func (m *PlayerManager) SendTo(player internal.Player, channel string, opcode uint16, payload []byte) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent = append(m.Sent, Sent{
		Player:  player.ID(),
		Channel: channel,
		Opcode:  opcode,
		Payload: slices.Clone(payload),
	})
	return nil
}
