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

// Package moderation lets operators kick, ban and mute players.
package moderation

import (
	"context"
	"maps"
	"slices"

	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/constants"
	"github.com/hogwarp/scripting/internal/extension"
	"github.com/hogwarp/scripting/internal/persist"
)

const (
	MutedFile  = "muted.json"
	BannedFile = "banned.json"
)

// list is a persisted set of identities.
type list struct {
	name    string
	file    *persist.File
	members map[internal.Identity]struct{}
}

func newList(name string, file *persist.File) *list {
	return &list{name: name, file: file, members: make(map[internal.Identity]struct{})}
}

func (l *list) load(ctx context.Context, host extension.Host) error {
	var ids []internal.Identity
	ok, err := l.file.Load(&ids)
	if err != nil {
		return err
	}
	if !ok {
		host.Logger().Warn("no list file exists, creating a new one", "list", l.name, "path", l.file.Path())
		return l.save(ctx)
	}
	for _, id := range ids {
		l.members[id] = struct{}{}
	}
	host.Logger().Info("loaded list", "list", l.name, "count", len(l.members))
	return nil
}

func (l *list) save(ctx context.Context) error {
	return l.file.Save(ctx, l.sorted())
}

func (l *list) sorted() []internal.Identity {
	ids := slices.AppendSeq(make([]internal.Identity, 0, len(l.members)), maps.Keys(l.members))
	slices.Sort(ids)
	return ids
}

func (l *list) contains(id internal.Identity) bool {
	_, ok := l.members[id]
	return ok
}

func (l *list) add(id internal.Identity) {
	l.members[id] = struct{}{}
}

func (l *list) remove(id internal.Identity) bool {
	if !l.contains(id) {
		return false
	}
	delete(l.members, id)
	return true
}

type Moderation struct {
	host   extension.Host
	muted  *list
	banned *list
}

// Extension returns the moderation extension.
func Extension() extension.Extension {
	return extension.Extension{
		Name:        constants.ModerationModule,
		Description: "Manage Your Players & Server",
		Initialize: func(host extension.Host) error {
			_, err := New(host)
			return err
		},
	}
}

// New loads the mute and ban lists and registers the moderation commands
// and event subscriptions with host.
func New(host extension.Host) (*Moderation, error) {
	m := &Moderation{
		host:   host,
		muted:  newList("muted", host.DataFile(MutedFile)),
		banned: newList("banned", host.DataFile(BannedFile)),
	}
	if err := m.muted.load(host.Context(), host); err != nil {
		return nil, err
	}
	if err := m.banned.load(host.Context(), host); err != nil {
		return nil, err
	}

	for _, cmd := range m.Commands() {
		if err := host.RegisterCommand(cmd); err != nil {
			return nil, err
		}
	}
	host.Events().PlayerJoin.Subscribe(host.Name(), m.onPlayerJoin)
	host.Events().Chat.Subscribe(host.Name(), m.onChat)
	return m, nil
}

func (m *Moderation) IsMuted(id internal.Identity) bool {
	return m.muted.contains(id)
}

func (m *Moderation) IsBanned(id internal.Identity) bool {
	return m.banned.contains(id)
}

func (m *Moderation) onPlayerJoin(player internal.Player) error {
	if m.banned.contains(player.ID()) {
		m.host.Logger().Info("kicking banned player", "player", player.ID(), "name", player.Name())
		player.Kick()
	}
	return nil
}

func (m *Moderation) onChat(player internal.Player, _ string, cancel *bool) error {
	if !m.muted.contains(player.ID()) {
		return nil
	}
	player.SendMessage("You are muted.")
	*cancel = true
	return nil
}
