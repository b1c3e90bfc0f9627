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

// Package racing lets operators build broom races out of rings and players
// race them against each other.
package racing

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/buffer"
	"github.com/hogwarp/scripting/internal/constants"
	"github.com/hogwarp/scripting/internal/extension"
	"github.com/hogwarp/scripting/internal/persist"
)

// Channel is the message channel shared with the client-side race builder.
const Channel = "RaceBuilder"

const RacesFile = "races.json"

const (
	// OpcodeSpawnRace carries a race definition: a name followed by its rings.
	// Clients send it to save a race, the server sends it to start one.
	OpcodeSpawnRace uint16 = 32
	// OpcodeListRaces asks for the race list. The reply carries whether the
	// player is an operator and the race names.
	OpcodeListRaces uint16 = 33
	// OpcodeSelectRace carries an int32 race index. Sent empty by the server
	// it opens the race builder.
	OpcodeSelectRace uint16 = 34
	// OpcodeRaceTime carries a race name and the player's finishing time.
	OpcodeRaceTime uint16 = 35
	// OpcodeDeleteRace carries an int32 race index. Operators only.
	OpcodeDeleteRace uint16 = 36
)

// StaleAfter is how long a race may wait for /startrace before it is dropped.
const StaleAfter = 10 * time.Minute

type Race struct {
	Name  string             `json:"Name" yaml:"Name"`
	Rings []buffer.Transform `json:"Rings" yaml:"Rings"`
}

type activeRace struct {
	name      string
	players   []internal.Player // players[0] hosts the race.
	times     map[internal.Identity]buffer.Timespan
	createdAt time.Time
	started   bool
}

func (a *activeRace) index(id internal.Identity) int {
	return slices.IndexFunc(a.players, func(p internal.Player) bool { return p.ID() == id })
}

type Racing struct {
	host   extension.Host
	file   *persist.File
	races  []Race
	active []*activeRace
}

// Extension returns the broom racing extension.
func Extension() extension.Extension {
	return extension.Extension{
		Name:        constants.RacingModule,
		Description: "Build Races & Race with others",
		Initialize: func(host extension.Host) error {
			_, err := New(host)
			return err
		},
	}
}

// New loads the saved races and registers the racing commands, the message
// handler and the event subscriptions with host.
func New(host extension.Host) (*Racing, error) {
	r := &Racing{
		host: host,
		file: host.DataFile(RacesFile),
	}
	if err := r.load(host.Context()); err != nil {
		return nil, err
	}

	if _, err := host.RegisterMessageHandler(Channel, r.handleMessage); err != nil {
		return nil, err
	}
	for _, cmd := range r.Commands() {
		if err := host.RegisterCommand(cmd); err != nil {
			return nil, err
		}
	}
	host.Events().PlayerLeave.Subscribe(host.Name(), r.onPlayerLeave)
	host.Events().Tick.Subscribe(host.Name(), r.onTick)
	return r, nil
}

// Races returns the saved races.
func (r *Racing) Races() []Race {
	return slices.Clone(r.races)
}

func (r *Racing) load(ctx context.Context) error {
	ok, err := r.file.Load(&r.races)
	if err != nil {
		return err
	}
	if !ok {
		if err = r.save(ctx); err != nil {
			return err
		}
	}
	r.host.Logger().Info("loaded races", "count", len(r.races))
	return nil
}

func (r *Racing) save(ctx context.Context) error {
	races := r.races
	if races == nil {
		races = make([]Race, 0)
	}
	return r.file.Save(ctx, races)
}

func (r *Racing) raceIndex(name string) int {
	return slices.IndexFunc(r.races, func(race Race) bool { return race.Name == name })
}

func (r *Racing) activeIndex(name string) int {
	return slices.IndexFunc(r.active, func(a *activeRace) bool { return a.name == name })
}

func (r *Racing) onPlayerLeave(player internal.Player) error {
	r.active = slices.DeleteFunc(r.active, func(a *activeRace) bool {
		if i := a.index(player.ID()); i != -1 {
			a.players = slices.Delete(a.players, i, i+1)
			delete(a.times, player.ID())
		}
		return len(a.players) == 0
	})
	return nil
}

func (r *Racing) onTick(float32) error {
	now := r.host.Clock().Now()
	r.active = slices.DeleteFunc(r.active, func(a *activeRace) bool {
		if a.started || now.Sub(a.createdAt) < StaleAfter {
			return false
		}
		r.host.Logger().Info("dropping race that was never started", "race", a.name)
		for _, p := range a.players {
			p.SendMessage(fmt.Sprintf("%s was not started in time and has been cancelled.", a.name))
		}
		return true
	})
	return nil
}
