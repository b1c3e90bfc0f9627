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

package racing

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/buffer"
	"github.com/hogwarp/scripting/internal/constants"
)

func (r *Racing) handleRaceBuilder(params internal.HandlerFuncParams) error {
	return r.host.SendTo(params.Player, Channel, OpcodeSelectRace, buffer.New(2))
}

func (r *Racing) handleJoinRace(params internal.HandlerFuncParams) error {
	name := params.Args.String("race_name")
	r.host.Logger().Info("join race", "race", name, "player", params.Player.ID())

	idx := r.raceIndex(name)
	if idx < 0 {
		params.Player.SendMessage("Could not find race!")
		return nil
	}
	r.setupRace(params.Player, idx)
	return nil
}

func (r *Racing) handleStartRace(params internal.HandlerFuncParams) error {
	idx := slices.IndexFunc(r.active, func(a *activeRace) bool {
		return len(a.players) > 0 && a.players[0].ID() == params.Player.ID()
	})
	if idx == -1 {
		params.Player.SendMessage("Race not found, or you are not the race host.")
		return nil
	}
	return r.spawnRace(idx)
}

// setupRace adds player to the active race for r.races[idx], creating it with
// player as host when nobody has set it up yet.
func (r *Racing) setupRace(player internal.Player, idx int) {
	if idx < 0 || idx >= len(r.races) {
		player.SendMessage("Could not find race!")
		return
	}
	race := r.races[idx]
	r.host.Logger().Info("setting up race", "race", race.Name)

	activeIdx := r.activeIndex(race.Name)
	if activeIdx == -1 {
		r.active = append(r.active, &activeRace{
			name:      race.Name,
			players:   []internal.Player{player},
			times:     make(map[internal.Identity]buffer.Timespan),
			createdAt: r.host.Clock().Now(),
		})
		prefix := r.host.CommandPrefix()
		for _, p := range r.host.Players() {
			if p.ID() == player.ID() {
				p.SendMessage(fmt.Sprintf("You are race Host type '%sstartrace' to begin.", prefix))
				continue
			}
			p.SendMessage(fmt.Sprintf("%s has been setup, type '%sjoinrace %s' to join.", race.Name, prefix, race.Name))
		}
		return
	}

	active := r.active[activeIdx]
	if active.index(player.ID()) != -1 {
		player.SendMessage("You are already in this race.")
		return
	}
	if active.started {
		player.SendMessage("This race has already started.")
		return
	}
	r.host.Logger().Info("race exists, adding player", "race", race.Name, "player", player.ID())
	active.players = append(active.players, player)
	for _, p := range active.players {
		p.SendMessage(fmt.Sprintf("%s has joined the race.", player.Name()))
	}
}

// spawnRace sends the rings of the active race at idx to all of its players.
func (r *Racing) spawnRace(idx int) error {
	active := r.active[idx]
	raceIdx := r.raceIndex(active.name)
	if raceIdx == -1 {
		active.players[0].SendMessage("Could not find race!")
		r.active = slices.Delete(r.active, idx, idx+1)
		return nil
	}
	race := r.races[raceIdx]

	r.host.Logger().Info("building race", "race", race.Name, "waited", r.host.Clock().Now().Sub(active.createdAt))
	payload, err := r.encodeRace(race)
	if overflow := (*buffer.OverflowError)(nil); errors.As(err, &overflow) {
		r.host.Logger().Warn("race too large to start", "race", race.Name, "rings", len(race.Rings), "error", err)
		active.players[0].SendMessage("Race is too large to start.")
		return nil
	}
	if err != nil {
		return err
	}

	active.started = true
	var errs []error
	for _, p := range active.players {
		if err := r.host.SendTo(p, Channel, OpcodeSpawnRace, payload); err != nil {
			errs = append(errs, fmt.Errorf("send race to %s: %w", p.ID(), err))
			continue
		}
		r.host.Logger().Info("sending race", "race", race.Name, "player", p.ID(), "rings", len(race.Rings))
	}
	return errors.Join(errs...)
}

// encodeRace writes the spawn payload for race into a message sized buffer.
func (r *Racing) encodeRace(race Race) (*buffer.Buffer, error) {
	payload := r.host.NewBuffer()
	if err := payload.WriteString(race.Name); err != nil {
		return nil, err
	}
	if err := payload.WriteTransforms(race.Rings); err != nil {
		return nil, err
	}
	return payload, nil
}

func (r *Racing) Commands() []internal.Command {
	return []internal.Command{
		{
			Command:     "racebuilder",
			Module:      constants.RacingModule,
			Description: "Opens the race builder menu.",
			Permission:  internal.PermissionOperator,
			Handlers:    []internal.HandlerFunc{r.handleRaceBuilder},
		},
		{
			Command:     "joinrace",
			Module:      constants.RacingModule,
			Description: "Join a race",
			Permission:  internal.PermissionDefault,
			Arguments: []internal.Argument{
				{
					Name:        "race_name",
					Description: "The name of the race",
					Required:    true,
				},
			},
			Handlers: []internal.HandlerFunc{r.handleJoinRace},
		},
		{
			Command:     "startrace",
			Module:      constants.RacingModule,
			Description: "Start the race",
			Permission:  internal.PermissionDefault,
			Handlers:    []internal.HandlerFunc{r.handleStartRace},
		},
	}
}
