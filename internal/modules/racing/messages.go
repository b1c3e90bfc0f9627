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
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/buffer"
)

func (r *Racing) handleMessage(player internal.Player, opcode uint16, payload *buffer.Buffer) error {
	switch opcode {
	case OpcodeSpawnRace:
		return r.saveRace(player, payload)
	case OpcodeListRaces:
		return r.sendRaces(player)
	case OpcodeSelectRace:
		idx, err := payload.ReadInt32()
		if err != nil {
			return err
		}
		r.setupRace(player, int(idx))
		return nil
	case OpcodeRaceTime:
		name, err := payload.ReadString()
		if err != nil {
			return err
		}
		t, err := payload.ReadTimespan()
		if err != nil {
			return err
		}
		r.addRaceTime(player, name, t)
		return nil
	case OpcodeDeleteRace:
		idx, err := payload.ReadInt32()
		if err != nil {
			return err
		}
		return r.deleteRace(player, int(idx))
	}
	r.host.Logger().Debug("unknown opcode", "opcode", opcode, "player", player.ID())
	return nil
}

func (r *Racing) saveRace(player internal.Player, payload *buffer.Buffer) error {
	name, err := payload.ReadString()
	if err != nil {
		return err
	}
	rings, err := payload.ReadTransforms()
	if err != nil {
		return err
	}
	if len(rings) == 0 {
		player.SendMessage("Race failed to save, no race rings present.")
		return nil
	}

	race := Race{Name: name, Rings: rings}
	if _, err = r.encodeRace(race); err != nil {
		if overflow := (*buffer.OverflowError)(nil); errors.As(err, &overflow) {
			r.host.Logger().Warn("race too large to save", "race", name, "rings", len(rings), "error", err)
			player.SendMessage("Race failed to save, too many race rings.")
			return nil
		}
		return err
	}

	r.host.Logger().Info("saving race", "race", name, "rings", len(rings))
	if idx := r.raceIndex(name); idx != -1 {
		r.races[idx] = race
	} else {
		r.races = append(r.races, race)
	}
	return r.save(r.host.Context())
}

func (r *Racing) sendRaces(player internal.Player) error {
	payload := r.host.NewBuffer()
	if err := payload.WriteBool(r.host.IsOp(player.ID())); err != nil {
		return err
	}
	if err := payload.WriteCount(len(r.races)); err != nil {
		return err
	}
	for _, race := range r.races {
		if err := payload.WriteString(race.Name); err != nil {
			return err
		}
	}
	r.host.Logger().Info("sending races", "player", player.ID(), "count", len(r.races))
	return r.host.SendTo(player, Channel, OpcodeListRaces, payload)
}

func (r *Racing) deleteRace(player internal.Player, idx int) error {
	if !r.host.IsOp(player.ID()) {
		return nil
	}
	if idx < 0 || idx >= len(r.races) {
		return nil
	}
	r.host.Logger().Info("race deleted", "race", r.races[idx].Name, "by", player.ID())
	r.races = slices.Delete(r.races, idx, idx+1)
	return r.save(r.host.Context())
}

func (r *Racing) addRaceTime(player internal.Player, name string, t buffer.Timespan) {
	r.host.Logger().Info("race time", "race", name, "player", player.ID(), "time", t.String())

	idx := r.activeIndex(name)
	if idx == -1 {
		return
	}
	active := r.active[idx]
	if active.index(player.ID()) == -1 {
		return
	}
	active.times[player.ID()] = t
	if len(active.times) != len(active.players) {
		return
	}

	finishers := slices.Clone(active.players)
	slices.SortStableFunc(finishers, func(a, b internal.Player) int {
		return cmp.Compare(active.times[a.ID()], active.times[b.ID()])
	})
	for _, p := range active.players {
		p.SendMessage("Race Times")
		for _, f := range finishers {
			p.SendMessage(fmt.Sprintf("%s - %s", f.Name(), active.times[f.ID()]))
		}
	}
	r.active = slices.Delete(r.active, idx, idx+1)
}
