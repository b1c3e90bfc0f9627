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

package moderation

import (
	"fmt"

	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/constants"
)

const clearChatLines = 100

func (m *Moderation) handleClearChat(params internal.HandlerFuncParams) error {
	for _, p := range m.host.Players() {
		for i := 0; i < clearChatLines; i++ {
			p.SendMessage("")
		}
	}
	params.Player.SendMessage("Chat cleared.")
	return nil
}

func (m *Moderation) handleKick(params internal.HandlerFuncParams) error {
	target := params.Args.String("player_id")
	targetPlayer, ok := internal.FindPlayer(m.host.Players(), target)
	if !ok {
		params.Player.SendMessage(fmt.Sprintf("%s is not online.", target))
		return nil
	}

	targetPlayer.Kick()
	params.Player.SendMessage(fmt.Sprintf("%s has been kicked.", target))
	return nil
}

func (m *Moderation) handleBan(params internal.HandlerFuncParams) error {
	target := params.Args.String("player_id")
	targetPlayer, ok := internal.FindPlayer(m.host.Players(), target)
	if !ok {
		params.Player.SendMessage(fmt.Sprintf("%s is not online.", target))
		return nil
	}

	m.banned.add(targetPlayer.ID())
	targetPlayer.Kick()
	params.Player.SendMessage(fmt.Sprintf("%s has been banned.", target))
	m.host.Logger().Info("banned player", "player", targetPlayer.ID(), "by", params.Player.ID())
	return m.banned.save(params.Context)
}

func (m *Moderation) handleUnban(params internal.HandlerFuncParams) error {
	target := params.Args.String("player_id")
	if !m.banned.remove(internal.Identity(target)) {
		params.Player.SendMessage(fmt.Sprintf("%s is not banned.", target))
		return nil
	}

	params.Player.SendMessage(fmt.Sprintf("%s has been unbanned.", target))
	return m.banned.save(params.Context)
}

func (m *Moderation) handleMute(params internal.HandlerFuncParams) error {
	target := params.Args.String("player_id")
	targetPlayer, ok := internal.FindPlayer(m.host.Players(), target)
	if !ok {
		params.Player.SendMessage(fmt.Sprintf("%s is not online.", target))
		return nil
	}

	m.muted.add(targetPlayer.ID())
	params.Player.SendMessage(fmt.Sprintf("%s has been muted.", target))
	return m.muted.save(params.Context)
}

func (m *Moderation) handleUnmute(params internal.HandlerFuncParams) error {
	target := params.Args.String("player_id")
	id := internal.Identity(target)
	if !m.muted.contains(id) {
		// Accept the name of a connected player as well.
		if p, ok := internal.FindPlayer(m.host.Players(), target); ok && m.muted.contains(p.ID()) {
			id = p.ID()
		}
	}
	if !m.muted.remove(id) {
		params.Player.SendMessage(fmt.Sprintf("%s is not muted.", target))
		return nil
	}

	params.Player.SendMessage(fmt.Sprintf("%s has been unmuted.", target))
	return m.muted.save(params.Context)
}

func playerArgument(description string) []internal.Argument {
	return []internal.Argument{
		{
			Name:        "player_id",
			Description: description,
			Required:    true,
		},
	}
}

func (m *Moderation) Commands() []internal.Command {
	return []internal.Command{
		{
			Command:     "clearchat",
			Module:      constants.ModerationModule,
			Description: "Clears the chat for all players.",
			Permission:  internal.PermissionOperator,
			Handlers:    []internal.HandlerFunc{m.handleClearChat},
		},
		{
			Command:     "kick",
			Module:      constants.ModerationModule,
			Description: "Kicks a player from the server.",
			Permission:  internal.PermissionOperator,
			Arguments:   playerArgument("The player to kick"),
			Handlers:    []internal.HandlerFunc{m.handleKick},
		},
		{
			Command:     "ban",
			Module:      constants.ModerationModule,
			Description: "Bans a player from the server.",
			Permission:  internal.PermissionOperator,
			Arguments:   playerArgument("The player to ban"),
			Handlers:    []internal.HandlerFunc{m.handleBan},
		},
		{
			Command:     "unban",
			Module:      constants.ModerationModule,
			Description: "Unbans a player from the server.",
			Permission:  internal.PermissionOperator,
			Arguments:   playerArgument("The player to unban"),
			Handlers:    []internal.HandlerFunc{m.handleUnban},
		},
		{
			Command:     "mute",
			Module:      constants.ModerationModule,
			Description: "Mutes a player.",
			Permission:  internal.PermissionOperator,
			Arguments:   playerArgument("The player to mute"),
			Handlers:    []internal.HandlerFunc{m.handleMute},
		},
		{
			Command:     "unmute",
			Module:      constants.ModerationModule,
			Description: "Unmutes a player.",
			Permission:  internal.PermissionOperator,
			Arguments:   playerArgument("The player to unmute"),
			Handlers:    []internal.HandlerFunc{m.handleUnmute},
		},
	}
}
