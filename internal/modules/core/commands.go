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

package core

import (
	"errors"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/constants"
	"github.com/hogwarp/scripting/internal/extension"
)

func handleHelp(host extension.Host) internal.HandlerFunc {
	return func(params internal.HandlerFuncParams) error {
		var pattern glob.Glob
		if raw, ok := params.Args.Get("pattern"); ok {
			g, err := glob.Compile(raw)
			if err != nil {
				params.Player.SendMessage(fmt.Sprintf("Invalid pattern %s.", raw))
				return nil
			}
			pattern = g
		}

		isOp := params.IsOp(params.Player.ID())
		for _, cmd := range host.Commands() {
			if cmd.Permission == internal.PermissionOperator && !isOp {
				continue
			}
			if pattern != nil && !pattern.Match(cmd.Command) {
				continue
			}
			params.Player.SendMessage(fmt.Sprintf("%s%s - %s", host.CommandPrefix(), cmd.Command, cmd.Description))
		}
		return nil
	}
}

func handleWhoAmI(params internal.HandlerFuncParams) error {
	params.Player.SendMessage(fmt.Sprintf("You are %s (%s)", params.Player.Name(), params.Player.ID()))
	return nil
}

func handleOp(host extension.Host) internal.HandlerFunc {
	return func(params internal.HandlerFuncParams) error {
		target := params.Args.String("player_id")
		if params.IsOp(internal.Identity(target)) {
			params.Player.SendMessage("Player is already an operator.")
			return nil
		}

		targetPlayer, ok := internal.FindPlayer(host.Players(), target)
		if !ok {
			params.Player.SendMessage(fmt.Sprintf("Could not find player with ID %s", target))
			return nil
		}

		granted, err := host.Operators().Grant(params.Context, targetPlayer.ID())
		if !granted {
			params.Player.SendMessage("Player is already an operator.")
			return nil
		}
		params.Player.SendMessage(fmt.Sprintf("%s is now an operator.", targetPlayer.Name()))
		host.Logger().Info("granted operator", "player", targetPlayer.ID(), "by", params.Player.ID())
		return err
	}
}

func handleDeop(host extension.Host) internal.HandlerFunc {
	return func(params internal.HandlerFuncParams) error {
		target := internal.Identity(params.Args.String("player_id"))
		if !params.IsOp(target) {
			// Accept the name of a connected operator as well.
			p, ok := internal.FindPlayer(host.Players(), string(target))
			if !ok || !params.IsOp(p.ID()) {
				params.Player.SendMessage("Player is not an operator.")
				return nil
			}
			target = p.ID()
		}

		_, err := host.Operators().Revoke(params.Context, target)
		params.Player.SendMessage("Player is no longer an operator.")
		host.Logger().Info("revoked operator", "player", target, "by", params.Player.ID())
		return err
	}
}

func Commands(host extension.Host) []internal.Command {
	return []internal.Command{
		{
			Command:     "help",
			Module:      constants.ServerModule,
			Description: "List all commands",
			Permission:  internal.PermissionDefault,
			Arguments: []internal.Argument{
				{
					Name:        "pattern",
					Description: "Only list commands matching this glob pattern",
					Required:    false,
				},
			},
			Handlers: []internal.HandlerFunc{handleHelp(host)},
		},
		{
			Command:     "whoami",
			Module:      constants.ServerModule,
			Description: "View information about yourself",
			Permission:  internal.PermissionDefault,
			Handlers:    []internal.HandlerFunc{handleWhoAmI},
		},
		{
			Command:     "op",
			Module:      constants.ServerModule,
			Description: "Make a player an operator",
			Permission:  internal.PermissionOperator,
			Arguments: []internal.Argument{
				{
					Name:        "player_id",
					Description: "The player to make an operator",
					Required:    true,
				},
			},
			Handlers: []internal.HandlerFunc{handleOp(host)},
		},
		{
			Command:     "deop",
			Module:      constants.ServerModule,
			Description: "Remove operator status from a player",
			Permission:  internal.PermissionOperator,
			Arguments: []internal.Argument{
				{
					Name:        "player_id",
					Description: "The player to remove operator status from",
					Required:    true,
				},
			},
			Handlers: []internal.HandlerFunc{handleDeop(host)},
		},
	}
}

// Extension registers the built-in server commands.
func Extension() extension.Extension {
	return extension.Extension{
		Name:        constants.ServerModule,
		Description: "Built-in server commands",
		Initialize: func(host extension.Host) error {
			var errs []error
			for _, cmd := range Commands(host) {
				errs = append(errs, host.RegisterCommand(cmd))
			}
			return errors.Join(errs...)
		},
	}
}
