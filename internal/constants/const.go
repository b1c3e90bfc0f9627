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

package constants

const Version = "0.4.0"

const (
	ServerModule     = "Server"
	ModerationModule = "MinistryOfMagic"
	RacingModule     = "BroomRacing"
)

const (
	DefaultCommandPrefix  = "/"
	DefaultBufferCapacity = 10000
	DefaultOpsFile        = "ops.json"
	DefaultLogFile        = "logs/scripting.log"
	PluginsDir            = "plugins"
)

const (
	UnknownCommandResponse = "Unknown command. Type %shelp for a list of commands."
	NotAllowedResponse     = "You are not allowed to use this command."
	UsageResponse          = "Usage: %s"
)

const (
	JSONExt = ".json"
	YAMLExt = ".yaml"
	YMLExt  = ".yml"
	LuaExt  = ".lua"
	JSExt   = ".js"
)
