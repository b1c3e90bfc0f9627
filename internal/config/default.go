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

package config

import (
	"time"

	"github.com/hogwarp/scripting/internal/constants"
)

func DefaultConfig() Config {
	return Config{
		CommandPrefix:  constants.DefaultCommandPrefix,
		DataDir:        ".",
		OpsFile:        constants.DefaultOpsFile,
		Modules:        make([]string, 0),
		Extensions:     make([]string, 0),
		LogLevel:       "info",
		LogFile:        "",
		BindAddr:       "localhost",
		Port:           7490,
		TickInterval:   0,
		BufferCapacity: constants.DefaultBufferCapacity,
		FlushRetries:   3,
		FlushBackoff:   50 * time.Millisecond,
	}
}
