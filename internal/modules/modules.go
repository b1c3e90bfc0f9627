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

package modules

import (
	"slices"
	"strings"

	"github.com/hogwarp/scripting/internal/extension"
	"github.com/hogwarp/scripting/internal/modules/moderation"
	"github.com/hogwarp/scripting/internal/modules/racing"
)

// All returns every bundled extension. The built-in server commands are not
// included, the server always registers them.
func All() []extension.Extension {
	var extensions []extension.Extension
	extensions = append(extensions, moderation.Extension())
	extensions = append(extensions, racing.Extension())
	return extensions
}

// Select returns the bundled extensions named in names, compared without
// case. An empty list selects all of them.
func Select(names []string) []extension.Extension {
	if len(names) == 0 {
		return All()
	}
	return slices.DeleteFunc(All(), func(ext extension.Extension) bool {
		return !slices.ContainsFunc(names, func(name string) bool {
			return strings.EqualFold(name, ext.Name)
		})
	})
}
