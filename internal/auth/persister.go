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

package auth

import (
	"context"

	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/persist"
)

// FilePersister keeps the operator list in a JSON or YAML file.
type FilePersister struct {
	file *persist.File
}

func NewFilePersister(file *persist.File) *FilePersister {
	return &FilePersister{file: file}
}

// Load reads the list. A missing file is created holding an empty list.
func (p *FilePersister) Load(ctx context.Context) ([]internal.Identity, error) {
	var ids []internal.Identity
	ok, err := p.file.Load(&ids)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, p.Save(ctx, nil)
	}
	return ids, nil
}

func (p *FilePersister) Save(ctx context.Context, members []internal.Identity) error {
	if members == nil {
		members = make([]internal.Identity, 0)
	}
	return p.file.Save(ctx, members)
}
