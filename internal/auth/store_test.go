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

package auth_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-test/deep"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/auth"
	"github.com/hogwarp/scripting/internal/persist"
)

type mockPersister struct {
	loaded []internal.Identity
	saved  [][]internal.Identity
	err    error
}

func (p *mockPersister) Load(context.Context) ([]internal.Identity, error) {
	return p.loaded, nil
}

func (p *mockPersister) Save(_ context.Context, members []internal.Identity) error {
	p.saved = append(p.saved, members)
	return p.err
}

func Test_Store(t *testing.T) {
	ctx := context.Background()

	t.Run("1. Grant and revoke are idempotent and flush on change", func(t *testing.T) {
		persister := &mockPersister{}
		store := auth.NewStore(auth.WithPersister(persister))

		tests := []struct {
			name   string
			action func() (bool, error)
			want   bool
		}{
			{name: "grant bob", action: func() (bool, error) { return store.Grant(ctx, "bob") }, want: true},
			{name: "grant bob again", action: func() (bool, error) { return store.Grant(ctx, "bob") }, want: false},
			{name: "grant alice", action: func() (bool, error) { return store.Grant(ctx, "alice") }, want: true},
			{name: "revoke bob", action: func() (bool, error) { return store.Revoke(ctx, "bob") }, want: true},
			{name: "revoke bob again", action: func() (bool, error) { return store.Revoke(ctx, "bob") }, want: false},
		}
		for _, test := range tests {
			changed, err := test.action()
			if err != nil {
				t.Fatalf("%s: %v", test.name, err)
			}
			if changed != test.want {
				t.Errorf("%s: expected %v, got %v", test.name, test.want, changed)
			}
		}

		want := [][]internal.Identity{
			{"bob"},
			{"alice", "bob"},
			{"alice"},
		}
		if diff := deep.Equal(persister.saved, want); diff != nil {
			t.Error(diff)
		}
		if store.IsPrivileged("bob") || !store.IsPrivileged("alice") {
			t.Errorf("unexpected members %v", store.Members())
		}
	})

	t.Run("2. A failed flush keeps the change", func(t *testing.T) {
		persister := &mockPersister{err: errors.New("disk full")}
		store := auth.NewStore(auth.WithPersister(persister))
		changed, err := store.Grant(ctx, "bob")
		if !changed || err == nil {
			t.Errorf("expected change with error, got %v, %v", changed, err)
		}
		if !store.IsPrivileged("bob") {
			t.Error("expected bob to stay privileged")
		}
	})

	t.Run("3. Load replaces the set", func(t *testing.T) {
		store := auth.NewStore(auth.WithPersister(&mockPersister{loaded: []internal.Identity{"z", "a"}}))
		_, _ = store.Grant(ctx, "m")
		if err := store.Load(ctx); err != nil {
			t.Fatal(err)
		}
		if diff := deep.Equal(store.Members(), []internal.Identity{"a", "z"}); diff != nil {
			t.Error(diff)
		}
	})

	t.Run("4. No persister keeps the set in memory", func(t *testing.T) {
		store := auth.NewStore()
		if err := store.Load(ctx); err != nil {
			t.Fatal(err)
		}
		if changed, err := store.Grant(ctx, "bob"); !changed || err != nil {
			t.Errorf("expected true, nil; got %v, %v", changed, err)
		}
	})
}

func Test_FilePersister(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ops.json")
	persister := auth.NewFilePersister(persist.NewFile(path))

	store := auth.NewStore(auth.WithPersister(persister))
	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected missing ops file to be created, got %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("expected an empty list, got %q", string(data))
	}

	for _, id := range []internal.Identity{"ron", "hermione"} {
		if _, err = store.Grant(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	reloaded := auth.NewStore(auth.WithPersister(persister))
	if err = reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(reloaded.Members(), []internal.Identity{"hermione", "ron"}); diff != nil {
		t.Error(diff)
	}
}
