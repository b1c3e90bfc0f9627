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

// Package auth keeps the set of identities that hold operator rank.
package auth

import (
	"context"
	"maps"
	"slices"

	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal"
)

// Persister loads and saves the operator set. Persistence is owned by the
// caller; a Store without one keeps the set in memory only.
type Persister interface {
	Load(ctx context.Context) ([]internal.Identity, error)
	Save(ctx context.Context, members []internal.Identity) error
}

type Store struct {
	members   map[internal.Identity]struct{}
	persister Persister
	logger    hclog.Logger
}

func WithPersister(persister Persister) func(s *Store) {
	return func(s *Store) {
		s.persister = persister
	}
}

func WithLogger(logger hclog.Logger) func(s *Store) {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(options ...func(s *Store)) *Store {
	s := &Store{
		members: make(map[internal.Identity]struct{}),
		logger:  hclog.NewNullLogger(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Load replaces the in-memory set with the persisted one.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	ids, err := s.persister.Load(ctx)
	if err != nil {
		return err
	}
	s.members = make(map[internal.Identity]struct{}, len(ids))
	for _, id := range ids {
		s.members[id] = struct{}{}
	}
	s.logger.Info("loaded operators", "count", len(s.members))
	return nil
}

// Flush writes the current set through the persister.
func (s *Store) Flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Save(ctx, s.Members())
}

func (s *Store) IsPrivileged(id internal.Identity) bool {
	_, ok := s.members[id]
	return ok
}

// Grant adds id to the set. It reports false when id was already a member.
// A flush failure is returned but the grant stays in effect.
func (s *Store) Grant(ctx context.Context, id internal.Identity) (bool, error) {
	if s.IsPrivileged(id) {
		return false, nil
	}
	s.members[id] = struct{}{}
	return true, s.Flush(ctx)
}

// Revoke removes id from the set. It reports false when id was not a member.
// A flush failure is returned but the revocation stays in effect.
func (s *Store) Revoke(ctx context.Context, id internal.Identity) (bool, error) {
	if !s.IsPrivileged(id) {
		return false, nil
	}
	delete(s.members, id)
	return true, s.Flush(ctx)
}

// Members returns the operators in sorted order.
func (s *Store) Members() []internal.Identity {
	return slices.Sorted(maps.Keys(s.members))
}

func (s *Store) Len() int {
	return len(s.members)
}
