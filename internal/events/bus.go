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

// Package events fans host events out to extension subscribers.
//
// Publishing is synchronous: every subscriber runs on the caller's goroutine,
// in registration order, before Publish returns. A failing subscriber is
// logged and skipped; it never stops the others and never reaches the
// publisher. Buses are not safe for concurrent use. Subscribing, unsubscribing
// and publishing must all happen on the host's event thread.
package events

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-hclog"
)

type SubscriptionID uint64

type subscriber[F any] struct {
	id     SubscriptionID
	source string
	fn     F
}

// Outcome records the result of invoking one subscriber during a publish.
type Outcome struct {
	ID  SubscriptionID
	Err error
}

// Bus is the ordered subscriber list of one event kind.
type Bus[F any] struct {
	kind        string
	logger      hclog.Logger
	nextID      SubscriptionID
	subscribers []subscriber[F]
}

func NewBus[F any](kind string, logger hclog.Logger) *Bus[F] {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Bus[F]{
		kind:        kind,
		logger:      logger,
		subscribers: make([]subscriber[F], 0),
	}
}

// Subscribe appends fn to the bus. source names the extension that owns the
// subscription and is attached to every fault logged for it.
func (b *Bus[F]) Subscribe(source string, fn F) SubscriptionID {
	b.nextID++
	b.subscribers = append(b.subscribers, subscriber[F]{id: b.nextID, source: source, fn: fn})
	return b.nextID
}

// Unsubscribe removes the subscription with the given id.
// It returns false when there was no such subscription.
func (b *Bus[F]) Unsubscribe(id SubscriptionID) bool {
	n := len(b.subscribers)
	b.subscribers = slices.DeleteFunc(b.subscribers, func(s subscriber[F]) bool {
		return s.id == id
	})
	return len(b.subscribers) != n
}

// UnsubscribeSource removes every subscription owned by source.
func (b *Bus[F]) UnsubscribeSource(source string) int {
	n := len(b.subscribers)
	b.subscribers = slices.DeleteFunc(b.subscribers, func(s subscriber[F]) bool {
		return s.source == source
	})
	return n - len(b.subscribers)
}

func (b *Bus[F]) Len() int {
	return len(b.subscribers)
}

// Publish calls invoke once per subscriber. The list is copied first, so
// subscriptions added or removed by a subscriber only affect later publishes.
func (b *Bus[F]) Publish(invoke func(fn F) error) []Outcome {
	subscribers := slices.Clone(b.subscribers)
	outcomes := make([]Outcome, 0, len(subscribers))
	for _, s := range subscribers {
		source := fmt.Sprintf("%s subscriber %d (%s)", b.kind, s.id, s.source)
		err := Isolate(b.logger, source, func() error {
			return invoke(s.fn)
		})
		outcomes = append(outcomes, Outcome{ID: s.id, Err: err})
	}
	return outcomes
}
