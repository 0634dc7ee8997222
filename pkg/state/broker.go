// stationd
// Copyright (c) 2026 The Ogrelab Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of stationd.
//
// stationd is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// stationd is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with stationd.  If not, see <http://www.gnu.org/licenses/>.

package state

import (
	"context"

	"github.com/ogrelab/stationd/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Broker fans snapshots out to websocket clients. Sends never block: a slow
// subscriber misses snapshots instead of stalling the scheduler.
type Broker struct {
	source      <-chan Snapshot
	subscribers map[int]chan Snapshot
	mu          syncutil.RWMutex
	nextID      int
}

func NewBroker(source <-chan Snapshot) *Broker {
	return &Broker{
		source:      source,
		subscribers: make(map[int]chan Snapshot),
	}
}

// Start broadcasts from the source until ctx is done, then closes every
// subscriber channel.
func (b *Broker) Start(ctx context.Context) {
	go func() {
		defer b.closeAll()
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-b.source:
				if !ok {
					return
				}
				b.broadcast(snap)
			}
		}
	}()
}

func (b *Broker) broadcast(snap Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- snap:
		default:
			log.Debug().Int("subscriber_id", id).Msg("subscriber behind, dropping snapshot")
		}
	}
}

// Subscribe returns a channel of snapshots and the id to unsubscribe with.
func (b *Broker) Subscribe(bufferSize int) (snaps <-chan Snapshot, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++
	ch := make(chan Snapshot, bufferSize)
	b.subscribers[id] = ch
	return ch, id
}

// Unsubscribe closes the subscriber's channel. Repeated calls are no-ops.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

func (b *Broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
