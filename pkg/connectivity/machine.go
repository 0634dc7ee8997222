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

// Package connectivity keeps the network link and the upstream sessions
// alive. Both layers are small state machines driven from scheduler jobs:
// the link gets a bounded retry window that ends in a process restart, a
// session gets a bounded number of attempts and is otherwise left to the
// next health check.
package connectivity

import (
	"github.com/ogrelab/stationd/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Machine tracks one layer's state. It is read by the API while jobs write
// it.
type Machine struct {
	name  string
	state State
	mu    syncutil.RWMutex
}

func NewMachine(name string) *Machine {
	return &Machine{name: name}
}

func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Machine) set(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	if prev != s {
		log.Debug().Msgf("%s: %s -> %s", m.name, prev, s)
	}
}
