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

// Package state holds the station's shared sensor state. Jobs write it from
// the scheduler goroutine; the display, publishers and the HTTP API read
// copies of it.
package state

import (
	"time"

	"github.com/ogrelab/stationd/pkg/helpers/syncutil"
)

// Climate is an indoor BME280 sample in canonical units.
type Climate struct {
	At           time.Time `json:"at"`
	TemperatureC int       `json:"temperatureC"`
	HumidityPct  int       `json:"humidityPct"`
	PressureMmHg int       `json:"pressureMmHg"`
}

// Power is a PZEM-004T sample.
type Power struct {
	At        time.Time `json:"at"`
	Voltage   float64   `json:"voltage"`
	Current   float64   `json:"current"`
	Power     float64   `json:"power"`
	Energy    float64   `json:"energy"`
	Frequency float64   `json:"frequency"`
	PF        float64   `json:"pf"`
}

// Outdoor is the latest fetched weather report.
type Outdoor struct {
	At           time.Time `json:"at"`
	WindDir      string    `json:"windDir"`
	WindSpeed    float64   `json:"windSpeed"`
	WindGust     float64   `json:"windGust"`
	TemperatureC int       `json:"temperatureC"`
	HumidityPct  int       `json:"humidityPct"`
	WindDeg      int       `json:"windDeg"`
}

// Reading is a single integer channel with its sample time.
type Reading struct {
	At    time.Time `json:"at"`
	Value int       `json:"value"`
}

type Snapshot struct {
	Time        time.Time     `json:"time"`
	Outdoor     Outdoor       `json:"outdoor"`
	Power       Power         `json:"power"`
	Indoor      Climate       `json:"indoor"`
	Probe       Reading       `json:"probe"`
	CO2         Reading       `json:"co2"`
	Board       Reading       `json:"board"`
	RSSI        Reading       `json:"rssi"`
	Uptime      time.Duration `json:"uptime"`
	LinkHealthy bool          `json:"linkHealthy"`
}

// State is the single shared record. The zero value is not usable, call New.
type State struct {
	notify chan Snapshot
	snap   Snapshot
	mu     syncutil.RWMutex
}

// New returns a State with the link assumed healthy until a publish or
// connectivity check says otherwise.
func New() *State {
	return &State{
		snap:   Snapshot{LinkHealthy: true},
		notify: make(chan Snapshot, 1),
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Update applies fn to the state under the write lock.
func (s *State) Update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	snap := s.snap
	s.mu.Unlock()

	s.publish(snap)
}

// publish offers snap to the broker, replacing an undelivered older one.
func (s *State) publish(snap Snapshot) {
	for {
		select {
		case s.notify <- snap:
			return
		default:
		}
		select {
		case <-s.notify:
		default:
		}
	}
}

// Changes is the source channel for a Broker.
func (s *State) Changes() <-chan Snapshot {
	return s.notify
}

func (s *State) LinkHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.LinkHealthy
}

// SetLinkHealthy records a publish or connectivity outcome and reports
// whether the flag changed.
func (s *State) SetLinkHealthy(healthy bool) bool {
	changed := false
	s.Update(func(snap *Snapshot) {
		changed = snap.LinkHealthy != healthy
		snap.LinkHealthy = healthy
	})
	return changed
}
