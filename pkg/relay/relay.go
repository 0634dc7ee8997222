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

// Package relay switches GPIO outputs on behalf of remote dashboard
// buttons.
package relay

import (
	"fmt"

	"github.com/ogrelab/stationd/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
)

const (
	// LEDOn and LEDOff are the dashboard LED brightness values. The LED is
	// dark while the relay is energised.
	LEDOn  = 255
	LEDOff = 0
)

type Relay struct {
	pin       gpio.PinIO
	Name      string
	ButtonPin int
	LEDPin    int
	activeLow bool
	on        bool
	mu        syncutil.Mutex
}

// New drives pin, starting with the relay released.
func New(name string, pin gpio.PinIO, buttonPin, ledPin int, activeLow bool) (*Relay, error) {
	r := &Relay{pin: pin, Name: name, ButtonPin: buttonPin, LEDPin: ledPin, activeLow: activeLow}
	if err := r.Set(false); err != nil {
		return nil, err
	}
	return r, nil
}

// Set energises or releases the relay.
func (r *Relay) Set(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	level := gpio.Level(on != r.activeLow)
	if err := r.pin.Out(level); err != nil {
		return fmt.Errorf("relay %s: %w", r.Name, err)
	}
	if r.on != on {
		log.Info().Msgf("relay %s: on=%t", r.Name, on)
	}
	r.on = on
	return nil
}

func (r *Relay) On() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}

// LED is the value echoed to the relay's dashboard LED.
func (r *Relay) LED() int {
	if r.On() {
		return LEDOff
	}
	return LEDOn
}

// Status is a relay as reported by the API.
type Status struct {
	Name string `json:"name"`
	On   bool   `json:"on"`
}

type Bank []*Relay

func (b Bank) Status() []Status {
	out := make([]Status, 0, len(b))
	for _, r := range b {
		out = append(out, Status{Name: r.Name, On: r.On()})
	}
	return out
}
