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

package config

import "time"

const (
	DisplayLCD      = "lcd"
	DisplayTerminal = "terminal"
	DisplayNone     = "none"

	LayoutClock   = "clock"
	LayoutWeather = "weather"
	LayoutPower   = "power"

	DefaultLCDAddress = 0x27
)

type Display struct {
	Device    string    `toml:"device,omitempty" validate:"omitempty,oneof=lcd terminal none"`
	Layout    string    `toml:"layout,omitempty" validate:"omitempty,oneof=clock weather power"`
	Bus       string    `toml:"bus,omitempty"`
	Backlight Backlight `toml:"backlight,omitempty"`
	Address   uint16    `toml:"address,omitempty"`
	PeriodMs  int       `toml:"period_ms,omitempty" validate:"min=0"`
}

type Backlight struct {
	OnHour  *int `toml:"on_hour,omitempty" validate:"omitempty,min=0,max=23"`
	OffHour *int `toml:"off_hour,omitempty" validate:"omitempty,min=0,max=23"`
}

func (c *Instance) Display() Display {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Display
}

func (d Display) DeviceName() string {
	if d.Device == "" {
		return DisplayNone
	}
	return d.Device
}

func (d Display) LayoutName() string {
	if d.Layout == "" {
		return LayoutClock
	}
	return d.Layout
}

func (d Display) Addr() uint16 {
	if d.Address == 0 {
		return DefaultLCDAddress
	}
	return d.Address
}

func (d Display) Period() time.Duration {
	return orDefault(d.PeriodMs, 500) * time.Millisecond
}

func (b Backlight) Hours() (on, off int) {
	on, off = 7, 22
	if b.OnHour != nil {
		on = *b.OnHour
	}
	if b.OffHour != nil {
		off = *b.OffHour
	}
	return on, off
}
