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

package display

// Backlight switches on at OnHour and off at OffHour. A transition only
// happens when the observed hour equals the threshold, so a check that
// misses the hour waits for the next day.
type Backlight struct {
	OnHour  int
	OffHour int
	on      bool
}

// NewBacklight starts in the On state, as the display powers up lit.
func NewBacklight(onHour, offHour int) *Backlight {
	return &Backlight{OnHour: onHour, OffHour: offHour, on: true}
}

func (b *Backlight) On() bool {
	return b.on
}

// Check applies the timer for hour and reports whether the state changed.
func (b *Backlight) Check(hour int) bool {
	switch {
	case hour == b.OnHour && !b.on:
		b.on = true
		return true
	case hour == b.OffHour && b.on:
		b.on = false
		return true
	default:
		return false
	}
}
