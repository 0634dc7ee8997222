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

// RequiresZeroCalibration gates a stage on sensors.co2.zero_calibration.
const RequiresZeroCalibration = "co2_zero_calibration"

type Scheduler struct {
	ResolutionMs int `toml:"resolution_ms,omitempty" validate:"min=0"`
}

// Activation stages enable a job when the activation ticker's own run
// counter reaches At.
type Activation struct {
	Stages []Stage `toml:"stages,omitempty" validate:"dive"`
	TickMs int     `toml:"tick_ms,omitempty" validate:"min=0"`
}

type Stage struct {
	Job      string `toml:"job" validate:"required"`
	Requires string `toml:"requires,omitempty" validate:"omitempty,oneof=co2_zero_calibration"`
	At       int    `toml:"at" validate:"min=1"`
}

func (c *Instance) Scheduler() Scheduler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Scheduler
}

func (c *Instance) Activation() Activation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a := c.vals.Activation
	a.Stages = append([]Stage(nil), a.Stages...)
	return a
}

func (s Scheduler) Resolution() time.Duration {
	return orDefault(s.ResolutionMs, 50) * time.Millisecond
}

func (a Activation) Tick() time.Duration {
	return orDefault(a.TickMs, 1000) * time.Millisecond
}
