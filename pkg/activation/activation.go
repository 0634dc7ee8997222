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

// Package activation sequences station bring-up: a fast ticker job counts
// its own runs and enables other jobs when the count reaches a stage.
package activation

import (
	"context"
	"time"

	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/rs/zerolog/log"
)

const JobName = "activation.ticker"

// Enabler is the part of the scheduler the controller drives.
type Enabler interface {
	Enable(name string) error
}

// Stage enables Job on the tick where the counter equals At. A stage with a
// Requires predicate only fires when the predicate holds at that tick.
type Stage struct {
	Requires func() bool
	Job      string
	At       uint64
}

type Controller struct {
	sched   Enabler
	stages  []Stage
	counter uint64
}

// New copies stages; they are fixed for the life of the controller.
func New(sched Enabler, stages []Stage) *Controller {
	return &Controller{
		sched:  sched,
		stages: append([]Stage(nil), stages...),
	}
}

// Job returns the ticker job to register with the scheduler.
func (c *Controller) Job(period time.Duration) *scheduler.Job {
	return scheduler.Every(JobName, period, func(ctx context.Context, _ *scheduler.Job) {
		c.Tick(ctx)
	})
}

// Tick advances the counter and enables every stage whose threshold is the
// new count. The counter only grows, so each stage fires at most once.
func (c *Controller) Tick(_ context.Context) {
	c.counter++
	for _, st := range c.stages {
		if st.At != c.counter {
			continue
		}
		if st.Requires != nil && !st.Requires() {
			log.Debug().Msgf("activation stage %s at %d skipped", st.Job, st.At)
			continue
		}
		if err := c.sched.Enable(st.Job); err != nil {
			log.Warn().Err(err).Msgf("activation stage %s at %d", st.Job, st.At)
			continue
		}
		log.Info().Msgf("activated %s at tick %d", st.Job, c.counter)
	}
}

// Counter is the number of ticks seen so far.
func (c *Controller) Counter() uint64 {
	return c.counter
}
