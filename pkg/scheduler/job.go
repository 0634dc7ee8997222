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

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ogrelab/stationd/pkg/helpers/syncutil"
	"github.com/robfig/cron/v3"
)

// Func is a job callback. It runs to completion on the scheduler goroutine.
type Func func(ctx context.Context, job *Job)

// Job is a unit of periodic, one-shot or cron scheduled work. Build one with
// Every, Once or Cron and hand it to Scheduler.Register.
type Job struct {
	lastRun  time.Time
	schedule cron.Schedule
	run      Func
	name     string
	spec     string
	period   time.Duration
	runs     uint64
	mu       syncutil.Mutex
	once     bool
	enabled  bool
	// runOnEnable and kick let a cron job fire on the first tick after an
	// Enable instead of waiting for its next slot.
	runOnEnable bool
	kick        bool
}

// JobInfo is a point in time copy of a job's state.
type JobInfo struct {
	LastRun  time.Time     `json:"lastRun"`
	Name     string        `json:"name"`
	Schedule string        `json:"schedule,omitempty"`
	Period   time.Duration `json:"period"`
	Runs     uint64        `json:"runs"`
	Once     bool          `json:"once"`
	Enabled  bool          `json:"enabled"`
}

// Every returns an enabled job that runs fn whenever period has elapsed since
// its last run. It is due on the first tick after registration.
func Every(name string, period time.Duration, fn Func) *Job {
	return &Job{name: name, period: period, run: fn, enabled: true}
}

// Once returns an enabled job that runs fn on the next tick and then
// disables itself until re-enabled.
func Once(name string, fn Func) *Job {
	return &Job{name: name, once: true, run: fn, enabled: true}
}

// Cron returns an enabled job driven by a standard five field cron
// expression. The first tick after enabling anchors the schedule, so the job
// never fires immediately unless RunOnEnable is set.
func Cron(name, spec string, fn Func) (*Job, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule for %s: %w", name, err)
	}
	return &Job{name: name, spec: spec, schedule: sched, run: fn, enabled: true}, nil
}

// Disabled marks the job to start disabled. Activation stages enable it.
func (j *Job) Disabled() *Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.enabled = false
	return j
}

// RunOnEnable makes a cron job run on the first tick after it goes from
// disabled to enabled. The schedule then counts from that run.
func (j *Job) RunOnEnable() *Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runOnEnable = true
	return j
}

func (j *Job) Name() string {
	return j.name
}

func (j *Job) Runs() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func (j *Job) Enabled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enabled
}

func (j *Job) Info() JobInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobInfo{
		Name:     j.name,
		Period:   j.period,
		Schedule: j.spec,
		Once:     j.once,
		Enabled:  j.enabled,
		Runs:     j.runs,
		LastRun:  j.lastRun,
	}
}

func (j *Job) setEnabled(enabled bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if enabled && !j.enabled && j.runOnEnable {
		j.kick = true
	}
	j.enabled = enabled
}

// due reports whether the job should run at now. A cron job seen for the
// first time is anchored at now instead.
func (j *Job) due(now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch {
	case !j.enabled:
		return false
	case j.once, j.kick:
		return true
	case j.schedule != nil:
		if j.lastRun.IsZero() {
			j.lastRun = now
			return false
		}
		return !now.Before(j.schedule.Next(j.lastRun))
	case j.lastRun.IsZero():
		return true
	default:
		return now.Sub(j.lastRun) >= j.period
	}
}

// finish records a completed run. Missed periods are not queued: the next
// run is measured from now.
func (j *Job) finish(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastRun = now
	j.runs++
	j.kick = false
	if j.once {
		j.enabled = false
	}
}
