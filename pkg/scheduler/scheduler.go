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

// Package scheduler runs the station's jobs cooperatively: one goroutine
// walks the jobs in registration order on every tick and runs each due job
// to completion before looking at the next.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ogrelab/stationd/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const DefaultResolution = 50 * time.Millisecond

var (
	ErrDuplicateJob = errors.New("duplicate job name")
	ErrUnknownJob   = errors.New("unknown job")
	ErrInvalidJob   = errors.New("invalid job")
)

// RunObserver is told about every completed run, including panicked ones.
type RunObserver func(name string, took time.Duration, panicked bool)

type Scheduler struct {
	clock      clockwork.Clock
	byName     map[string]*Job
	onRun      RunObserver
	jobs       []*Job
	resolution time.Duration
	mu         syncutil.RWMutex
}

type Option func(*Scheduler)

// WithClock sets the clock Run ticks from.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithResolution sets how often Run calls Tick.
func WithResolution(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.resolution = d
		}
	}
}

// WithObserver registers a callback for completed runs.
func WithObserver(fn RunObserver) Option {
	return func(s *Scheduler) { s.onRun = fn }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:      clockwork.NewRealClock(),
		byName:     make(map[string]*Job),
		resolution: DefaultResolution,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register appends job to the run order.
func (s *Scheduler) Register(job *Job) error {
	if job == nil || job.name == "" || job.run == nil {
		return ErrInvalidJob
	}
	if !job.once && job.schedule == nil && job.period <= 0 {
		return fmt.Errorf("%w: %s has no period", ErrInvalidJob, job.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[job.name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.name)
	}
	s.jobs = append(s.jobs, job)
	s.byName[job.name] = job
	log.Debug().Msgf("registered job %s", job.name)
	return nil
}

func (s *Scheduler) lookup(name string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return job, nil
}

// Enable lets the named job run again. Run counter and phase are kept.
func (s *Scheduler) Enable(name string) error {
	job, err := s.lookup(name)
	if err != nil {
		return err
	}
	if !job.Enabled() {
		log.Info().Msgf("enabling job %s", name)
	}
	job.setEnabled(true)
	return nil
}

// Disable stops the named job from running. Run counter and phase are kept.
func (s *Scheduler) Disable(name string) error {
	job, err := s.lookup(name)
	if err != nil {
		return err
	}
	job.setEnabled(false)
	return nil
}

func (s *Scheduler) RunCounter(name string) (uint64, error) {
	job, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	return job.Runs(), nil
}

func (s *Scheduler) IsEnabled(name string) bool {
	job, err := s.lookup(name)
	if err != nil {
		return false
	}
	return job.Enabled()
}

// Jobs returns the state of every job in registration order.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	jobs := append([]*Job(nil), s.jobs...)
	s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		infos = append(infos, j.Info())
	}
	return infos
}

// Tick runs every due job once, in registration order. However much time
// has passed since the previous tick, a job runs at most once per call.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.RLock()
	jobs := append([]*Job(nil), s.jobs...)
	s.mu.RUnlock()

	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		if !job.due(now) {
			continue
		}
		s.runJob(ctx, job, now)
	}
}

func (s *Scheduler) runJob(ctx context.Context, job *Job, now time.Time) {
	start := s.clock.Now()
	panicked := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				log.Error().
					Str("job", job.name).
					Bytes("stack", debug.Stack()).
					Msgf("job panicked: %v", r)
			}
		}()
		job.run(ctx, job)
	}()

	job.finish(now)
	if s.onRun != nil {
		s.onRun(job.name, s.clock.Since(start), panicked)
	}
}

// Run ticks the scheduler at its resolution until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.resolution)
	defer ticker.Stop()

	log.Info().Msgf("scheduler running %d jobs every %s", len(s.Jobs()), s.resolution)

	s.Tick(ctx, s.clock.Now())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.Tick(ctx, s.clock.Now())
		}
	}
}
