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

// Package rtc keeps the station's wall clock: it reads a DS3231 real-time
// clock (or the system clock when none is fitted) into the shared state and
// resynchronises the RTC from the system clock on a schedule.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ogrelab/stationd/pkg/helpers"
	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/rs/zerolog/log"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ds3231"
)

var (
	ErrNoRTC          = errors.New("couldn't find RTC")
	ErrUnreliableTime = errors.New("system clock not set")
)

// Device is the DS3231 register interface.
type Device interface {
	ReadTime() (time.Time, error)
	SetTime(t time.Time) error
	IsTimeValid() bool
	ReadTemperature() (int32, error)
}

// Source is anything that can tell the current wall time.
type Source interface {
	Now() (time.Time, error)
}

// EpochSource supplies the reference time for syncs. The system clock,
// kept in step by the OS NTP client, is the production source.
type EpochSource interface {
	Now() time.Time
}

// RTC is a DS3231 holding local wall-clock time in loc.
type RTC struct {
	dev   Device
	epoch EpochSource
	loc   *time.Location
}

func New(dev Device, loc *time.Location, epoch EpochSource) *RTC {
	if epoch == nil {
		epoch = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &RTC{dev: dev, loc: loc, epoch: epoch}
}

// Open attaches to a DS3231 on bus and runs Begin.
func Open(bus drivers.I2C, loc *time.Location, epoch EpochSource) (*RTC, error) {
	dev := ds3231.New(bus)
	dev.Configure()
	r := New(&dev, loc, epoch)
	if err := r.Begin(); err != nil {
		return nil, err
	}
	return r, nil
}

// Begin checks the RTC answers. If it lost power the time is restored from
// the epoch source when that looks set, otherwise it is left for the next
// sync.
func (r *RTC) Begin() error {
	if _, err := r.dev.ReadTime(); err != nil {
		return fmt.Errorf("%w: %w", ErrNoRTC, err)
	}
	if r.dev.IsTimeValid() {
		return nil
	}
	log.Warn().Msg("RTC lost power")
	now := r.epoch.Now()
	if !helpers.IsClockReliable(now) {
		log.Warn().Msgf("system clock reads %s, leaving RTC unset until sync", now.Format(time.RFC3339))
		return nil
	}
	if err := r.Set(now); err != nil {
		return err
	}
	log.Info().Msgf("RTC set from system clock: %s", now.In(r.loc).Format(time.RFC3339))
	return nil
}

// Now reads the RTC. The chip has no zone, so its fields are taken as wall
// time in the configured location.
func (r *RTC) Now() (time.Time, error) {
	t, err := r.dev.ReadTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read RTC: %w", err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, r.loc), nil
}

// Set writes t to the RTC as wall time in the configured location.
func (r *RTC) Set(t time.Time) error {
	if err := r.dev.SetTime(t.In(r.loc)); err != nil {
		return fmt.Errorf("failed to set RTC: %w", err)
	}
	return nil
}

// Sync sets the RTC from the epoch source and returns the drift that was
// corrected.
func (r *RTC) Sync() (time.Duration, error) {
	now := r.epoch.Now()
	if !helpers.IsClockReliable(now) {
		return 0, fmt.Errorf("%w: %s", ErrUnreliableTime, now.Format(time.RFC3339))
	}
	var drift time.Duration
	if before, err := r.Now(); err == nil {
		drift = before.Sub(now.Truncate(time.Second))
	}
	if err := r.Set(now); err != nil {
		return 0, err
	}
	return drift, nil
}

// ReadTemperature reads the DS3231's compensation sensor, which can serve
// as a board temperature channel.
func (r *RTC) ReadTemperature(context.Context) (float64, error) {
	milliC, err := r.dev.ReadTemperature()
	if err != nil {
		return 0, fmt.Errorf("failed to read RTC temperature: %w", err)
	}
	return float64(milliC) / 1000, nil
}

func (r *RTC) Location() *time.Location {
	return r.loc
}

// SystemSource reads the system clock in loc. It stands in for the RTC on
// boards without one.
type SystemSource struct {
	clock clockwork.Clock
	loc   *time.Location
}

func NewSystemSource(clock clockwork.Clock, loc *time.Location) *SystemSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &SystemSource{clock: clock, loc: loc}
}

func (s *SystemSource) Now() (time.Time, error) {
	return s.clock.Now().In(s.loc).Truncate(time.Second), nil
}

// NowJob copies src's time into the shared state.
func NowJob(src Source, st *state.State) scheduler.Func {
	return func(_ context.Context, _ *scheduler.Job) {
		t, err := src.Now()
		if err != nil {
			log.Warn().Err(err).Msg("clock read failed")
			return
		}
		st.Update(func(snap *state.Snapshot) {
			snap.Time = t
		})
	}
}

// SyncJob resynchronises r from its epoch source.
func SyncJob(r *RTC) scheduler.Func {
	return func(_ context.Context, _ *scheduler.Job) {
		drift, err := r.Sync()
		if err != nil {
			log.Error().Err(err).Msg("time sync failed")
			return
		}
		log.Info().Msgf("RTC synced, corrected drift %s", drift)
	}
}
