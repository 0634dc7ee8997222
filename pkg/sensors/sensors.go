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

// Package sensors polls the station's sensor channels and writes good
// samples into the shared state. Each channel runs as its own scheduler
// job; a bad sample is logged and dropped so the state keeps the last good
// value.
package sensors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/rs/zerolog/log"
)

const (
	ChannelClimate = "climate"
	ChannelProbe   = "probe"
	ChannelCO2     = "co2"
	ChannelPower   = "power"
	ChannelSignal  = "rssi"
	ChannelBoard   = "board"
	ChannelUptime  = "uptime"
)

// PascalsPerMmHg is the conversion factor used by the station displays.
const PascalsPerMmHg = 133.3

var ErrInvalidSample = errors.New("invalid sample")

type ClimateSample struct {
	TemperatureC float64
	HumidityPct  float64
	PressurePa   float64
}

type PowerSample struct {
	Voltage   float64
	Current   float64
	Power     float64
	Energy    float64
	Frequency float64
	PF        float64
}

type TemperatureReader interface {
	ReadTemperature(ctx context.Context) (float64, error)
}

type ClimateReader interface {
	ReadClimate(ctx context.Context) (ClimateSample, error)
}

type CO2Reader interface {
	ReadCO2(ctx context.Context) (float64, error)
}

type PowerReader interface {
	ReadPower(ctx context.Context) (PowerSample, error)
}

// SignalReader reports the received signal strength in dBm.
type SignalReader interface {
	ReadSignal(ctx context.Context) (float64, error)
}

type UptimeReader interface {
	ReadUptime(ctx context.Context) (time.Duration, error)
}

// SampleObserver is told about every sample taken; err is nil for a good
// one.
type SampleObserver func(channel string, err error)

type Option func(*Poller)

func WithClock(clock clockwork.Clock) Option {
	return func(p *Poller) { p.clock = clock }
}

func WithObserver(obs SampleObserver) Option {
	return func(p *Poller) { p.observer = obs }
}

// Poller builds the per-channel jobs.
type Poller struct {
	st       *state.State
	clock    clockwork.Clock
	observer SampleObserver
}

func NewPoller(st *state.State, opts ...Option) *Poller {
	p := &Poller{st: st, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Round converts to the integer units the display and publishers use.
func Round(v float64) int {
	return int(math.Round(v))
}

// PaToMmHg converts pascals to rounded millimetres of mercury.
func PaToMmHg(pa float64) int {
	return Round(pa / PascalsPerMmHg)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkRange(name string, v, lo, hi float64) error {
	if !finite(v) {
		return fmt.Errorf("%w: %s is %v", ErrInvalidSample, name, v)
	}
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s %v outside [%v, %v]", ErrInvalidSample, name, v, lo, hi)
	}
	return nil
}

// observe logs a failed sample and reports the outcome.
func (p *Poller) observe(channel string, err error) bool {
	if p.observer != nil {
		p.observer(channel, err)
	}
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("discarding sample")
		return false
	}
	return true
}

// Climate polls a BME280-class sensor into the indoor climate record.
func (p *Poller) Climate(r ClimateReader) scheduler.Func {
	return func(ctx context.Context, _ *scheduler.Job) {
		s, err := r.ReadClimate(ctx)
		if err == nil {
			err = errors.Join(
				checkRange("temperature", s.TemperatureC, -40, 85),
				checkRange("humidity", s.HumidityPct, 0, 100),
				checkRange("pressure", s.PressurePa, 30000, 110000),
			)
		}
		if !p.observe(ChannelClimate, err) {
			return
		}
		now := p.clock.Now()
		p.st.Update(func(snap *state.Snapshot) {
			snap.Indoor = state.Climate{
				At:           now,
				TemperatureC: Round(s.TemperatureC),
				HumidityPct:  Round(s.HumidityPct),
				PressureMmHg: PaToMmHg(s.PressurePa),
			}
		})
	}
}

// Probe polls a standalone thermometer such as a DS18B20.
func (p *Poller) Probe(r TemperatureReader) scheduler.Func {
	return p.reading(ChannelProbe, -55, 125, r.ReadTemperature, func(snap *state.Snapshot) *state.Reading {
		return &snap.Probe
	})
}

// Board polls the board's own temperature sensor.
func (p *Poller) Board(r TemperatureReader) scheduler.Func {
	return p.reading(ChannelBoard, -40, 125, r.ReadTemperature, func(snap *state.Snapshot) *state.Reading {
		return &snap.Board
	})
}

func (p *Poller) CO2(r CO2Reader) scheduler.Func {
	return p.reading(ChannelCO2, 0, 10000, r.ReadCO2, func(snap *state.Snapshot) *state.Reading {
		return &snap.CO2
	})
}

func (p *Poller) Signal(r SignalReader) scheduler.Func {
	return p.reading(ChannelSignal, -120, 0, r.ReadSignal, func(snap *state.Snapshot) *state.Reading {
		return &snap.RSSI
	})
}

func (p *Poller) reading(
	channel string,
	lo, hi float64,
	read func(context.Context) (float64, error),
	field func(*state.Snapshot) *state.Reading,
) scheduler.Func {
	return func(ctx context.Context, _ *scheduler.Job) {
		v, err := read(ctx)
		if err == nil {
			err = checkRange(channel, v, lo, hi)
		}
		if !p.observe(channel, err) {
			return
		}
		now := p.clock.Now()
		p.st.Update(func(snap *state.Snapshot) {
			*field(snap) = state.Reading{At: now, Value: Round(v)}
		})
	}
}

// Power polls the energy meter. A NaN in any field discards the whole
// sample, as does a negative value.
func (p *Poller) Power(r PowerReader) scheduler.Func {
	return func(ctx context.Context, _ *scheduler.Job) {
		s, err := r.ReadPower(ctx)
		if err == nil {
			err = validPower(s)
		}
		if !p.observe(ChannelPower, err) {
			return
		}
		now := p.clock.Now()
		p.st.Update(func(snap *state.Snapshot) {
			snap.Power = state.Power{
				At:        now,
				Voltage:   s.Voltage,
				Current:   s.Current,
				Power:     s.Power,
				Energy:    s.Energy,
				Frequency: s.Frequency,
				PF:        s.PF,
			}
		})
	}
}

func validPower(s PowerSample) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"voltage", s.Voltage},
		{"current", s.Current},
		{"power", s.Power},
		{"energy", s.Energy},
		{"frequency", s.Frequency},
		{"power factor", s.PF},
	}
	for _, f := range fields {
		if !finite(f.v) || f.v < 0 {
			return fmt.Errorf("%w: error reading %s", ErrInvalidSample, f.name)
		}
	}
	return nil
}

func (p *Poller) Uptime(r UptimeReader) scheduler.Func {
	return func(ctx context.Context, _ *scheduler.Job) {
		d, err := r.ReadUptime(ctx)
		if err == nil && d < 0 {
			err = fmt.Errorf("%w: negative uptime %s", ErrInvalidSample, d)
		}
		if !p.observe(ChannelUptime, err) {
			return
		}
		p.st.Update(func(snap *state.Snapshot) {
			snap.Uptime = d
		})
	}
}
