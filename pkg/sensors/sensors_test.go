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

package sensors

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleTime = time.Date(2024, 3, 6, 14, 5, 0, 0, time.UTC)

type fakeClimate struct {
	err error
	s   ClimateSample
}

func (f *fakeClimate) ReadClimate(context.Context) (ClimateSample, error) {
	return f.s, f.err
}

type fakeValue struct {
	err error
	v   float64
}

func (f *fakeValue) ReadTemperature(context.Context) (float64, error) { return f.v, f.err }
func (f *fakeValue) ReadCO2(context.Context) (float64, error)         { return f.v, f.err }
func (f *fakeValue) ReadSignal(context.Context) (float64, error)      { return f.v, f.err }

type fakePower struct {
	err error
	s   PowerSample
}

func (f *fakePower) ReadPower(context.Context) (PowerSample, error) {
	return f.s, f.err
}

type observed struct {
	channel string
	err     error
}

func newTestPoller() (*Poller, *state.State, *[]observed) {
	st := state.New()
	var seen []observed
	p := NewPoller(st,
		WithClock(clockwork.NewFakeClockAt(sampleTime)),
		WithObserver(func(channel string, err error) {
			seen = append(seen, observed{channel: channel, err: err})
		}),
	)
	return p, st, &seen
}

func TestPaToMmHg(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 760, PaToMmHg(101325))
	assert.Equal(t, 750, PaToMmHg(99975))
	assert.Equal(t, 3, Round(2.5))
	assert.Equal(t, -3, Round(-2.5))
}

func TestPoller_Climate(t *testing.T) {
	t.Parallel()

	p, st, seen := newTestPoller()
	r := &fakeClimate{s: ClimateSample{TemperatureC: 21.6, HumidityPct: 40.4, PressurePa: 100650}}
	p.Climate(r)(context.Background(), nil)

	snap := st.Snapshot()
	assert.Equal(t, state.Climate{At: sampleTime, TemperatureC: 22, HumidityPct: 40, PressureMmHg: 755}, snap.Indoor)
	require.Len(t, *seen, 1)
	assert.Equal(t, ChannelClimate, (*seen)[0].channel)
	assert.NoError(t, (*seen)[0].err)
}

func TestPoller_ClimateKeepsLastGood(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    *fakeClimate
	}{
		{name: "nan temperature", r: &fakeClimate{s: ClimateSample{TemperatureC: math.NaN(), HumidityPct: 40, PressurePa: 100000}}},
		{name: "humidity range", r: &fakeClimate{s: ClimateSample{TemperatureC: 20, HumidityPct: 140, PressurePa: 100000}}},
		{name: "zero pressure", r: &fakeClimate{s: ClimateSample{TemperatureC: 20, HumidityPct: 40}}},
		{name: "driver error", r: &fakeClimate{err: errors.New("i2c nack")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, st, seen := newTestPoller()
			good := &fakeClimate{s: ClimateSample{TemperatureC: 20, HumidityPct: 50, PressurePa: 100000}}
			p.Climate(good)(context.Background(), nil)
			before := st.Snapshot().Indoor

			p.Climate(tt.r)(context.Background(), nil)
			assert.Equal(t, before, st.Snapshot().Indoor)
			require.Len(t, *seen, 2)
			assert.Error(t, (*seen)[1].err)
		})
	}
}

func TestPoller_Readings(t *testing.T) {
	t.Parallel()

	p, st, _ := newTestPoller()
	p.Probe(&fakeValue{v: 21.5})(context.Background(), nil)
	p.Board(&fakeValue{v: 48.2})(context.Background(), nil)
	p.CO2(&fakeValue{v: 612})(context.Background(), nil)
	p.Signal(&fakeValue{v: -56})(context.Background(), nil)

	snap := st.Snapshot()
	assert.Equal(t, state.Reading{At: sampleTime, Value: 22}, snap.Probe)
	assert.Equal(t, 48, snap.Board.Value)
	assert.Equal(t, 612, snap.CO2.Value)
	assert.Equal(t, -56, snap.RSSI.Value)
}

func TestPoller_ReadingsRejectInvalid(t *testing.T) {
	t.Parallel()

	p, st, seen := newTestPoller()
	p.CO2(&fakeValue{v: math.Inf(1)})(context.Background(), nil)
	p.CO2(&fakeValue{v: -1})(context.Background(), nil)
	p.Signal(&fakeValue{v: 10})(context.Background(), nil)
	p.Probe(&fakeValue{err: ErrNoProbe})(context.Background(), nil)

	snap := st.Snapshot()
	assert.True(t, snap.CO2.At.IsZero())
	assert.True(t, snap.RSSI.At.IsZero())
	assert.True(t, snap.Probe.At.IsZero())
	require.Len(t, *seen, 4)
	for _, o := range *seen {
		assert.Error(t, o.err, o.channel)
	}
	assert.ErrorIs(t, (*seen)[0].err, ErrInvalidSample)
}

func TestPoller_PowerDiscardsWholeSample(t *testing.T) {
	t.Parallel()

	good := PowerSample{Voltage: 231, Current: 1.2, Power: 270, Energy: 12.3, Frequency: 50, PF: 0.97}

	p, st, _ := newTestPoller()
	p.Power(&fakePower{s: good})(context.Background(), nil)
	assert.InDelta(t, 231.0, st.Snapshot().Power.Voltage, 1e-9)

	bad := good
	bad.PF = math.NaN()
	bad.Voltage = 240
	p.Power(&fakePower{s: bad})(context.Background(), nil)

	snap := st.Snapshot()
	assert.InDelta(t, 231.0, snap.Power.Voltage, 1e-9, "voltage from the bad sample must not land")
	assert.Equal(t, sampleTime, snap.Power.At)
}

func TestValidPower(t *testing.T) {
	t.Parallel()

	good := PowerSample{Voltage: 231, Current: 1, Power: 230, Energy: 1, Frequency: 50, PF: 1}
	require.NoError(t, validPower(good))

	for _, mutate := range []func(*PowerSample){
		func(s *PowerSample) { s.Voltage = math.NaN() },
		func(s *PowerSample) { s.Current = math.NaN() },
		func(s *PowerSample) { s.Power = math.NaN() },
		func(s *PowerSample) { s.Energy = math.NaN() },
		func(s *PowerSample) { s.Frequency = math.NaN() },
		func(s *PowerSample) { s.PF = math.NaN() },
		func(s *PowerSample) { s.Current = -1 },
	} {
		s := good
		mutate(&s)
		assert.ErrorIs(t, validPower(s), ErrInvalidSample)
	}
}

type fakeUptime time.Duration

func (f fakeUptime) ReadUptime(context.Context) (time.Duration, error) {
	return time.Duration(f), nil
}

func TestPoller_Uptime(t *testing.T) {
	t.Parallel()

	p, st, _ := newTestPoller()
	p.Uptime(fakeUptime(90 * time.Second))(context.Background(), nil)
	assert.Equal(t, 90*time.Second, st.Snapshot().Uptime)

	p.Uptime(fakeUptime(-time.Second))(context.Background(), nil)
	assert.Equal(t, 90*time.Second, st.Snapshot().Uptime)
}
