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

package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStartsHealthy(t *testing.T) {
	t.Parallel()

	s := New()
	assert.True(t, s.LinkHealthy())
	assert.True(t, s.Snapshot().LinkHealthy)
}

func TestSetLinkHealthyReportsChange(t *testing.T) {
	t.Parallel()

	s := New()
	assert.False(t, s.SetLinkHealthy(true))
	assert.True(t, s.SetLinkHealthy(false))
	assert.False(t, s.SetLinkHealthy(false))
	assert.False(t, s.LinkHealthy())
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := New()
	s.Update(func(snap *Snapshot) { snap.CO2 = Reading{Value: 600, At: time.Now()} })

	snap := s.Snapshot()
	snap.CO2.Value = 9999
	assert.Equal(t, 600, s.Snapshot().CO2.Value)
}

func TestChangesKeepsLatest(t *testing.T) {
	t.Parallel()

	s := New()
	for i := range 5 {
		s.Update(func(snap *Snapshot) { snap.RSSI = Reading{Value: -60 - i, At: time.Now()} })
	}

	select {
	case snap := <-s.Changes():
		assert.Equal(t, -64, snap.RSSI.Value)
	default:
		t.Fatal("expected a pending snapshot")
	}
}

func TestField(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC)
	withIndoor := Snapshot{
		Indoor: Climate{At: at, TemperatureC: 22, HumidityPct: 41, PressureMmHg: 758},
		Probe:  Reading{At: at, Value: 19},
		Power:  Power{At: at, Voltage: 231.4, PF: 0.93},
		Uptime: 90 * time.Second,
	}
	probeOnly := Snapshot{Probe: Reading{At: at, Value: 19}}

	tests := []struct {
		snap  Snapshot
		name  string
		field string
		want  float64
		ok    bool
	}{
		{name: "temperature prefers indoor", snap: withIndoor, field: FieldTemperature, want: 22, ok: true},
		{name: "temperature falls back to probe", snap: probeOnly, field: FieldTemperature, want: 19, ok: true},
		{name: "pressure", snap: withIndoor, field: FieldPressure, want: 758, ok: true},
		{name: "voltage", snap: withIndoor, field: FieldVoltage, want: 231.4, ok: true},
		{name: "pf", snap: withIndoor, field: FieldPF, want: 0.93, ok: true},
		{name: "uptime seconds", snap: withIndoor, field: FieldUptime, want: 90, ok: true},
		{name: "never sampled", snap: probeOnly, field: FieldCO2, ok: false},
		{name: "unknown", snap: withIndoor, field: "lux", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tt.snap.Field(tt.field)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestFieldNamesAllResolve(t *testing.T) {
	t.Parallel()

	at := time.Now()
	snap := Snapshot{
		Indoor: Climate{At: at}, Probe: Reading{At: at}, Board: Reading{At: at},
		CO2: Reading{At: at}, RSSI: Reading{At: at}, Power: Power{At: at},
		Outdoor: Outdoor{At: at}, Uptime: time.Second,
	}
	for _, name := range FieldNames {
		_, ok := snap.Field(name)
		assert.True(t, ok, name)
	}
}

func TestBrokerBroadcast(t *testing.T) {
	t.Parallel()

	s := New()
	b := NewBroker(s.Changes())
	ctx, cancel := context.WithCancel(context.Background())

	ch, id := b.Subscribe(4)
	b.Start(ctx)

	s.Update(func(snap *Snapshot) { snap.CO2 = Reading{Value: 412, At: time.Now()} })

	select {
	case snap := <-ch:
		assert.Equal(t, 412, snap.CO2.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}

	b.Unsubscribe(id)
	b.Unsubscribe(id)
	_, open := <-ch
	assert.False(t, open)

	ch2, _ := b.Subscribe(1)
	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, open := <-ch2:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}
