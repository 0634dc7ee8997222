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

import (
	"testing"
	"time"

	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, time.March, 6, 14, 5, 9, 0, time.UTC)

func TestFormatDateTime(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "2024/03/06 14:05:09", FormatDateTime(testTime))
}

func TestRenderer_Clock(t *testing.T) {
	t.Parallel()

	r := NewRenderer(config.LayoutClock, "Ogre, LV", Width)
	snap := state.Snapshot{Time: testTime, LinkHealthy: true}
	snap.Probe.Value = 21
	snap.Probe.At = testTime

	lines := r.Lines(&snap)
	require.Len(t, lines, Height)
	assert.Equal(t, "      Ogre, LV      ", lines[0])
	assert.Equal(t, "2024/03/06 14:05:09 ", lines[1])
	assert.Equal(t, "     Wednesday      ", lines[2])
	assert.Equal(t, "     Temp: 21 C     ", lines[3])
	for _, l := range lines {
		assert.Len(t, []rune(l), Width)
	}
}

func TestRenderer_ClockNoTemperature(t *testing.T) {
	t.Parallel()

	r := NewRenderer(config.LayoutClock, "Ogre, LV", Width)
	snap := state.Snapshot{Time: testTime}
	lines := r.Lines(&snap)
	assert.Equal(t, "     Temp: -- C     ", lines[3])
}

func TestRenderer_WeatherBlinks(t *testing.T) {
	t.Parallel()

	r := NewRenderer(config.LayoutWeather, "", Width)
	snap := state.Snapshot{Time: testTime, LinkHealthy: true}

	first := r.Lines(&snap)
	second := r.Lines(&snap)
	third := r.Lines(&snap)

	assert.Equal(t, "  14 05 Wed 6 Mar   ", first[0])
	assert.Equal(t, "  14:05 Wed 6 Mar   ", second[0])
	assert.Equal(t, first[0], third[0])
}

func TestRenderer_WeatherLines(t *testing.T) {
	t.Parallel()

	r := NewRenderer(config.LayoutWeather, "", Width)
	snap := state.Snapshot{Time: testTime, LinkHealthy: true}
	snap.Indoor = state.Climate{TemperatureC: 22, HumidityPct: 40, PressureMmHg: 755}
	snap.CO2.Value = 612
	snap.Outdoor = state.Outdoor{TemperatureC: -3, HumidityPct: 85, WindDir: "NNW", WindSpeed: 4.6, WindGust: 9.2}

	lines := r.Lines(&snap)
	assert.Equal(t, CenterLine("I:22C,40%,612ppm", Width), lines[1])
	assert.Equal(t, CenterLine(`O:-3C,85%,755"Hg`, Width), lines[2])
	assert.Equal(t, CenterLine("NNW 5(9)m/s", Width), lines[3])
}

func TestRenderer_FaultLine(t *testing.T) {
	t.Parallel()

	for _, layout := range []string{config.LayoutClock, config.LayoutWeather, config.LayoutPower} {
		t.Run(layout, func(t *testing.T) {
			t.Parallel()
			r := NewRenderer(layout, "Ogre", Width)
			snap := state.Snapshot{Time: testTime, LinkHealthy: false}
			lines := r.Lines(&snap)
			assert.Equal(t, CenterLine(FaultLine, Width), lines[0])
		})
	}
}

func TestRenderer_ClockFaultLine(t *testing.T) {
	t.Parallel()

	r := NewRenderer(config.LayoutClock, "Ogre, LV", Width)
	snap := state.Snapshot{Time: testTime, LinkHealthy: true}
	assert.Equal(t, CenterLine("Ogre, LV", Width), r.Lines(&snap)[0])

	snap.LinkHealthy = false
	lines := r.Lines(&snap)
	assert.Equal(t, CenterLine(FaultLine, Width), lines[0])
	assert.Equal(t, CenterLine(FormatDateTime(testTime), Width), lines[1], "clock keeps running")

	snap.LinkHealthy = true
	assert.Equal(t, CenterLine("Ogre, LV", Width), r.Lines(&snap)[0])
}

func TestRenderer_Power(t *testing.T) {
	t.Parallel()

	r := NewRenderer(config.LayoutPower, "Ogre", Width)
	snap := state.Snapshot{Time: testTime, LinkHealthy: true}
	snap.Power = state.Power{Voltage: 231.4, Current: 1.25, Power: 280.5, Energy: 12.345, Frequency: 50, PF: 0.97}

	lines := r.Lines(&snap)
	assert.Equal(t, CenterLine("Ogre 14:05", Width), lines[0])
	assert.Equal(t, CenterLine("231.4V 1.25A", Width), lines[1])
	assert.Equal(t, CenterLine("280.5W 12.35kWh", Width), lines[2])
	assert.Equal(t, CenterLine("50.0Hz pf 0.97", Width), lines[3])
}

func TestNewRenderer_DefaultWidth(t *testing.T) {
	t.Parallel()

	r := NewRenderer(config.LayoutClock, "x", 0)
	snap := state.Snapshot{Time: testTime}
	assert.Len(t, []rune(r.Lines(&snap)[0]), Width)
}
