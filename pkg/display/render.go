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

// Package display renders the shared state onto a small character display
// and runs the backlight timer.
package display

import (
	"fmt"
	"math"
	"time"

	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/state"
)

const (
	Width  = 20
	Height = 4

	// FaultLine replaces the first line of every layout while the link is
	// down.
	FaultLine = "No WiFi!"
)

// FormatDateTime is the clock layout's second line, also used as the
// ThingSpeak status text.
func FormatDateTime(t time.Time) string {
	return fmt.Sprintf("%d/%02d/%02d %02d:%02d:%02d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// Renderer turns snapshots into display lines. It is driven by one job so
// the blinking colon needs no locking.
type Renderer struct {
	layout string
	city   string
	width  int
	colon  bool
}

func NewRenderer(layout, city string, width int) *Renderer {
	if width <= 0 {
		width = Width
	}
	return &Renderer{layout: layout, city: city, width: width}
}

// Lines returns Height centered lines for snap.
func (r *Renderer) Lines(snap *state.Snapshot) []string {
	var raw []string
	switch r.layout {
	case config.LayoutWeather:
		raw = r.weather(snap)
	case config.LayoutPower:
		raw = r.power(snap)
	default:
		raw = r.clock(snap)
	}

	lines := make([]string, Height)
	for i := range lines {
		text := ""
		if i < len(raw) {
			text = raw[i]
		}
		lines[i] = CenterLine(text, r.width)
	}
	return lines
}

func (r *Renderer) clock(snap *state.Snapshot) []string {
	temp := "Temp: -- C"
	if v, ok := snap.Temperature(); ok {
		temp = fmt.Sprintf("Temp: %d C", v)
	}
	first := FaultLine
	if snap.LinkHealthy {
		first = r.city
	}
	return []string{
		first,
		FormatDateTime(snap.Time),
		snap.Time.Weekday().String(),
		temp,
	}
}

func (r *Renderer) weather(snap *state.Snapshot) []string {
	sep := " "
	if r.colon {
		sep = ":"
	}
	r.colon = !r.colon

	first := FaultLine
	if snap.LinkHealthy {
		t := snap.Time
		first = fmt.Sprintf("%02d%s%02d %s %d %s",
			t.Hour(), sep, t.Minute(), t.Weekday().String()[:3], t.Day(), t.Month().String()[:3])
	}

	in, out := snap.Indoor, snap.Outdoor
	return []string{
		first,
		fmt.Sprintf("I:%dC,%d%%,%dppm", in.TemperatureC, in.HumidityPct, snap.CO2.Value),
		fmt.Sprintf("O:%dC,%d%%,%d\"Hg", out.TemperatureC, out.HumidityPct, in.PressureMmHg),
		fmt.Sprintf("%s %d(%d)m/s", out.WindDir, int(math.Round(out.WindSpeed)), int(math.Round(out.WindGust))),
	}
}

func (r *Renderer) power(snap *state.Snapshot) []string {
	p := snap.Power
	first := FaultLine
	if snap.LinkHealthy {
		first = fmt.Sprintf("%s %02d:%02d", r.city, snap.Time.Hour(), snap.Time.Minute())
	}
	return []string{
		first,
		fmt.Sprintf("%.1fV %.2fA", p.Voltage, p.Current),
		fmt.Sprintf("%.1fW %.2fkWh", p.Power, p.Energy),
		fmt.Sprintf("%.1fHz pf %.2f", p.Frequency, p.PF),
	}
}
