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
	"fmt"
	"strings"
	"time"

	"github.com/mackerelio/go-osstat/uptime"
	psensors "github.com/shirou/gopsutil/v4/sensors"
)

var ErrNoBoardSensor = errors.New("board temperature sensor not found")

// BoardThermal reads a board temperature through gopsutil. Key selects the
// sensor by substring; an empty key takes the first one reported.
type BoardThermal struct {
	temps func(ctx context.Context) ([]psensors.TemperatureStat, error)
	key   string
}

func NewBoardThermal(key string) *BoardThermal {
	return &BoardThermal{temps: psensors.TemperaturesWithContext, key: key}
}

func (b *BoardThermal) ReadTemperature(ctx context.Context) (float64, error) {
	stats, err := b.temps(ctx)
	// gopsutil returns partial results alongside warnings.
	if err != nil && len(stats) == 0 {
		return 0, fmt.Errorf("failed to read board sensors: %w", err)
	}
	for _, s := range stats {
		if b.key == "" || strings.Contains(s.SensorKey, b.key) {
			return s.Temperature, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrNoBoardSensor, b.key)
}

// HostUptime is the system uptime.
type HostUptime struct {
	get func() (time.Duration, error)
}

func NewHostUptime() *HostUptime {
	return &HostUptime{get: uptime.Get}
}

func (h *HostUptime) ReadUptime(context.Context) (time.Duration, error) {
	d, err := h.get()
	if err != nil {
		return 0, fmt.Errorf("failed to read uptime: %w", err)
	}
	return d, nil
}
