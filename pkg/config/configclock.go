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

package config

import (
	"fmt"
	"time"
)

const (
	DefaultSyncSchedule = "0 3 * * *"
	DefaultWeatherURL   = "https://api.openweathermap.org"
)

// Clock configures the DS3231 RTC and daily time sync. Without an RTC the
// clock job copies the system clock.
type Clock struct {
	Bus          string `toml:"bus,omitempty"`
	TimeZone     string `toml:"time_zone,omitempty"`
	SyncSchedule string `toml:"sync_schedule,omitempty" validate:"omitempty,cron"`
	PeriodMs     int    `toml:"period_ms,omitempty" validate:"min=0"`
	RTC          bool   `toml:"rtc"`
}

type Weather struct {
	URL     string `toml:"url,omitempty" validate:"omitempty,url"`
	CityID  string `toml:"city_id,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
	PeriodS int    `toml:"period_s,omitempty" validate:"min=0"`
	Enabled bool   `toml:"enabled"`
}

func (c *Instance) Clock() Clock {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Clock
}

func (c *Instance) Weather() Weather {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Weather
}

func (c Clock) Period() time.Duration { return orDefault(c.PeriodMs, 100) * time.Millisecond }

func (c Clock) Schedule() string {
	if c.SyncSchedule == "" {
		return DefaultSyncSchedule
	}
	return c.SyncSchedule
}

// Location resolves TimeZone through the tz database, defaulting to the
// system local zone.
func (c Clock) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func (w Weather) Period() time.Duration { return orDefault(w.PeriodS, 600) * time.Second }

func (w Weather) Endpoint() string {
	if w.URL == "" {
		return DefaultWeatherURL
	}
	return w.URL
}
