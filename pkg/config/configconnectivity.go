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

import "time"

const (
	ReconnectDeferred = "deferred"
	ReconnectInline   = "inline"
)

type Connectivity struct {
	RestartOnLinkTimeout *bool    `toml:"restart_on_link_timeout,omitempty"`
	Interface            string   `toml:"interface,omitempty"`
	ReconnectPolicy      string   `toml:"reconnect_policy,omitempty" validate:"omitempty,oneof=deferred inline"`
	ReconnectCommand     []string `toml:"reconnect_command,omitempty"`
	LinkRetryMs          int      `toml:"link_retry_ms,omitempty" validate:"min=0"`
	LinkTimeoutS         int      `toml:"link_timeout_s,omitempty" validate:"min=0"`
	SessionRetryS        int      `toml:"session_retry_s,omitempty" validate:"min=0"`
	SessionAttempts      int      `toml:"session_attempts,omitempty" validate:"min=0"`
	HealthCheckS         int      `toml:"health_check_s,omitempty" validate:"min=0"`
}

func (c *Instance) Connectivity() Connectivity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Connectivity
}

func (c Connectivity) LinkRetry() time.Duration {
	return orDefault(c.LinkRetryMs, 500) * time.Millisecond
}

func (c Connectivity) LinkTimeout() time.Duration {
	return orDefault(c.LinkTimeoutS, 15) * time.Second
}

func (c Connectivity) SessionRetry() time.Duration {
	return orDefault(c.SessionRetryS, 5) * time.Second
}

func (c Connectivity) Attempts() int {
	return int(orDefault(c.SessionAttempts, 3))
}

func (c Connectivity) HealthCheck() time.Duration {
	return orDefault(c.HealthCheckS, 15) * time.Second
}

func (c Connectivity) RestartOnTimeout() bool {
	if c.RestartOnLinkTimeout == nil {
		return true
	}
	return *c.RestartOnLinkTimeout
}

func (c Connectivity) Policy() string {
	if c.ReconnectPolicy == "" {
		return ReconnectDeferred
	}
	return c.ReconnectPolicy
}

// orDefault returns v, or def when v is unset, as a Duration multiplier.
func orDefault(v, def int) time.Duration {
	if v <= 0 {
		return time.Duration(def)
	}
	return time.Duration(v)
}
