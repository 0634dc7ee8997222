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

import "strconv"

const DefaultAPIPort = 7580

// Service configures the local API. UpdatePassword gates POST /update and an
// empty password disables the update channel.
type Service struct {
	APIPort        *int      `toml:"api_port,omitempty" validate:"omitempty,min=1,max=65535"`
	Metrics        *bool     `toml:"metrics,omitempty"`
	Discovery      Discovery `toml:"discovery,omitempty"`
	APIListen      string    `toml:"api_listen,omitempty"`
	UpdatePassword string    `toml:"update_password,omitempty"`
	AllowedIPs     []string  `toml:"allowed_ips,omitempty" validate:"dive,ip|cidr"`
}

type Discovery struct {
	Enabled      *bool  `toml:"enabled,omitempty"`
	InstanceName string `toml:"instance_name,omitempty"`
}

// Relay is a GPIO output driven by a Blynk button pin, with its state echoed
// to an LED pin.
type Relay struct {
	Name      string `toml:"name" validate:"required"`
	Pin       string `toml:"pin" validate:"required"`
	ButtonPin int    `toml:"button_pin" validate:"min=0,max=255"`
	LEDPin    int    `toml:"led_pin" validate:"min=0,max=255"`
	ActiveLow bool   `toml:"active_low"`
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiPortLocked()
}

// apiPortLocked returns the API port. Caller must hold mu (read or write).
func (c *Instance) apiPortLocked() int {
	if c.vals.Service.APIPort == nil {
		return DefaultAPIPort
	}
	return *c.vals.Service.APIPort
}

func (c *Instance) SetAPIPort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Service.APIPort = &port
}

func (c *Instance) APIListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Service.APIListen == "" {
		return ":" + strconv.Itoa(c.apiPortLocked())
	}
	return c.vals.Service.APIListen
}

func (c *Instance) UpdatePassword() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.UpdatePassword
}

// AllowedIPs lists the addresses and prefixes allowed to call the API.
// Empty allows everyone.
func (c *Instance) AllowedIPs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.vals.Service.AllowedIPs...)
}

func (c *Instance) MetricsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Service.Metrics == nil {
		return true
	}
	return *c.vals.Service.Metrics
}

func (c *Instance) DiscoveryEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Service.Discovery.Enabled == nil {
		return true
	}
	return *c.vals.Service.Discovery.Enabled
}

func (c *Instance) DiscoveryInstanceName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.Discovery.InstanceName
}

func (c *Instance) Relays() []Relay {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Relay(nil), c.vals.Relays...)
}
