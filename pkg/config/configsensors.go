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
	DefaultBME280Address = 0x76
	DefaultPZEMAddress   = 0xF8
	DefaultW1Root        = "/sys/bus/w1/devices"
)

type Sensors struct {
	Climate ClimateSensor `toml:"climate,omitempty"`
	Probe   ProbeSensor   `toml:"probe,omitempty"`
	CO2     CO2Sensor     `toml:"co2,omitempty"`
	Power   PowerSensor   `toml:"power,omitempty"`
	Signal  SignalSensor  `toml:"signal,omitempty"`
	Board   BoardSensor   `toml:"board,omitempty"`
}

// ClimateSensor is a BME280 on an I2C bus.
type ClimateSensor struct {
	Bus     string `toml:"bus,omitempty"`
	Address uint16 `toml:"address,omitempty" validate:"omitempty,oneof=118 119"`
	PeriodS int    `toml:"period_s,omitempty" validate:"min=0"`
	Enabled bool   `toml:"enabled"`
}

// ProbeSensor is a DS18B20 read through the w1_therm sysfs interface. An
// empty Device picks the first 28-* device found.
type ProbeSensor struct {
	Root    string `toml:"root,omitempty"`
	Device  string `toml:"device,omitempty"`
	PeriodS int    `toml:"period_s,omitempty" validate:"min=0"`
	Enabled bool   `toml:"enabled"`
}

// CO2Sensor is an MH-Z19B on a serial port.
type CO2Sensor struct {
	Port            string `toml:"port,omitempty"`
	PeriodS         int    `toml:"period_s,omitempty" validate:"min=0"`
	Enabled         bool   `toml:"enabled"`
	AutoCalibration bool   `toml:"auto_calibration"`
	ZeroCalibration bool   `toml:"zero_calibration"`
}

// PowerSensor is a PZEM-004T v3 on a serial port.
type PowerSensor struct {
	Port    string `toml:"port,omitempty"`
	PeriodS int    `toml:"period_s,omitempty" validate:"min=0"`
	Address uint8  `toml:"address,omitempty" validate:"omitempty,min=1,max=248"`
	Enabled bool   `toml:"enabled"`
}

// SignalSensor reads the RSSI of a wireless interface.
type SignalSensor struct {
	Interface string `toml:"interface,omitempty"`
	PeriodS   int    `toml:"period_s,omitempty" validate:"min=0"`
	Enabled   bool   `toml:"enabled"`
}

// BoardSensor reads a SoC temperature through gopsutil. Key filters the
// sensor key, empty takes the first one reported.
type BoardSensor struct {
	Key     string `toml:"key,omitempty"`
	PeriodS int    `toml:"period_s,omitempty" validate:"min=0"`
	Enabled bool   `toml:"enabled"`
}

func (c *Instance) Sensors() Sensors {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Sensors
}

func (s ClimateSensor) Period() time.Duration { return orDefault(s.PeriodS, 30) * time.Second }
func (s ProbeSensor) Period() time.Duration   { return orDefault(s.PeriodS, 10) * time.Second }
func (s CO2Sensor) Period() time.Duration     { return orDefault(s.PeriodS, 60) * time.Second }
func (s PowerSensor) Period() time.Duration   { return orDefault(s.PeriodS, 5) * time.Second }
func (s SignalSensor) Period() time.Duration  { return orDefault(s.PeriodS, 30) * time.Second }
func (s BoardSensor) Period() time.Duration   { return orDefault(s.PeriodS, 30) * time.Second }

func (s ClimateSensor) Addr() uint16 {
	if s.Address == 0 {
		return DefaultBME280Address
	}
	return s.Address
}

func (s ProbeSensor) SysfsRoot() string {
	if s.Root == "" {
		return DefaultW1Root
	}
	return s.Root
}

func (s PowerSensor) Addr() uint8 {
	if s.Address == 0 {
		return DefaultPZEMAddress
	}
	return s.Address
}
