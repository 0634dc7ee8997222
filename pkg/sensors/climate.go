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

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/bme280"
)

var ErrNotConnected = errors.New("sensor not connected")

type bme280Device interface {
	ReadTemperature() (int32, error)
	ReadHumidity() (int32, error)
	ReadPressure() (int32, error)
}

// BME280 reads temperature, humidity and pressure from a Bosch BME280.
type BME280 struct {
	dev bme280Device
}

// NewBME280 probes and configures the sensor at addr on bus.
func NewBME280(bus drivers.I2C, addr uint16) (*BME280, error) {
	dev := bme280.New(bus)
	dev.Address = addr
	if !dev.Connected() {
		return nil, fmt.Errorf("bme280 at 0x%02X: %w", addr, ErrNotConnected)
	}
	dev.Configure()
	return &BME280{dev: &dev}, nil
}

func (b *BME280) ReadClimate(context.Context) (ClimateSample, error) {
	milliC, err := b.dev.ReadTemperature()
	if err != nil {
		return ClimateSample{}, fmt.Errorf("bme280 temperature: %w", err)
	}
	centiPct, err := b.dev.ReadHumidity()
	if err != nil {
		return ClimateSample{}, fmt.Errorf("bme280 humidity: %w", err)
	}
	milliPa, err := b.dev.ReadPressure()
	if err != nil {
		return ClimateSample{}, fmt.Errorf("bme280 pressure: %w", err)
	}
	return ClimateSample{
		TemperatureC: float64(milliC) / 1000,
		HumidityPct:  float64(centiPct) / 100,
		PressurePa:   float64(milliPa) / 1000,
	}, nil
}
