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

// Package mhz19 drives a Winsen MH-Z19B CO2 sensor over its UART protocol.
package mhz19

import (
	"errors"
	"fmt"

	"github.com/ogrelab/stationd/pkg/drivers/serialport"
)

const frameLen = 9

const (
	cmdReadCO2        = 0x86
	cmdZeroCalibrate  = 0x87
	cmdAutoCalibrate  = 0x79
	autoCalibrationOn = 0xA0
)

var (
	ErrChecksum = errors.New("mhz19: bad checksum")
	ErrFrame    = errors.New("mhz19: unexpected response")
)

// Device is one sensor on a serial port. It is not safe for concurrent use.
type Device struct {
	port serialport.Port
}

func New(port serialport.Port) *Device {
	return &Device{port: port}
}

// Open connects to the sensor on path.
func Open(factory serialport.Factory, path string) (*Device, error) {
	port, err := serialport.Connect(factory, path)
	if err != nil {
		return nil, fmt.Errorf("mhz19: %w", err)
	}
	return New(port), nil
}

// Checksum is 0xFF minus the sum of bytes 1..7, plus one.
func Checksum(frame []byte) byte {
	var sum byte
	for _, b := range frame[1:8] {
		sum += b
	}
	return 0xFF - sum + 1
}

func command(cmd byte, args ...byte) []byte {
	frame := make([]byte, frameLen)
	frame[0] = 0xFF
	frame[1] = 0x01
	frame[2] = cmd
	copy(frame[3:8], args)
	frame[8] = Checksum(frame)
	return frame
}

// ReadCO2 returns the gas concentration in ppm.
func (d *Device) ReadCO2() (int, error) {
	resp, err := serialport.Transact(d.port, command(cmdReadCO2), frameLen)
	if err != nil {
		return 0, fmt.Errorf("mhz19: %w", err)
	}
	if resp[0] != 0xFF || resp[1] != cmdReadCO2 {
		return 0, fmt.Errorf("%w: % X", ErrFrame, resp)
	}
	if resp[8] != Checksum(resp) {
		return 0, ErrChecksum
	}
	return int(resp[2])<<8 | int(resp[3]), nil
}

// AutoCalibration switches the sensor's automatic baseline correction. The
// sensor does not answer this command.
func (d *Device) AutoCalibration(on bool) error {
	var arg byte
	if on {
		arg = autoCalibrationOn
	}
	if _, err := d.port.Write(command(cmdAutoCalibrate, arg)); err != nil {
		return fmt.Errorf("mhz19: failed to set auto calibration: %w", err)
	}
	return nil
}

// CalibrateZero sets the current reading as the 400 ppm baseline. The
// sensor must have been in fresh air for at least 20 minutes.
func (d *Device) CalibrateZero() error {
	if _, err := d.port.Write(command(cmdZeroCalibrate)); err != nil {
		return fmt.Errorf("mhz19: failed to calibrate: %w", err)
	}
	return nil
}

func (d *Device) Close() error {
	return d.port.Close()
}
