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

package helpers

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.bug.st/serial"
)

var (
	ErrNoSerialPort        = errors.New("no serial port found")
	ErrAmbiguousSerialPort = errors.New("more than one serial port found")
)

// serialPrefixes are the device names a UART sensor shows up under on a
// Linux board: USB adapters and the SoC's own UARTs.
var serialPrefixes = []string{
	"/dev/ttyUSB",
	"/dev/ttyACM",
	"/dev/ttyAMA",
	"/dev/ttyS",
	"/dev/serial",
}

// FilterSerialPorts keeps the ports a sensor can sit on, sorted.
func FilterSerialPorts(ports []string) []string {
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		for _, prefix := range serialPrefixes {
			if strings.HasPrefix(p, prefix) {
				out = append(out, p)
				break
			}
		}
	}
	slices.Sort(out)
	return out
}

// SerialPorts lists the candidate sensor ports on this host.
func SerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return FilterSerialPorts(ports), nil
}

// PickSerialPort returns the only candidate port, failing when there are
// none or several to choose from.
func PickSerialPort(ports []string) (string, error) {
	switch len(ports) {
	case 0:
		return "", ErrNoSerialPort
	case 1:
		return ports[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousSerialPort, strings.Join(ports, ", "))
	}
}
