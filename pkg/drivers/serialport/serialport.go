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

// Package serialport opens the UART links used by the serial sensor
// drivers and reads fixed-size frames from them.
package serialport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultReadTimeout bounds a single read; a frame that has not fully
// arrived after this long is abandoned.
const DefaultReadTimeout = 500 * time.Millisecond

var ErrTimeout = errors.New("serial read timed out")

// Port is the subset of serial.Port the drivers need.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Factory opens a port. Drivers take one so tests can inject a Fake.
type Factory func(path string, mode *serial.Mode) (Port, error)

// Open is the Factory for real devices.
func Open(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Mode9600 is 9600 8N1, which both the MH-Z19B and the PZEM-004T use.
func Mode9600() *serial.Mode {
	return &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Connect opens path at 9600 8N1 and sets the read timeout.
func Connect(factory Factory, path string) (Port, error) {
	if factory == nil {
		factory = Open
	}
	port, err := factory(path, Mode9600())
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return port, nil
}

// Transact drops stale input, writes req and reads exactly n response bytes.
func Transact(port Port, req []byte, n int) ([]byte, error) {
	if err := port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("failed to reset input buffer: %w", err)
	}
	if _, err := port.Write(req); err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}
	return ReadFull(port, n)
}

// ReadFull reads n bytes. A zero-length read is how go.bug.st/serial
// reports a timeout, so it ends the frame with ErrTimeout.
func ReadFull(port Port, n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := port.Read(buf[got:])
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if m == 0 {
			return nil, fmt.Errorf("%w after %d of %d bytes", ErrTimeout, got, n)
		}
		got += m
	}
	return buf, nil
}
