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

package display

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"
)

var ErrClosed = errors.New("display closed")

// LCD is an HD44780 character LCD behind a PCF8574 I2C backpack.
type LCD struct {
	dev    hd44780i2c.Device
	closed bool
}

// NewLCD configures the LCD at addr on bus. The display starts cleared and
// lit.
func NewLCD(bus drivers.I2C, addr uint8, width, height int) (*LCD, error) {
	dev := hd44780i2c.New(bus, addr)
	err := dev.Configure(hd44780i2c.Config{
		Width:  uint8(width),  //nolint:gosec // 20x4 panel
		Height: uint8(height), //nolint:gosec // 20x4 panel
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure lcd: %w", err)
	}
	dev.ClearDisplay()
	return &LCD{dev: dev}, nil
}

func (l *LCD) Show(lines []string) error {
	if l.closed {
		return ErrClosed
	}
	for row, line := range lines {
		l.dev.SetCursor(0, uint8(row)) //nolint:gosec // at most 4 rows
		l.dev.Print(toLCDCharset(line))
	}
	return nil
}

func (l *LCD) SetBacklight(on bool) error {
	if l.closed {
		return ErrClosed
	}
	l.dev.BacklightOn(on)
	return nil
}

// Close blanks the panel and turns its backlight off.
func (l *LCD) Close() error {
	if l.closed {
		return ErrClosed
	}
	l.dev.ClearDisplay()
	l.dev.BacklightOn(false)
	l.closed = true
	return nil
}

// toLCDCharset maps text onto the HD44780 A00 ROM, which only matches ASCII.
func toLCDCharset(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == '°':
			out = append(out, 0xDF)
		case r < 0x20 || r > 0x7D:
			out = append(out, '?')
		default:
			out = append(out, byte(r))
		}
	}
	return out
}
