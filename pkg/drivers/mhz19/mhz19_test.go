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

package mhz19

import (
	"testing"

	"github.com/ogrelab/stationd/pkg/drivers/serialport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(hi, lo byte) []byte {
	frame := []byte{0xFF, 0x86, hi, lo, 0x47, 0x00, 0x00, 0x00, 0x00}
	frame[8] = Checksum(frame)
	return frame
}

func TestCommandFrames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0xFF, 0x01, 0x86, 0, 0, 0, 0, 0, 0x79}, command(cmdReadCO2))
	assert.Equal(t, []byte{0xFF, 0x01, 0x87, 0, 0, 0, 0, 0, 0x78}, command(cmdZeroCalibrate))
	assert.Equal(t, []byte{0xFF, 0x01, 0x79, 0, 0, 0, 0, 0, 0x86}, command(cmdAutoCalibrate, 0))
	assert.Equal(t, []byte{0xFF, 0x01, 0x79, 0xA0, 0, 0, 0, 0, 0xE6}, command(cmdAutoCalibrate, autoCalibrationOn))
}

func TestReadCO2(t *testing.T) {
	t.Parallel()

	port := serialport.NewFake(reply(0x02, 0x64))
	dev := New(port)

	ppm, err := dev.ReadCO2()
	require.NoError(t, err)
	assert.Equal(t, 612, ppm)
	require.Len(t, port.Writes, 1)
	assert.Equal(t, command(cmdReadCO2), port.Writes[0])
}

func TestReadCO2_BadChecksum(t *testing.T) {
	t.Parallel()

	frame := reply(0x02, 0x64)
	frame[8]++
	_, err := New(serialport.NewFake(frame)).ReadCO2()
	require.ErrorIs(t, err, ErrChecksum)
}

func TestReadCO2_WrongCommand(t *testing.T) {
	t.Parallel()

	frame := reply(0x02, 0x64)
	frame[1] = 0x99
	_, err := New(serialport.NewFake(frame)).ReadCO2()
	require.ErrorIs(t, err, ErrFrame)
}

func TestReadCO2_NoAnswer(t *testing.T) {
	t.Parallel()

	_, err := New(serialport.NewFake()).ReadCO2()
	require.ErrorIs(t, err, serialport.ErrTimeout)
}

func TestAutoCalibrationAndZero(t *testing.T) {
	t.Parallel()

	port := serialport.NewFake()
	dev, err := Open(port.Factory(), "/dev/ttyAMA0")
	require.NoError(t, err)

	require.NoError(t, dev.AutoCalibration(false))
	require.NoError(t, dev.CalibrateZero())
	require.Len(t, port.Writes, 2)
	assert.Equal(t, byte(cmdAutoCalibrate), port.Writes[0][2])
	assert.Equal(t, byte(cmdZeroCalibrate), port.Writes[1][2])

	require.NoError(t, dev.Close())
	assert.True(t, port.Closed)
}
