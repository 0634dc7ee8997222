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

package pzem004t

import (
	"encoding/binary"
	"testing"

	"github.com/ogrelab/stationd/pkg/drivers/serialport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		frame []byte
		want  uint16
	}{
		{frame: []byte{0x01, 0x04, 0x00, 0x00, 0x00, 0x0A}, want: 0x0D70},
		{frame: []byte{0xF8, 0x03, 0x00, 0x02, 0x00, 0x01}, want: 0xA331},
		{frame: []byte{0xF8, 0x06, 0x00, 0x02, 0x00, 0x02}, want: 0xA2BD},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CRC16(tt.frame), "% X", tt.frame)
	}
}

func TestRequestFrame(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		[]byte{0x01, 0x04, 0x00, 0x00, 0x00, 0x0A, 0x70, 0x0D},
		request(0x01, fnReadInput, 0, measureRegs))
}

func measureReply(addr byte, regs [measureRegs]uint16) []byte {
	frame := []byte{addr, fnReadInput, measureRegs * registerSize}
	for _, r := range regs {
		frame = binary.BigEndian.AppendUint16(frame, r)
	}
	return appendCRC(frame)
}

func TestRead(t *testing.T) {
	t.Parallel()

	regs := [measureRegs]uint16{
		2314,           // 231.4 V
		0x86A0, 0x0001, // 100000 mA
		0x2710, 0x0000, // 1000.0 W
		0x3039, 0x0000, // 12345 Wh
		500,            // 50.0 Hz
		97,             // 0.97
		0,
	}
	port := serialport.NewFake(measureReply(GeneralAddress, regs))
	dev := New(port, GeneralAddress)

	m, err := dev.Read()
	require.NoError(t, err)
	assert.InDelta(t, 231.4, m.Voltage, 1e-9)
	assert.InDelta(t, 100.0, m.Current, 1e-9)
	assert.InDelta(t, 1000.0, m.Power, 1e-9)
	assert.InDelta(t, 12.345, m.Energy, 1e-9)
	assert.InDelta(t, 50.0, m.Frequency, 1e-9)
	assert.InDelta(t, 0.97, m.PF, 1e-9)
	assert.False(t, m.Alarm)
	assert.Equal(t, request(GeneralAddress, fnReadInput, 0, measureRegs), port.Writes[0])
}

func TestRead_BadCRC(t *testing.T) {
	t.Parallel()

	reply := measureReply(GeneralAddress, [measureRegs]uint16{})
	reply[len(reply)-1] ^= 0xFF
	_, err := New(serialport.NewFake(reply), GeneralAddress).Read()
	require.ErrorIs(t, err, ErrCRC)
}

func TestRead_Exception(t *testing.T) {
	t.Parallel()

	reply := appendCRC([]byte{GeneralAddress, fnReadInput | fnException, 0x02})
	_, err := New(serialport.NewFake(reply), GeneralAddress).Read()
	require.ErrorIs(t, err, ErrException)
}

func TestRead_NoMeter(t *testing.T) {
	t.Parallel()

	_, err := New(serialport.NewFake(), GeneralAddress).Read()
	require.ErrorIs(t, err, serialport.ErrTimeout)
}

func TestReadAddress(t *testing.T) {
	t.Parallel()

	reply := appendCRC([]byte{GeneralAddress, fnReadHolding, 0x02, 0x00, 0x01})
	addr, err := New(serialport.NewFake(reply), GeneralAddress).ReadAddress()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), addr)
}

func TestSetAddress(t *testing.T) {
	t.Parallel()

	req := request(GeneralAddress, fnWriteSingle, regAddress, 0x02)
	port := serialport.NewFake(req)
	dev := New(port, GeneralAddress)

	require.NoError(t, dev.SetAddress(0x02))
	assert.Equal(t, byte(0x02), dev.Address())
	assert.Equal(t, []byte{0xF8, 0x06, 0x00, 0x02, 0x00, 0x02, 0xBD, 0xA2}, port.Writes[0])
}

func TestSetAddress_OutOfRange(t *testing.T) {
	t.Parallel()

	dev := New(serialport.NewFake(), GeneralAddress)
	require.ErrorIs(t, dev.SetAddress(0x00), ErrAddress)
	require.ErrorIs(t, dev.SetAddress(GeneralAddress), ErrAddress)
}
