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

// Package pzem004t drives a Peacefair PZEM-004T v3 energy meter over its
// Modbus-RTU UART interface.
package pzem004t

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ogrelab/stationd/pkg/drivers/serialport"
)

const (
	// GeneralAddress reaches whichever single meter is on the bus.
	GeneralAddress = 0xF8

	MinAddress = 0x01
	MaxAddress = 0xF7

	fnReadHolding = 0x03
	fnReadInput   = 0x04
	fnWriteSingle = 0x06
	fnException   = 0x80

	regAddress   = 0x0002
	measureRegs  = 10
	registerSize = 2
)

var (
	ErrCRC       = errors.New("pzem004t: bad crc")
	ErrFrame     = errors.New("pzem004t: unexpected response")
	ErrException = errors.New("pzem004t: device exception")
	ErrAddress   = errors.New("pzem004t: address out of range")
)

// Measurement is one reading of all measurement registers.
type Measurement struct {
	Voltage   float64 // V
	Current   float64 // A
	Power     float64 // W
	Energy    float64 // kWh
	Frequency float64 // Hz
	PF        float64
	Alarm     bool
}

type Device struct {
	port serialport.Port
	addr byte
}

// New talks to the meter at addr. Pass GeneralAddress when only one meter
// is connected.
func New(port serialport.Port, addr byte) *Device {
	return &Device{port: port, addr: addr}
}

func Open(factory serialport.Factory, path string, addr byte) (*Device, error) {
	port, err := serialport.Connect(factory, path)
	if err != nil {
		return nil, fmt.Errorf("pzem004t: %w", err)
	}
	return New(port, addr), nil
}

// CRC16 is the Modbus CRC (poly 0xA001, init 0xFFFF).
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for range 8 {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func appendCRC(frame []byte) []byte {
	return binary.LittleEndian.AppendUint16(frame, CRC16(frame))
}

func checkCRC(frame []byte) error {
	n := len(frame) - 2
	if binary.LittleEndian.Uint16(frame[n:]) != CRC16(frame[:n]) {
		return ErrCRC
	}
	return nil
}

func request(addr, fn byte, reg, val uint16) []byte {
	frame := []byte{addr, fn}
	frame = binary.BigEndian.AppendUint16(frame, reg)
	frame = binary.BigEndian.AppendUint16(frame, val)
	return appendCRC(frame)
}

// transact sends req and reads a response whose body after the three byte
// header is rest bytes long, CRC included.
func (d *Device) transact(req []byte, rest int) ([]byte, error) {
	head, err := serialport.Transact(d.port, req, 3)
	if err != nil {
		return nil, fmt.Errorf("pzem004t: %w", err)
	}
	if head[1]&fnException != 0 {
		tail, err := serialport.ReadFull(d.port, 2)
		if err != nil {
			return nil, fmt.Errorf("pzem004t: %w", err)
		}
		if err := checkCRC(append(head, tail...)); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: code 0x%02X", ErrException, head[2])
	}
	if head[1] != req[1] {
		return nil, fmt.Errorf("%w: function 0x%02X", ErrFrame, head[1])
	}
	tail, err := serialport.ReadFull(d.port, rest)
	if err != nil {
		return nil, fmt.Errorf("pzem004t: %w", err)
	}
	frame := append(head, tail...)
	if err := checkCRC(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// Read returns all measurements in one transaction.
func (d *Device) Read() (Measurement, error) {
	n := measureRegs * registerSize
	frame, err := d.transact(request(d.addr, fnReadInput, 0, measureRegs), n+2)
	if err != nil {
		return Measurement{}, err
	}
	if int(frame[2]) != n {
		return Measurement{}, fmt.Errorf("%w: %d data bytes", ErrFrame, frame[2])
	}
	data := frame[3 : 3+n]
	reg := func(i int) uint32 {
		return uint32(binary.BigEndian.Uint16(data[i*2:]))
	}
	// 32-bit values are sent low word first.
	long := func(i int) uint32 {
		return reg(i) | reg(i+1)<<16
	}
	return Measurement{
		Voltage:   float64(reg(0)) / 10,
		Current:   float64(long(1)) / 1000,
		Power:     float64(long(3)) / 10,
		Energy:    float64(long(5)) / 1000,
		Frequency: float64(reg(7)) / 10,
		PF:        float64(reg(8)) / 100,
		Alarm:     reg(9) != 0,
	}, nil
}

// ReadAddress returns the slave address stored in the meter.
func (d *Device) ReadAddress() (byte, error) {
	frame, err := d.transact(request(d.addr, fnReadHolding, regAddress, 1), registerSize+2)
	if err != nil {
		return 0, err
	}
	return frame[4], nil
}

// SetAddress stores a new slave address. Later requests from d use it.
func (d *Device) SetAddress(addr byte) error {
	if addr < MinAddress || addr > MaxAddress {
		return fmt.Errorf("%w: 0x%02X", ErrAddress, addr)
	}
	req := request(d.addr, fnWriteSingle, regAddress, uint16(addr))
	if _, err := d.transact(req, len(req)-3); err != nil {
		return err
	}
	d.addr = addr
	return nil
}

func (d *Device) Address() byte {
	return d.addr
}

func (d *Device) Close() error {
	return d.port.Close()
}
