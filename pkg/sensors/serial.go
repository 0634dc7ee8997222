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

	"github.com/ogrelab/stationd/pkg/drivers/pzem004t"
)

type co2Device interface {
	ReadCO2() (int, error)
}

// MHZ19 adapts an MH-Z19B driver to CO2Reader.
type MHZ19 struct {
	dev co2Device
}

func NewMHZ19(dev co2Device) *MHZ19 {
	return &MHZ19{dev: dev}
}

func (m *MHZ19) ReadCO2(context.Context) (float64, error) {
	ppm, err := m.dev.ReadCO2()
	if err != nil {
		return 0, err
	}
	return float64(ppm), nil
}

type powerDevice interface {
	Read() (pzem004t.Measurement, error)
}

// PZEM adapts a PZEM-004T driver to PowerReader.
type PZEM struct {
	dev powerDevice
}

func NewPZEM(dev powerDevice) *PZEM {
	return &PZEM{dev: dev}
}

func (p *PZEM) ReadPower(context.Context) (PowerSample, error) {
	m, err := p.dev.Read()
	if err != nil {
		return PowerSample{}, err
	}
	return PowerSample{
		Voltage:   m.Voltage,
		Current:   m.Current,
		Power:     m.Power,
		Energy:    m.Energy,
		Frequency: m.Frequency,
		PF:        m.PF,
	}, nil
}
