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

package state

// Field names usable in publisher mappings.
const (
	FieldTemperature        = "temperature"
	FieldHumidity           = "humidity"
	FieldPressure           = "pressure"
	FieldIndoorTemperature  = "indoor_temperature"
	FieldProbeTemperature   = "probe_temperature"
	FieldBoardTemperature   = "board_temperature"
	FieldCO2                = "co2"
	FieldRSSI               = "rssi"
	FieldUptime             = "uptime"
	FieldVoltage            = "voltage"
	FieldCurrent            = "current"
	FieldPower              = "power"
	FieldEnergy             = "energy"
	FieldFrequency          = "frequency"
	FieldPF                 = "pf"
	FieldOutdoorTemperature = "outdoor_temperature"
	FieldOutdoorHumidity    = "outdoor_humidity"
	FieldWindSpeed          = "wind_speed"
	FieldWindGust           = "wind_gust"
	FieldWindDeg            = "wind_deg"
)

// FieldNames lists every name Field understands.
var FieldNames = []string{
	FieldTemperature, FieldHumidity, FieldPressure, FieldIndoorTemperature,
	FieldProbeTemperature, FieldBoardTemperature, FieldCO2, FieldRSSI,
	FieldUptime, FieldVoltage, FieldCurrent, FieldPower, FieldEnergy,
	FieldFrequency, FieldPF, FieldOutdoorTemperature, FieldOutdoorHumidity,
	FieldWindSpeed, FieldWindGust, FieldWindDeg,
}

// Temperature is the station's primary temperature: the indoor climate
// sensor when one has reported, the 1-wire probe otherwise.
func (s *Snapshot) Temperature() (int, bool) {
	if !s.Indoor.At.IsZero() {
		return s.Indoor.TemperatureC, true
	}
	if !s.Probe.At.IsZero() {
		return s.Probe.Value, true
	}
	return 0, false
}

// Field returns a channel value by name. ok is false for unknown names and
// for channels that have never produced a good sample.
//
//nolint:gocyclo // flat name table
func (s *Snapshot) Field(name string) (float64, bool) {
	switch name {
	case FieldTemperature:
		v, ok := s.Temperature()
		return float64(v), ok
	case FieldIndoorTemperature:
		return float64(s.Indoor.TemperatureC), !s.Indoor.At.IsZero()
	case FieldHumidity:
		return float64(s.Indoor.HumidityPct), !s.Indoor.At.IsZero()
	case FieldPressure:
		return float64(s.Indoor.PressureMmHg), !s.Indoor.At.IsZero()
	case FieldProbeTemperature:
		return float64(s.Probe.Value), !s.Probe.At.IsZero()
	case FieldBoardTemperature:
		return float64(s.Board.Value), !s.Board.At.IsZero()
	case FieldCO2:
		return float64(s.CO2.Value), !s.CO2.At.IsZero()
	case FieldRSSI:
		return float64(s.RSSI.Value), !s.RSSI.At.IsZero()
	case FieldUptime:
		return s.Uptime.Seconds(), s.Uptime > 0
	case FieldVoltage:
		return s.Power.Voltage, !s.Power.At.IsZero()
	case FieldCurrent:
		return s.Power.Current, !s.Power.At.IsZero()
	case FieldPower:
		return s.Power.Power, !s.Power.At.IsZero()
	case FieldEnergy:
		return s.Power.Energy, !s.Power.At.IsZero()
	case FieldFrequency:
		return s.Power.Frequency, !s.Power.At.IsZero()
	case FieldPF:
		return s.Power.PF, !s.Power.At.IsZero()
	case FieldOutdoorTemperature:
		return float64(s.Outdoor.TemperatureC), !s.Outdoor.At.IsZero()
	case FieldOutdoorHumidity:
		return float64(s.Outdoor.HumidityPct), !s.Outdoor.At.IsZero()
	case FieldWindSpeed:
		return s.Outdoor.WindSpeed, !s.Outdoor.At.IsZero()
	case FieldWindGust:
		return s.Outdoor.WindGust, !s.Outdoor.At.IsZero()
	case FieldWindDeg:
		return float64(s.Outdoor.WindDeg), !s.Outdoor.At.IsZero()
	default:
		return 0, false
	}
}
