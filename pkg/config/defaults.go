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

package config

// Job names referenced by activation stages.
const (
	JobThingSpeak   = "publish.thingspeak"
	JobWeather      = "weather.fetch"
	JobTimeSync     = "clock.sync"
	JobCO2Calibrate = "co2.calibrate"
	JobMQTT         = "publish.mqtt"
	JobInflux       = "publish.influx"
	JobBlynk        = "publish.blynk"
)

// BaseDefaults reproduce the weather clock bring-up: weather after 20 ticks,
// telemetry after 25, time sync after 30 and CO2 zero calibration after 20
// minutes, when enabled.
var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Station: Station{
		Name: "stationd",
		City: "Ogre, LV",
	},
	Display: Display{
		Device: DisplayNone,
		Layout: LayoutClock,
	},
	Connectivity: Connectivity{
		ReconnectPolicy: ReconnectDeferred,
	},
	Activation: Activation{
		Stages: []Stage{
			{At: 20, Job: JobWeather},
			{At: 25, Job: JobThingSpeak},
			{At: 30, Job: JobTimeSync},
			{At: 1200, Job: JobCO2Calibrate, Requires: RequiresZeroCalibration},
		},
	},
}
