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

import "time"

const (
	DefaultThingSpeakURL = "https://api.thingspeak.com/update"
	DefaultBlynkURL      = "https://blynk.cloud"
)

type Publishers struct {
	ThingSpeak ThingSpeak    `toml:"thingspeak,omitempty"`
	MQTT       MQTTPublisher `toml:"mqtt,omitempty"`
	Influx     Influx        `toml:"influx,omitempty"`
	Blynk      Blynk         `toml:"blynk,omitempty"`
}

// ThingSpeak maps shared state fields onto channel fields 1..8 in order.
type ThingSpeak struct {
	URL     string   `toml:"url,omitempty" validate:"omitempty,url"`
	APIKey  string   `toml:"api_key,omitempty"`
	Fields  []string `toml:"fields,omitempty" validate:"max=8"`
	PeriodS int      `toml:"period_s,omitempty" validate:"min=0"`
	Enabled bool     `toml:"enabled"`
}

type MQTTPublisher struct {
	Broker       string `toml:"broker,omitempty" validate:"omitempty,broker"`
	Topic        string `toml:"topic,omitempty"`
	InboundTopic string `toml:"inbound_topic,omitempty"`
	ClientID     string `toml:"client_id,omitempty"`
	Phase        string `toml:"phase,omitempty"`
	PeriodS      int    `toml:"period_s,omitempty" validate:"min=0"`
	Enabled      bool   `toml:"enabled"`
}

// Influx writes the RSSI point to an InfluxDB v2 bucket. Token may also be
// given as a bearer entry in auth.toml.
type Influx struct {
	URL     string `toml:"url,omitempty" validate:"omitempty,url"`
	Org     string `toml:"org,omitempty"`
	Bucket  string `toml:"bucket,omitempty"`
	Token   string `toml:"token,omitempty"`
	Device  string `toml:"device,omitempty"`
	SSID    string `toml:"ssid,omitempty"`
	PeriodS int    `toml:"period_s,omitempty" validate:"min=0"`
	Enabled bool   `toml:"enabled"`
}

type Blynk struct {
	URL     string `toml:"url,omitempty" validate:"omitempty,url"`
	Token   string `toml:"token,omitempty"`
	PeriodS int    `toml:"period_s,omitempty" validate:"min=0"`
	Enabled bool   `toml:"enabled"`
}

func (c *Instance) Publishers() Publishers {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.vals.Publishers
	p.ThingSpeak.Fields = append([]string(nil), p.ThingSpeak.Fields...)
	return p
}

func (p ThingSpeak) Endpoint() string {
	if p.URL == "" {
		return DefaultThingSpeakURL
	}
	return p.URL
}

func (p ThingSpeak) Period() time.Duration    { return orDefault(p.PeriodS, 60) * time.Second }
func (p MQTTPublisher) Period() time.Duration { return orDefault(p.PeriodS, 10) * time.Second }
func (p Influx) Period() time.Duration        { return orDefault(p.PeriodS, 10) * time.Second }
func (p Blynk) Period() time.Duration         { return orDefault(p.PeriodS, 1) * time.Second }

func (p Blynk) Endpoint() string {
	if p.URL == "" {
		return DefaultBlynkURL
	}
	return p.URL
}
