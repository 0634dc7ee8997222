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

package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

var (
	ErrNotConnected   = errors.New("mqtt client not connected")
	ErrPublishTimeout = errors.New("mqtt publish timed out")
)

// MQTTClient is the part of the MQTT session the publisher needs.
type MQTTClient interface {
	Client() mqtt.Client
	Subscribe(topic string, handler mqtt.MessageHandler)
}

// MQTT publishes a JSON document of named readings to one topic.
type MQTT struct {
	session MQTTClient
	topic   string
	did     string
	phase   string
}

// NewMQTT publishes through session. When cfg has an inbound topic, its
// messages are subscribed to and logged.
func NewMQTT(session MQTTClient, cfg config.MQTTPublisher, deviceID string) *MQTT {
	p := &MQTT{
		session: session,
		topic:   cfg.Topic,
		did:     deviceID,
		phase:   cfg.Phase,
	}
	if cfg.InboundTopic != "" {
		session.Subscribe(cfg.InboundTopic, p.handleInbound)
	}
	return p
}

func (*MQTT) Name() string {
	return "mqtt"
}

// Payload encodes the document. Readings that never produced a good sample
// are left out.
func (p *MQTT) Payload(snap *state.Snapshot) ([]byte, error) {
	doc := map[string]any{"did": p.did}
	if p.phase != "" {
		doc["phase"] = p.phase
	}
	if !snap.Power.At.IsZero() {
		doc["voltage"] = snap.Power.Voltage
		doc["current"] = snap.Power.Current
		doc["power"] = snap.Power.Power
		doc["energy"] = snap.Power.Energy
		doc["frequency"] = snap.Power.Frequency
		doc["pf"] = snap.Power.PF
	}
	if !snap.Indoor.At.IsZero() {
		doc["humidity"] = snap.Indoor.HumidityPct
	}
	if temp, ok := snap.Temperature(); ok {
		doc["temperature"] = temp
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mqtt payload: %w", err)
	}
	return payload, nil
}

func (p *MQTT) Publish(_ context.Context, snap *state.Snapshot) error {
	client := p.session.Client()
	if !client.IsConnected() {
		return ErrNotConnected
	}
	payload, err := p.Payload(snap)
	if err != nil {
		return err
	}
	token := client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	log.Debug().Msgf("mqtt publisher: published to %s", p.topic)
	return nil
}

type inboundMessage struct {
	Message string `json:"message"`
}

func (*MQTT) handleInbound(_ mqtt.Client, msg mqtt.Message) {
	var in inboundMessage
	if err := json.Unmarshal(msg.Payload(), &in); err != nil {
		log.Warn().Err(err).Msgf("mqtt: invalid message on %s", msg.Topic())
		return
	}
	log.Info().Str("topic", msg.Topic()).Msgf("incoming message: %s", in.Message)
}
