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

package connectivity

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttDisconnectMs   = 250
)

// BrokerProtocol contains parsed MQTT protocol information.
type BrokerProtocol struct {
	Protocol  string
	Scheme    string
	Remainder string
	UseTLS    bool
}

// ParseBrokerProtocol extracts protocol information from a broker URL.
//
// Examples:
//   - "mqtts://broker:8883" -> {Protocol: "ssl", UseTLS: true, Scheme: "mqtts", Remainder: "broker:8883"}
//   - "mqtt://broker:1883" -> {Protocol: "tcp", UseTLS: false, Scheme: "mqtt", Remainder: "broker:1883"}
//   - "broker:1883" -> {Protocol: "tcp", UseTLS: false, Scheme: "", Remainder: "broker:1883"}
func ParseBrokerProtocol(urlStr string) BrokerProtocol {
	info := BrokerProtocol{Protocol: "tcp", Remainder: urlStr}

	scheme, rest, ok := strings.Cut(urlStr, "://")
	if !ok {
		return info
	}
	info.Scheme = scheme
	info.Remainder = rest
	switch scheme {
	case "mqtts", "ssl", "tls":
		info.Protocol = "ssl"
		info.UseTLS = true
	case "ws":
		info.Protocol = "ws"
	case "wss":
		info.Protocol = "wss"
		info.UseTLS = true
	}
	return info
}

// NewClientOptions builds paho options for brokerURL, taking credentials
// from lookup. An empty clientID gets a random one with the station prefix.
func NewClientOptions(brokerURL, clientID string, lookup func(string) *config.CredentialEntry) *mqtt.ClientOptions {
	proto := ParseBrokerProtocol(brokerURL)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s", proto.Protocol, proto.Remainder))
	if clientID == "" {
		clientID = config.AppName + "-" + uuid.New().String()[:8]
	}
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	// The connectivity manager owns initial connect retries.
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetOrderMatters(false)

	if lookup != nil {
		if creds := lookup(brokerURL); creds != nil && creds.Username != "" {
			opts.SetUsername(creds.Username)
			opts.SetPassword(creds.Password)
			log.Debug().Msgf("mqtt: using authentication for %s", proto.Remainder)
		}
	}

	if proto.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
		log.Debug().Msgf("mqtt: using TLS for %s", proto.Remainder)
	}

	return opts
}

type subscription struct {
	handler mqtt.MessageHandler
	topic   string
}

// MQTTSession owns one paho client. Subscriptions are replayed on every
// (re)connect.
type MQTTSession struct {
	client mqtt.Client
	broker string
	subs   []subscription
	mu     syncutil.Mutex
}

// ClientFactory creates the paho client; tests substitute a mock.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

func NewMQTTSession(opts *mqtt.ClientOptions, factory ClientFactory) *MQTTSession {
	if factory == nil {
		factory = mqtt.NewClient
	}
	s := &MQTTSession{}
	if len(opts.Servers) > 0 {
		s.broker = opts.Servers[0].Host
	}
	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msgf("mqtt: connection to %s lost", s.broker)
	})
	s.client = factory(opts)
	return s
}

func (s *MQTTSession) Name() string {
	return "mqtt " + s.broker
}

func (s *MQTTSession) Client() mqtt.Client {
	return s.client
}

// Subscribe registers handler for topic. It takes effect now if connected
// and again after every reconnect.
func (s *MQTTSession) Subscribe(topic string, handler mqtt.MessageHandler) {
	s.mu.Lock()
	s.subs = append(s.subs, subscription{topic: topic, handler: handler})
	s.mu.Unlock()

	if s.client.IsConnected() {
		s.subscribe(s.client, topic, handler)
	}
}

func (s *MQTTSession) subscribe(c mqtt.Client, topic string, handler mqtt.MessageHandler) {
	token := c.Subscribe(topic, 0, handler)
	if !token.WaitTimeout(mqttConnectTimeout) {
		log.Warn().Msgf("mqtt: subscribe to %s timed out", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Warn().Err(err).Msgf("mqtt: failed to subscribe to %s", topic)
		return
	}
	log.Debug().Msgf("mqtt: subscribed to %s", topic)
}

func (s *MQTTSession) onConnect(c mqtt.Client) {
	log.Info().Msgf("mqtt: connected to %s", s.broker)
	s.mu.Lock()
	subs := append([]subscription(nil), s.subs...)
	s.mu.Unlock()
	for _, sub := range subs {
		s.subscribe(c, sub.topic, sub.handler)
	}
}

func (s *MQTTSession) Connect(ctx context.Context) error {
	token := s.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt connect: %w", ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

func (s *MQTTSession) Connected() bool {
	return s.client.IsConnected()
}

func (s *MQTTSession) Close() {
	if s.client.IsConnected() {
		log.Debug().Msg("mqtt: disconnecting")
		s.client.Disconnect(mqttDisconnectMs)
	}
}
