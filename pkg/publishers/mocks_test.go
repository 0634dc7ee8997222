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
	"errors"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ogrelab/stationd/pkg/connectivity"
	"github.com/ogrelab/stationd/pkg/helpers/syncutil"
	"github.com/ogrelab/stationd/pkg/state"
)

// mockMQTTClient implements mqtt.Client for testing
type mockMQTTClient struct {
	publishError  error
	publishedMsgs []publishedMessage
	timeout       bool
	connected     bool
	mu            syncutil.Mutex
}

type publishedMessage struct {
	payload  any
	topic    string
	qos      byte
	retained bool
}

func (m *mockMQTTClient) published() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedMessage(nil), m.publishedMsgs...)
}

func (m *mockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockMQTTClient) IsConnectionOpen() bool {
	return m.IsConnected()
}

func (m *mockMQTTClient) Connect() mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return &mockToken{complete: true}
}

func (m *mockMQTTClient) Disconnect(_ uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

func (m *mockMQTTClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	if m.publishError != nil {
		return &mockToken{err: m.publishError, complete: true}
	}
	if m.timeout {
		return &mockToken{}
	}
	m.mu.Lock()
	m.publishedMsgs = append(m.publishedMsgs, publishedMessage{
		topic:    topic,
		qos:      qos,
		retained: retained,
		payload:  payload,
	})
	m.mu.Unlock()
	return &mockToken{complete: true}
}

func (*mockMQTTClient) Subscribe(_ string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	return &mockToken{complete: true}
}

func (*mockMQTTClient) SubscribeMultiple(_ map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	return &mockToken{complete: true}
}

func (*mockMQTTClient) Unsubscribe(_ ...string) mqtt.Token {
	return &mockToken{complete: true}
}

func (*mockMQTTClient) AddRoute(_ string, _ mqtt.MessageHandler) {}

func (*mockMQTTClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

// mockToken implements mqtt.Token for testing
type mockToken struct {
	err      error
	complete bool
}

func (*mockToken) Wait() bool {
	return true
}

func (t *mockToken) WaitTimeout(_ time.Duration) bool {
	return t.complete
}

func (*mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *mockToken) Error() error {
	return t.err
}

// mockSession hands out the mock client and records subscriptions.
type mockSession struct {
	client   *mockMQTTClient
	handlers map[string]mqtt.MessageHandler
}

func newMockSession(connected bool) *mockSession {
	return &mockSession{
		client:   &mockMQTTClient{connected: connected},
		handlers: map[string]mqtt.MessageHandler{},
	}
}

func (s *mockSession) Client() mqtt.Client { return s.client }

func (s *mockSession) Subscribe(topic string, handler mqtt.MessageHandler) {
	s.handlers[topic] = handler
}

// mockMessage implements mqtt.Message for testing
type mockMessage struct {
	topic   string
	payload []byte
}

func (*mockMessage) Duplicate() bool   { return false }
func (*mockMessage) Qos() byte         { return 0 }
func (*mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string   { return m.topic }
func (*mockMessage) MessageID() uint16 { return 1 }
func (m *mockMessage) Payload() []byte { return m.payload }
func (*mockMessage) Ack()              {}

// fakePublisher returns err from every publish.
type fakePublisher struct {
	err   error
	calls int
}

func (*fakePublisher) Name() string { return "fake" }

func (p *fakePublisher) Publish(context.Context, *state.Snapshot) error {
	p.calls++
	return p.err
}

// fakeSession is an HTTP style session with a scripted connect outcome.
type fakeSession struct {
	up         bool
	markedDown bool
}

func (*fakeSession) Name() string                  { return "cloud" }
func (s *fakeSession) Connected() bool             { return s.up }
func (*fakeSession) Connect(context.Context) error { return errors.New("unreachable") }
func (s *fakeSession) MarkDown()                   { s.markedDown = true; s.up = false }

// fakeEnsurer records EnsureSession calls and brings the session up when ok.
type fakeEnsurer struct {
	calls int
	ok    bool
}

func (e *fakeEnsurer) EnsureSession(_ context.Context, s connectivity.Session) error {
	e.calls++
	if !e.ok {
		return connectivity.ErrSessionFailed
	}
	if fs, ok := s.(*fakeSession); ok {
		fs.up = true
	}
	return nil
}
