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
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLinkRetry       = 500 * time.Millisecond
	DefaultLinkTimeout     = 15 * time.Second
	DefaultSessionRetry    = 5 * time.Second
	DefaultSessionAttempts = 3
)

var (
	ErrLinkTimeout   = errors.New("link connect timed out")
	ErrSessionFailed = errors.New("session connect failed")
)

// Restarter performs a hard restart of the station.
type Restarter interface {
	Restart(reason string)
}

// RestartFunc adapts a function to Restarter.
type RestartFunc func(reason string)

func (f RestartFunc) Restart(reason string) { f(reason) }

type Options struct {
	Clock            clockwork.Clock
	Restarter        Restarter
	State            *state.State
	LinkRetry        time.Duration
	LinkTimeout      time.Duration
	SessionRetry     time.Duration
	SessionAttempts  int
	RestartOnTimeout bool
}

// Manager repairs the link and sessions. Its methods block for at most the
// configured retry windows and are meant to be called from scheduler jobs.
type Manager struct {
	link     Link
	linkM    *Machine
	sessions []Session
	sessM    map[string]*Machine
	opts     Options
}

func NewManager(link Link, opts Options) *Manager {
	if link == nil {
		link = AlwaysUp{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.LinkRetry <= 0 {
		opts.LinkRetry = DefaultLinkRetry
	}
	if opts.LinkTimeout <= 0 {
		opts.LinkTimeout = DefaultLinkTimeout
	}
	if opts.SessionRetry <= 0 {
		opts.SessionRetry = DefaultSessionRetry
	}
	if opts.SessionAttempts <= 0 {
		opts.SessionAttempts = DefaultSessionAttempts
	}
	return &Manager{
		link:  link,
		linkM: NewMachine("link " + link.Name()),
		sessM: make(map[string]*Machine),
		opts:  opts,
	}
}

// AddSession puts s under the health check.
func (m *Manager) AddSession(s Session) {
	m.sessions = append(m.sessions, s)
	m.sessM[s.Name()] = NewMachine("session " + s.Name())
}

func (m *Manager) LinkState() State {
	return m.linkM.State()
}

// SessionStates reports every session's state by name.
func (m *Manager) SessionStates() map[string]State {
	out := make(map[string]State, len(m.sessM))
	for name, mach := range m.sessM {
		out[name] = mach.State()
	}
	return out
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.opts.Clock.After(d):
		return nil
	}
}

func (m *Manager) setHealthy(healthy bool) {
	if m.opts.State == nil {
		return
	}
	if m.opts.State.SetLinkHealthy(healthy) {
		log.Info().Msgf("link healthy: %t", healthy)
	}
}

// EnsureLink waits for the link, kicking it once, for up to the link
// timeout. A timeout leaves the link Failed and restarts the station when
// configured to.
func (m *Manager) EnsureLink(ctx context.Context) error {
	if m.link.Connected() {
		m.linkM.set(Connected)
		return nil
	}

	m.linkM.set(Connecting)
	log.Info().Msgf("connecting to %s", m.link.Name())
	if err := m.link.Connect(ctx); err != nil && !errors.Is(err, ErrNoCommand) {
		log.Warn().Err(err).Msgf("%s connect failed", m.link.Name())
	}

	deadline := m.opts.Clock.Now().Add(m.opts.LinkTimeout)
	for !m.link.Connected() {
		if !m.opts.Clock.Now().Before(deadline) {
			m.linkM.set(Failed)
			m.setHealthy(false)
			log.Error().Msgf("%s: no link after %s", m.link.Name(), m.opts.LinkTimeout)
			if m.opts.RestartOnTimeout && m.opts.Restarter != nil {
				m.opts.Restarter.Restart("link timeout")
			}
			return ErrLinkTimeout
		}
		if err := m.sleep(ctx, m.opts.LinkRetry); err != nil {
			m.linkM.set(Disconnected)
			return fmt.Errorf("link connect: %w", err)
		}
	}

	m.linkM.set(Connected)
	log.Info().Msgf("%s connected", m.link.Name())
	return nil
}

// EnsureSession reconnects s if it is down, up to the configured number of
// attempts. It never restarts the station.
func (m *Manager) EnsureSession(ctx context.Context, s Session) error {
	mach, ok := m.sessM[s.Name()]
	if !ok {
		mach = NewMachine("session " + s.Name())
	}
	if s.Connected() {
		mach.set(Connected)
		return nil
	}

	mach.set(Connecting)
	var lastErr error
	for attempt := 1; attempt <= m.opts.SessionAttempts; attempt++ {
		lastErr = s.Connect(ctx)
		if lastErr == nil {
			mach.set(Connected)
			m.setHealthy(true)
			log.Info().Msgf("%s connected", s.Name())
			return nil
		}
		log.Warn().Err(lastErr).Msgf("%s: attempt %d/%d failed", s.Name(), attempt, m.opts.SessionAttempts)
		if attempt == m.opts.SessionAttempts {
			break
		}
		if err := m.sleep(ctx, m.opts.SessionRetry); err != nil {
			mach.set(Disconnected)
			return fmt.Errorf("%s connect: %w", s.Name(), err)
		}
	}

	mach.set(Failed)
	m.setHealthy(false)
	return fmt.Errorf("%w: %s: %w", ErrSessionFailed, s.Name(), lastErr)
}

// Check runs EnsureLink and then EnsureSession for every session.
func (m *Manager) Check(ctx context.Context) error {
	if err := m.EnsureLink(ctx); err != nil {
		return err
	}
	var errs []error
	for _, s := range m.sessions {
		if err := m.EnsureSession(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HealthJob is the periodic connectivity check.
func (m *Manager) HealthJob() scheduler.Func {
	return func(ctx context.Context, _ *scheduler.Job) {
		if err := m.Check(ctx); err != nil {
			log.Warn().Err(err).Msg("connectivity check failed")
		}
	}
}
