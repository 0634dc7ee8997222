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

// Package publishers pushes shared state snapshots to cloud services. Each
// publisher runs as a scheduler job; its outcome drives the station's link
// health flag.
package publishers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/connectivity"
	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/rs/zerolog/log"
)

// Publisher encodes and sends one snapshot.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, snap *state.Snapshot) error
}

// Ensurer reconnects a session; the connectivity manager implements it.
type Ensurer interface {
	EnsureSession(ctx context.Context, s connectivity.Session) error
}

// StatusError is a failed publish with the upstream's result code. Codes
// below zero are local: -1 is a transport failure.
type StatusError struct {
	Service string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: problem updating channel, HTTP error code %d", e.Service, e.Code)
}

// CodeTransport is the result code for requests that got no response.
const CodeTransport = -1

// Code extracts the result code from a publish error: 200 for success,
// CodeTransport for anything without a status.
func Code(err error) int {
	if err == nil {
		return 200
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeTransport
}

// ResultObserver sees every publish outcome.
type ResultObserver func(publisher string, err error)

// Runner turns publishers into jobs and applies the reconnect policy.
type Runner struct {
	st       *state.State
	ensurer  Ensurer
	observer ResultObserver
	policy   string
}

func NewRunner(st *state.State, policy string, ensurer Ensurer) *Runner {
	if policy == "" {
		policy = config.ReconnectDeferred
	}
	return &Runner{st: st, policy: policy, ensurer: ensurer}
}

func (r *Runner) WithObserver(obs ResultObserver) *Runner {
	r.observer = obs
	return r
}

type markDowner interface {
	MarkDown()
}

// Job publishes with p. session may be nil for publishers without one. With
// the inline policy a down session is reconnected first; with the deferred
// policy the publish just fails and the health check repairs the session.
func (r *Runner) Job(p Publisher, session connectivity.Session) scheduler.Func {
	return func(ctx context.Context, _ *scheduler.Job) {
		err := r.publish(ctx, p, session)
		if r.observer != nil {
			r.observer(p.Name(), err)
		}
		if err != nil {
			log.Warn().Err(err).Msgf("%s publish failed", p.Name())
			if md, ok := session.(markDowner); ok && Code(err) == CodeTransport {
				md.MarkDown()
			}
		} else {
			log.Debug().Msgf("%s: channel update successful", p.Name())
		}
		if r.st.SetLinkHealthy(err == nil) {
			log.Info().Msgf("link healthy: %t", err == nil)
		}
	}
}

func (r *Runner) publish(ctx context.Context, p Publisher, session connectivity.Session) error {
	if session != nil && !session.Connected() {
		if r.policy != config.ReconnectInline || r.ensurer == nil {
			return fmt.Errorf("%s not connected", session.Name())
		}
		if err := r.ensurer.EnsureSession(ctx, session); err != nil {
			return err
		}
	}
	snap := r.st.Snapshot()
	return p.Publish(ctx, &snap)
}
