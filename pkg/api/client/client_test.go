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

package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ogrelab/stationd/pkg/api"
	"github.com/ogrelab/stationd/pkg/relay"
	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type station struct {
	st     *state.State
	sched  *scheduler.Scheduler
	relays relay.Bank
	client *Client
}

func newStation(t *testing.T) *station {
	t.Helper()

	st := state.New()
	sched := scheduler.New()
	require.NoError(t, sched.Register(scheduler.Every("rtc.now", 100*time.Millisecond, func(context.Context, *scheduler.Job) {})))
	heater, err := relay.New("heater", &gpiotest.Pin{N: "GPIO5"}, 0, 2, false)
	require.NoError(t, err)
	relays := relay.Bank{heater}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	broker := state.NewBroker(st.Changes())
	broker.Start(ctx)

	srv := httptest.NewServer(api.NewServer(st, broker, sched, relays, api.Options{}).Router())
	t.Cleanup(srv.Close)

	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	return &station{st: st, sched: sched, relays: relays, client: c}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	s := newStation(t)
	s.st.Update(func(snap *state.Snapshot) {
		snap.Probe = state.Reading{At: time.Now(), Value: 18}
	})

	status, err := s.client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 18, status.Snapshot.Probe.Value)
	assert.Len(t, status.Relays, 1)
}

func TestJobs(t *testing.T) {
	t.Parallel()

	s := newStation(t)
	ctx := context.Background()

	jobs, err := s.client.Jobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "rtc.now", jobs[0].Name)

	require.NoError(t, s.client.SetJobEnabled(ctx, "rtc.now", false))
	assert.False(t, s.sched.IsEnabled("rtc.now"))

	err = s.client.SetJobEnabled(ctx, "missing", true)
	require.ErrorIs(t, err, ErrStatus)
	assert.Contains(t, err.Error(), "404")
}

func TestSetRelay(t *testing.T) {
	t.Parallel()

	s := newStation(t)
	status, err := s.client.SetRelay(context.Background(), "heater", true)
	require.NoError(t, err)
	assert.Equal(t, relay.Status{Name: "heater", On: true}, *status)
	assert.True(t, s.relays[0].On())
}

func TestWatch(t *testing.T) {
	t.Parallel()

	s := newStation(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var seen []state.Snapshot
	err := s.client.Watch(ctx, func(snap state.Snapshot) bool {
		seen = append(seen, snap)
		if len(seen) == 1 {
			s.st.Update(func(sn *state.Snapshot) { sn.CO2 = state.Reading{At: time.Now(), Value: 900} })
			return true
		}
		return snap.CO2.Value != 900
	})

	require.NoError(t, err)
	require.GreaterOrEqual(t, len(seen), 2)
	assert.Equal(t, 900, seen[len(seen)-1].CO2.Value)
}

func TestWatchStopsOnCancel(t *testing.T) {
	t.Parallel()

	s := newStation(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.client.Watch(ctx, func(state.Snapshot) bool {
		cancel()
		return true
	})
	require.NoError(t, err)
}

func TestConnectionFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(nil)
	base := srv.URL
	srv.Close()

	c, err := New(base)
	require.NoError(t, err)
	_, err = c.Status(context.Background())
	require.Error(t, err)
	require.Error(t, c.Watch(context.Background(), func(state.Snapshot) bool { return true }))
}
