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
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/relay"
	"github.com/ogrelab/stationd/pkg/shared/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func testRelays(t *testing.T) (relay.Bank, []*gpiotest.Pin) {
	t.Helper()
	pins := []*gpiotest.Pin{{N: "GPIO5"}, {N: "GPIO4"}}
	heater, err := relay.New("heater", pins[0], 0, 2, false)
	require.NoError(t, err)
	pump, err := relay.New("pump", pins[1], 1, 3, false)
	require.NoError(t, err)
	return relay.Bank{heater, pump}, pins
}

func TestBoardTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "6-3-2024 4:5:9", BoardTime(time.Date(2024, 3, 6, 4, 5, 9, 0, time.UTC)))
	assert.Equal(t, "31-12-2023 23:59:0", BoardTime(time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)))
}

func TestBlynkUpdateQuery(t *testing.T) {
	t.Parallel()

	relays, _ := testRelays(t)
	require.NoError(t, relays[0].Set(true))

	q := NewBlynk(nil, config.Blynk{Token: "T"}, relays).UpdateQuery(testSnapshot())

	assert.Equal(t, "T", q.Get("token"))
	assert.Equal(t, "5400", q.Get("V5"))
	assert.Equal(t, "6-3-2024 14:5:9", q.Get("V6"))
	assert.Equal(t, "0", q.Get("V2"))
	assert.Equal(t, "255", q.Get("V3"))
}

func TestParseButtons(t *testing.T) {
	t.Parallel()

	got, err := ParseButtons([]byte(`{"V0":1,"V1":"0"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"V0": 1, "V1": 0}, got)

	_, err = ParseButtons([]byte(`{"V0":"on"}`))
	require.ErrorIs(t, err, ErrButtonValue)

	_, err = ParseButtons([]byte(`[1,0]`))
	require.Error(t, err)
}

func TestBlynkPublishSyncsRelays(t *testing.T) {
	t.Parallel()

	relays, pins := testRelays(t)
	var updates, gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/external/api/batch/update":
			updates.Add(1)
			assert.Equal(t, "T", r.URL.Query().Get("token"))
			assert.Equal(t, "255", r.URL.Query().Get("V2"))
		case "/external/api/get":
			gets.Add(1)
			assert.Equal(t, "token=T&V0&V1", r.URL.RawQuery)
			_, _ = fmt.Fprint(w, `{"V0":1,"V1":0}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	b := NewBlynk(httpclient.NewClient(nil, time.Second), config.Blynk{URL: srv.URL, Token: "T"}, relays)
	require.NoError(t, b.Publish(context.Background(), testSnapshot()))

	assert.Equal(t, int32(1), updates.Load())
	assert.Equal(t, int32(1), gets.Load())
	assert.True(t, relays[0].On())
	assert.False(t, relays[1].On())
	assert.Equal(t, gpio.High, pins[0].Read())
	assert.Equal(t, gpio.Low, pins[1].Read())
}

func TestBlynkPublishFailures(t *testing.T) {
	t.Parallel()

	t.Run("update rejected", func(t *testing.T) {
		t.Parallel()
		relays, _ := testRelays(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		t.Cleanup(srv.Close)

		b := NewBlynk(httpclient.NewClient(nil, time.Second), config.Blynk{URL: srv.URL}, relays)
		assert.Equal(t, 400, Code(b.Publish(context.Background(), testSnapshot())))
	})

	t.Run("no relays skips button read", func(t *testing.T) {
		t.Parallel()
		paths := make(chan string, 4)
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			paths <- r.URL.Path
		}))
		t.Cleanup(srv.Close)

		b := NewBlynk(httpclient.NewClient(nil, time.Second), config.Blynk{URL: srv.URL}, nil)
		require.NoError(t, b.Publish(context.Background(), testSnapshot()))
		close(paths)
		var got []string
		for p := range paths {
			got = append(got, p)
		}
		assert.Equal(t, []string{"/external/api/batch/update"}, got)
	})
}
