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
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/shared/httpclient"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *state.Snapshot {
	at := time.Date(2024, 3, 6, 14, 5, 9, 0, time.UTC)
	return &state.Snapshot{
		Time:   at,
		Indoor: state.Climate{At: at, TemperatureC: 21, HumidityPct: 40, PressureMmHg: 755},
		Probe:  state.Reading{At: at, Value: 19},
		RSSI:   state.Reading{At: at, Value: -67},
		Uptime: 90 * time.Minute,
	}
}

func TestThingSpeakForm(t *testing.T) {
	t.Parallel()

	ts := NewThingSpeak(nil, config.ThingSpeak{
		APIKey: "KEY",
		Fields: []string{state.FieldTemperature, "", state.FieldCO2, state.FieldRSSI},
	})
	form := ts.Form(testSnapshot())

	assert.Equal(t, "KEY", form.Get("api_key"))
	assert.Equal(t, "21", form.Get("field1"))
	assert.False(t, form.Has("field2"))
	assert.False(t, form.Has("field3"), "co2 never sampled")
	assert.Equal(t, "-67", form.Get("field4"))
	assert.Equal(t, "Last updated: 2024/03/06 14:05:09", form.Get("status"))
}

func TestThingSpeakFormIgnoresExtraFields(t *testing.T) {
	t.Parallel()

	fields := make([]string, 10)
	for i := range fields {
		fields[i] = state.FieldHumidity
	}
	form := NewThingSpeak(nil, config.ThingSpeak{Fields: fields}).Form(testSnapshot())

	assert.True(t, form.Has("field8"))
	assert.False(t, form.Has("field9"))
}

func TestThingSpeakWithStatus(t *testing.T) {
	t.Parallel()

	ts := NewThingSpeak(nil, config.ThingSpeak{}).WithStatus(func(*state.Snapshot) string {
		return "   Ogre, LV   "
	})
	assert.Equal(t, "Last updated: Ogre, LV", ts.Form(testSnapshot()).Get("status"))
}

func TestThingSpeakPublish(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		status   int
		wantCode int
	}{
		{name: "accepted", status: http.StatusOK, body: "42", wantCode: 200},
		{name: "rejected entry", status: http.StatusOK, body: "0", wantCode: -401},
		{name: "bad key", status: http.StatusBadRequest, body: "", wantCode: 400},
		{name: "server error", status: http.StatusInternalServerError, body: "", wantCode: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			forms := make(chan url.Values, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.NoError(t, r.ParseForm())
				forms <- r.PostForm
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			ts := NewThingSpeak(httpclient.NewClient(nil, time.Second), config.ThingSpeak{
				URL:    srv.URL,
				APIKey: "KEY",
				Fields: []string{state.FieldHumidity},
			})
			err := ts.Publish(context.Background(), testSnapshot())

			assert.Equal(t, tt.wantCode, Code(err))
			got := <-forms
			assert.Equal(t, "40", got.Get("field1"))
		})
	}
}

func TestThingSpeakTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	ts := NewThingSpeak(httpclient.NewClient(nil, time.Second), config.ThingSpeak{URL: endpoint})
	err := ts.Publish(context.Background(), testSnapshot())

	require.Error(t, err)
	assert.Equal(t, CodeTransport, Code(err))
}
