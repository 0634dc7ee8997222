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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestAPIListen(t *testing.T) {
	t.Parallel()

	port := 8080
	tests := []struct {
		port   *int
		name   string
		listen string
		want   string
	}{
		{name: "default port", want: ":7580"},
		{name: "custom port", port: &port, want: ":8080"},
		{name: "explicit listen wins", port: &port, listen: "127.0.0.1:9000", want: "127.0.0.1:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inst := &Instance{vals: Values{Service: Service{APIPort: tt.port, APIListen: tt.listen}}}
			assert.Equal(t, tt.want, inst.APIListen())
		})
	}
}

// APIListen takes the read lock and must not re-enter it through APIPort.
func TestAPIListenConcurrent(t *testing.T) {
	t.Parallel()

	inst := &Instance{}
	done := make(chan struct{})
	for range 10 {
		go func() {
			for range 100 {
				_ = inst.APIPort()
				_ = inst.APIListen()
			}
			done <- struct{}{}
		}()
	}
	go func() {
		for range 100 {
			inst.SetAPIPort(7581)
		}
	}()

	for range 10 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent access deadlocked")
		}
	}
}

func TestDiscoveryEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		enabled *bool
		name    string
		want    bool
	}{
		{name: "unset defaults on", want: true},
		{name: "on", enabled: boolPtr(true), want: true},
		{name: "off", enabled: boolPtr(false), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inst := &Instance{vals: Values{Service: Service{Discovery: Discovery{Enabled: tt.enabled}}}}
			assert.Equal(t, tt.want, inst.DiscoveryEnabled())
		})
	}
}

func TestDiscoveryInstanceName(t *testing.T) {
	t.Parallel()

	inst := &Instance{vals: Values{Service: Service{Discovery: Discovery{InstanceName: "Ogre garden"}}}}
	assert.Equal(t, "Ogre garden", inst.DiscoveryInstanceName())
	assert.Empty(t, (&Instance{}).DiscoveryInstanceName())
}

func TestAllowedIPsIsCopy(t *testing.T) {
	t.Parallel()

	inst := &Instance{vals: Values{Service: Service{AllowedIPs: []string{"10.0.0.0/8"}}}}
	ips := inst.AllowedIPs()
	ips[0] = "0.0.0.0/0"
	assert.Equal(t, []string{"10.0.0.0/8"}, inst.AllowedIPs())
}

func TestMetricsEnabledDefault(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Instance{}).MetricsEnabled())
	inst := &Instance{vals: Values{Service: Service{Metrics: boolPtr(false)}}}
	assert.False(t, inst.MetricsEnabled())
}
