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

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPFilterIsAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		allowed    []string
		want       bool
	}{
		{name: "empty allows all", allowed: nil, remoteAddr: "203.0.113.9:1234", want: true},
		{name: "exact match", allowed: []string{"192.168.1.10"}, remoteAddr: "192.168.1.10:5555", want: true},
		{name: "exact miss", allowed: []string{"192.168.1.10"}, remoteAddr: "192.168.1.11:5555", want: false},
		{name: "cidr", allowed: []string{"192.168.1.0/24"}, remoteAddr: "192.168.1.200:80", want: true},
		{name: "cidr miss", allowed: []string{"192.168.1.0/24"}, remoteAddr: "192.168.2.1:80", want: false},
		{name: "entry with port", allowed: []string{"10.0.0.5:7580"}, remoteAddr: "10.0.0.5:1", want: true},
		{name: "ipv6", allowed: []string{"2001:db8::/32"}, remoteAddr: "[2001:db8::1]:80", want: true},
		{name: "invalid entries skipped", allowed: []string{"nope", "10.0.0.1"}, remoteAddr: "10.0.0.1", want: true},
		{name: "unparsable remote", allowed: []string{"10.0.0.1"}, remoteAddr: "garbage", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewIPFilter(tt.allowed).IsAllowed(tt.remoteAddr))
		})
	}
}

func TestAllowIPsMiddleware(t *testing.T) {
	t.Parallel()

	handler := AllowIPs(NewIPFilter([]string{"192.168.1.0/24"}))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	tests := []struct {
		remoteAddr string
		want       int
	}{
		{remoteAddr: "192.168.1.5:1000", want: http.StatusNoContent},
		{remoteAddr: "127.0.0.1:1000", want: http.StatusNoContent},
		{remoteAddr: "[::1]:1000", want: http.StatusNoContent},
		{remoteAddr: "10.1.1.1:1000", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/status", http.NoBody)
		req.RemoteAddr = tt.remoteAddr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Code, tt.remoteAddr)
	}
}

func TestParseRemoteIP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "192.168.1.1", ParseRemoteIP("192.168.1.1:80").String())
	assert.Equal(t, "192.168.1.1", ParseRemoteIP("192.168.1.1").String())
	assert.Equal(t, "2001:db8::1", ParseRemoteIP("[2001:db8::1]:443").String())
	assert.Nil(t, ParseRemoteIP("not-an-ip"))
}
