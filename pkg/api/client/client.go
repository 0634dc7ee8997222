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

// Package client talks to a running station's local API. The CLI uses it for
// status, job and relay commands.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ogrelab/stationd/pkg/api"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/relay"
	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/ogrelab/stationd/pkg/shared/httpclient"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/rs/zerolog/log"
)

var (
	ErrStatus       = errors.New("unexpected API status")
	ErrStreamClosed = errors.New("snapshot stream closed")
)

// Client calls one station API base URL.
type Client struct {
	http *httpclient.Client
	base *url.URL
}

// New returns a client for base, e.g. "http://localhost:7580".
func New(base string) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	return &Client{http: httpclient.NewClient(nil, config.ApiRequestTimeout), base: u}, nil
}

// Local returns a client for the API of the station on this host.
func Local(cfg *config.Instance) *Client {
	return &Client{
		http: httpclient.NewClient(nil, config.ApiRequestTimeout),
		base: &url.URL{Scheme: "http", Host: "localhost:" + strconv.Itoa(cfg.APIPort())},
	}
}

func (c *Client) url(path string) string {
	return c.base.String() + path
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	payload := strings.NewReader("")
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), payload)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api request failed: %w", err)
	}
	data, err := httpclient.ReadBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var out api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Jobs(ctx context.Context) ([]scheduler.JobInfo, error) {
	var out []scheduler.JobInfo
	if err := c.do(ctx, http.MethodGet, "/jobs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetJobEnabled(ctx context.Context, name string, enabled bool) error {
	action := "disable"
	if enabled {
		action = "enable"
	}
	return c.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(name)+"/"+action, nil, nil)
}

func (c *Client) SetRelay(ctx context.Context, name string, on bool) (*relay.Status, error) {
	var out relay.Status
	body := map[string]bool{"on": on}
	if err := c.do(ctx, http.MethodPut, "/relays/"+url.PathEscape(name), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Watch calls fn for every snapshot streamed by the station until ctx is
// done, fn returns false or the stream ends.
func (c *Client) Watch(ctx context.Context, fn func(state.Snapshot) bool) error {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"

	dialer := websocket.Dialer{HandshakeTimeout: config.ApiRequestTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", u.String(), err)
	}
	defer func(conn *websocket.Conn) {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing websocket")
		}
	}(conn)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		var snap state.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrStreamClosed
			}
			return fmt.Errorf("error reading snapshot: %w", err)
		}
		if !fn(snap) {
			return nil
		}
	}
}
