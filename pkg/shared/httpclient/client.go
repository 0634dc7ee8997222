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

// Package httpclient is the outbound HTTP client shared by the publishers,
// the weather fetcher and the connectivity probe.
package httpclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ogrelab/stationd/pkg/config"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds a whole request, body included.
	DefaultTimeout = config.ApiRequestTimeout

	// MaxBodySize caps how much of a response body is read.
	MaxBodySize = 1 << 20
)

// AuthLookup returns credentials for a request URL, or nil.
type AuthLookup func(reqURL string) *config.CredentialEntry

// AuthTransport adds credentials from auth.toml to outgoing requests.
// Requests that already carry an Authorization header are left alone.
type AuthTransport struct {
	Base   http.RoundTripper
	Lookup AuthLookup
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.Lookup != nil && req.Header.Get("Authorization") == "" {
		if creds := t.Lookup(req.URL.String()); creds != nil {
			req = req.Clone(req.Context())
			switch {
			case creds.Bearer != "":
				req.Header.Set("Authorization", "Bearer "+creds.Bearer)
			case creds.Username != "":
				auth := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
				req.Header.Set("Authorization", "Basic "+auth)
			}
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP round trip: %w", err)
	}
	return resp, nil
}

// DefaultTransport is tuned for a handful of slow upstreams on a small
// board.
var DefaultTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ResponseHeaderTimeout: 10 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	MaxIdleConns:          10,
	MaxIdleConnsPerHost:   2,
	IdleConnTimeout:       90 * time.Second,
}

type Client struct {
	*http.Client
}

// NewClient returns a client that authenticates through lookup.
func NewClient(lookup AuthLookup, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		Client: &http.Client{
			Transport: &AuthTransport{Base: DefaultTransport, Lookup: lookup},
			Timeout:   timeout,
		},
	}
}

// NewClientFromConfig authenticates with cfg's auth.toml entries.
func NewClientFromConfig(cfg *config.Instance) *Client {
	return NewClient(cfg.LookupAuth, DefaultTimeout)
}

// Get performs a GET request and returns the response
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing GET request: %w", err)
	}

	return resp, nil
}

// Post performs a POST request with the given body and returns the response
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing POST request: %w", err)
	}

	return resp, nil
}

// ReadBody drains and closes resp's body, reading at most MaxBodySize bytes.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing response body")
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	return body, nil
}
