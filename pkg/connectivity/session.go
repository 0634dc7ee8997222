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
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/ogrelab/stationd/pkg/shared/httpclient"
)

// Session is an upstream connection on top of the link.
type Session interface {
	Name() string
	Connect(ctx context.Context) error
	Connected() bool
}

// HTTPProbe treats an HTTP endpoint as a session. Any response, whatever
// its status, proves the endpoint is reachable.
type HTTPProbe struct {
	client *httpclient.Client
	name   string
	url    string
	up     atomic.Bool
}

func NewHTTPProbe(client *httpclient.Client, name, url string) *HTTPProbe {
	return &HTTPProbe{client: client, name: name, url: url}
}

func (p *HTTPProbe) Name() string {
	return p.name
}

func (p *HTTPProbe) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.up.Store(false)
		return fmt.Errorf("%s unreachable: %w", p.name, err)
	}
	_, _ = httpclient.ReadBody(resp)
	p.up.Store(true)
	return nil
}

func (p *HTTPProbe) Connected() bool {
	return p.up.Load()
}

// MarkDown records a failed request made outside the probe so the next
// health check reconnects.
func (p *HTTPProbe) MarkDown() {
	p.up.Store(false)
}
