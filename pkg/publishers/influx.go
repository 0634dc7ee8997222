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
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/shared/httpclient"
	"github.com/ogrelab/stationd/pkg/state"
)

const (
	influxMeasurement = "wifi_status"
	influxWritePath   = "/api/v2/write"
)

// ErrNoSample is returned when the published channel has never reported.
var ErrNoSample = errors.New("no sample to publish")

var tagEscaper = strings.NewReplacer(",", `\,`, "=", `\=`, " ", `\ `)

// Influx writes the RSSI reading as a line protocol point.
type Influx struct {
	http   *httpclient.Client
	url    string
	org    string
	bucket string
	token  string
	device string
	ssid   string
}

func NewInflux(hc *httpclient.Client, cfg config.Influx, deviceID string) *Influx {
	device := cfg.Device
	if device == "" {
		device = deviceID
	}
	return &Influx{
		http:   hc,
		url:    strings.TrimSuffix(cfg.URL, "/"),
		org:    cfg.Org,
		bucket: cfg.Bucket,
		token:  cfg.Token,
		device: device,
		ssid:   cfg.SSID,
	}
}

func (*Influx) Name() string {
	return "influx"
}

// Line encodes snap as one line protocol point with a second precision
// timestamp.
func (i *Influx) Line(snap *state.Snapshot) (string, error) {
	if snap.RSSI.At.IsZero() {
		return "", ErrNoSample
	}
	var b strings.Builder
	b.WriteString(influxMeasurement)
	b.WriteString(",device=")
	b.WriteString(tagEscaper.Replace(i.device))
	if i.ssid != "" {
		b.WriteString(",SSID=")
		b.WriteString(tagEscaper.Replace(i.ssid))
	}
	fmt.Fprintf(&b, " rssi=%di %d", snap.RSSI.Value, snap.RSSI.At.Unix())
	return b.String(), nil
}

func (i *Influx) endpoint() string {
	q := url.Values{}
	q.Set("org", i.org)
	q.Set("bucket", i.bucket)
	q.Set("precision", "s")
	return i.url + influxWritePath + "?" + q.Encode()
}

func (i *Influx) Publish(ctx context.Context, snap *state.Snapshot) error {
	line, err := i.Line(snap)
	if err != nil {
		return fmt.Errorf("%s: %w", i.Name(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint(), strings.NewReader(line+"\n"))
	if err != nil {
		return fmt.Errorf("%s: error creating request: %w", i.Name(), err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if i.token != "" {
		req.Header.Set("Authorization", "Token "+i.token)
	}
	resp, err := i.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", i.Name(), err)
	}
	if _, err := httpclient.ReadBody(resp); err != nil {
		return fmt.Errorf("%s: %w", i.Name(), err)
	}
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	default:
		return &StatusError{Service: i.Name(), Code: resp.StatusCode}
	}
}
