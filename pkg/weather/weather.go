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

// Package weather fetches current outdoor conditions from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/ogrelab/stationd/pkg/shared/httpclient"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/rs/zerolog/log"
)

var (
	ErrStatus  = errors.New("unexpected weather service status")
	ErrPayload = errors.New("invalid weather payload")
)

// Report is the subset of the current-weather response the station uses.
type Report struct {
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Gust  float64 `json:"gust"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Name string `json:"name"`
}

// Outdoor converts the report into the shared state record.
func (r *Report) Outdoor(at time.Time) state.Outdoor {
	deg := int(math.Round(r.Wind.Deg))
	return state.Outdoor{
		At:           at,
		TemperatureC: int(math.Round(*r.Main.Temp)),
		HumidityPct:  int(math.Round(*r.Main.Humidity)),
		WindSpeed:    r.Wind.Speed,
		WindGust:     r.Wind.Gust,
		WindDeg:      deg,
		WindDir:      Direction(deg),
	}
}

type Client struct {
	http   *httpclient.Client
	clock  clockwork.Clock
	base   string
	cityID string
	apiKey string
}

func NewClient(hc *httpclient.Client, base, cityID, apiKey string) *Client {
	return &Client{
		http:   hc,
		clock:  clockwork.NewRealClock(),
		base:   strings.TrimSuffix(base, "/"),
		cityID: cityID,
		apiKey: apiKey,
	}
}

// WithClock sets the clock used to stamp reports.
func (c *Client) WithClock(clock clockwork.Clock) *Client {
	c.clock = clock
	return c
}

func (c *Client) requestURL() string {
	q := url.Values{}
	q.Set("id", c.cityID)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	return c.base + "/data/2.5/weather?" + q.Encode()
}

// Fetch gets the current weather for the configured city in metric units.
func (c *Client) Fetch(ctx context.Context) (*Report, error) {
	resp, err := c.http.Get(ctx, c.requestURL())
	if err != nil {
		return nil, err
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	var r Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayload, err)
	}
	if r.Main.Temp == nil || r.Main.Humidity == nil {
		return nil, fmt.Errorf("%w: missing main block", ErrPayload)
	}
	return &r, nil
}

// Job fetches the weather and stores it as the outdoor record. A failed
// fetch keeps the previous record.
func (c *Client) Job(st *state.State) scheduler.Func {
	return func(ctx context.Context, _ *scheduler.Job) {
		r, err := c.Fetch(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("weather fetch failed")
			return
		}
		out := r.Outdoor(c.clock.Now())
		log.Debug().Msgf("weather for %s: %dC %d%% %s %.1fm/s",
			r.Name, out.TemperatureC, out.HumidityPct, out.WindDir, out.WindSpeed)
		st.Update(func(snap *state.Snapshot) {
			snap.Outdoor = out
		})
	}
}
