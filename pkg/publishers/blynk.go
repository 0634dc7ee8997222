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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/relay"
	"github.com/ogrelab/stationd/pkg/shared/httpclient"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/rs/zerolog/log"
)

const (
	blynkUptimePin = 5
	blynkTimePin   = 6
)

var ErrButtonValue = errors.New("invalid button value")

// Blynk mirrors the station to a Blynk dashboard: uptime, board time and
// relay LEDs go up, button states come down and drive the relays.
type Blynk struct {
	http   *httpclient.Client
	base   string
	token  string
	relays relay.Bank
}

func NewBlynk(hc *httpclient.Client, cfg config.Blynk, relays relay.Bank) *Blynk {
	return &Blynk{
		http:   hc,
		base:   strings.TrimSuffix(cfg.Endpoint(), "/"),
		token:  cfg.Token,
		relays: relays,
	}
}

func (*Blynk) Name() string {
	return "blynk"
}

func pin(n int) string {
	return "V" + strconv.Itoa(n)
}

// BoardTime formats t the way the dashboard shows it, without padding.
func BoardTime(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d %d:%d:%d",
		t.Day(), int(t.Month()), t.Year(), t.Hour(), t.Minute(), t.Second())
}

// UpdateQuery is the batch update for snap.
func (b *Blynk) UpdateQuery(snap *state.Snapshot) url.Values {
	q := url.Values{}
	q.Set("token", b.token)
	q.Set(pin(blynkUptimePin), strconv.FormatInt(int64(snap.Uptime/time.Second), 10))
	q.Set(pin(blynkTimePin), BoardTime(snap.Time))
	for _, r := range b.relays {
		q.Set(pin(r.LEDPin), strconv.Itoa(r.LED()))
	}
	return q
}

func (b *Blynk) get(ctx context.Context, path, rawQuery string) ([]byte, error) {
	resp, err := b.http.Get(ctx, b.base+path+"?"+rawQuery)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	data, err := httpclient.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Service: b.Name(), Code: resp.StatusCode}
	}
	return data, nil
}

func (b *Blynk) Publish(ctx context.Context, snap *state.Snapshot) error {
	if _, err := b.get(ctx, "/external/api/batch/update", b.UpdateQuery(snap).Encode()); err != nil {
		return err
	}
	if len(b.relays) == 0 {
		return nil
	}
	return b.syncButtons(ctx)
}

// syncButtons reads every relay's button pin and applies it.
func (b *Blynk) syncButtons(ctx context.Context) error {
	// Pin names go in as bare keys, which url.Values cannot express.
	parts := []string{"token=" + url.QueryEscape(b.token)}
	for _, r := range b.relays {
		parts = append(parts, pin(r.ButtonPin))
	}
	data, err := b.get(ctx, "/external/api/get", strings.Join(parts, "&"))
	if err != nil {
		return err
	}
	values, err := ParseButtons(data)
	if err != nil {
		return fmt.Errorf("%s: %w", b.Name(), err)
	}
	var errs []error
	for _, r := range b.relays {
		v, ok := values[pin(r.ButtonPin)]
		if !ok {
			log.Warn().Msgf("blynk: no value for %s", pin(r.ButtonPin))
			continue
		}
		if err := r.Set(v == 1); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParseButtons decodes a multi-pin get response. Values arrive as numbers or
// numeric strings.
func ParseButtons(data []byte) (map[string]int, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode button states: %w", err)
	}
	out := make(map[string]int, len(raw))
	for k, v := range raw {
		s := strings.Trim(string(v), `"`)
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %s", ErrButtonValue, k, s)
		}
		out[k] = n
	}
	return out, nil
}
