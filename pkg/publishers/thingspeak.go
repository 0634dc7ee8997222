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
	"net/url"
	"strconv"
	"strings"

	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/display"
	"github.com/ogrelab/stationd/pkg/shared/httpclient"
	"github.com/ogrelab/stationd/pkg/state"
)

const (
	thingSpeakFields = 8
	statusPrefix     = "Last updated: "
)

// ThingSpeak posts mapped fields to a ThingSpeak channel.
type ThingSpeak struct {
	http   *httpclient.Client
	status func(*state.Snapshot) string
	url    string
	apiKey string
	fields []string
}

func NewThingSpeak(hc *httpclient.Client, cfg config.ThingSpeak) *ThingSpeak {
	return &ThingSpeak{
		http:   hc,
		url:    cfg.Endpoint(),
		apiKey: cfg.APIKey,
		fields: cfg.Fields,
		status: func(snap *state.Snapshot) string {
			return display.FormatDateTime(snap.Time)
		},
	}
}

// WithStatus replaces the text after "Last updated: " in the status field.
func (t *ThingSpeak) WithStatus(fn func(*state.Snapshot) string) *ThingSpeak {
	t.status = fn
	return t
}

func (*ThingSpeak) Name() string {
	return "thingspeak"
}

// Form encodes snap as the update form. Unmapped slots and fields without a
// good sample are left out.
func (t *ThingSpeak) Form(snap *state.Snapshot) url.Values {
	form := url.Values{}
	form.Set("api_key", t.apiKey)
	for i, name := range t.fields {
		if i >= thingSpeakFields {
			break
		}
		if name == "" {
			continue
		}
		v, ok := snap.Field(name)
		if !ok {
			continue
		}
		form.Set("field"+strconv.Itoa(i+1), strconv.FormatFloat(v, 'f', -1, 64))
	}
	form.Set("status", statusPrefix+strings.TrimSpace(t.status(snap)))
	return form
}

// Publish sends one update. ThingSpeak answers 200 with entry id "0" when it
// rejects an update; that is reported as code -401.
func (t *ThingSpeak) Publish(ctx context.Context, snap *state.Snapshot) error {
	body := t.Form(snap).Encode()
	resp, err := t.http.Post(ctx, t.url, "application/x-www-form-urlencoded", strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", t.Name(), err)
	}
	data, err := httpclient.ReadBody(resp)
	if err != nil {
		return fmt.Errorf("%s: %w", t.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Service: t.Name(), Code: resp.StatusCode}
	}
	if strings.TrimSpace(string(data)) == "0" {
		return &StatusError{Service: t.Name(), Code: -401}
	}
	return nil
}
