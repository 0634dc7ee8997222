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

package display

import (
	"context"
	"errors"
	"slices"

	"github.com/ogrelab/stationd/pkg/helpers/syncutil"
	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/rs/zerolog/log"
)

// Device is a character display with a switchable backlight.
type Device interface {
	Show(lines []string) error
	SetBacklight(on bool) error
	Close() error
}

// Nop discards everything. It stands in when no display is attached.
type Nop struct{}

func (Nop) Show([]string) error     { return nil }
func (Nop) SetBacklight(bool) error { return nil }
func (Nop) Close() error            { return nil }

// Panel ties a renderer, a backlight timer and a device to the shared state.
type Panel struct {
	dev       Device
	renderer  *Renderer
	backlight *Backlight
	st        *state.State
	last      []string
	mu        syncutil.Mutex
}

func NewPanel(dev Device, renderer *Renderer, backlight *Backlight, st *state.State) *Panel {
	return &Panel{dev: dev, renderer: renderer, backlight: backlight, st: st}
}

// Render is the display job: it draws the current snapshot, skipping the
// device write when nothing changed.
func (p *Panel) Render(_ context.Context, _ *scheduler.Job) {
	snap := p.st.Snapshot()
	lines := p.renderer.Lines(&snap)

	p.mu.Lock()
	defer p.mu.Unlock()
	if slices.Equal(lines, p.last) {
		return
	}
	if err := p.dev.Show(lines); err != nil {
		log.Warn().Err(err).Msg("display write failed")
		return
	}
	p.last = lines
}

// CheckBacklight is the backlight timer job.
func (p *Panel) CheckBacklight(_ context.Context, _ *scheduler.Job) {
	snap := p.st.Snapshot()
	if !p.backlight.Check(snap.Time.Hour()) {
		return
	}
	on := p.backlight.On()
	log.Info().Msgf("backlight on: %t", on)
	if err := p.dev.SetBacklight(on); err != nil {
		log.Warn().Err(err).Msg("backlight switch failed")
	}
}

// Lines returns what the device last showed.
func (p *Panel) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.last)
}

func (p *Panel) Close() error {
	if err := p.dev.Close(); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}
