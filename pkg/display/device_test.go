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
	"testing"
	"time"

	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	err       error
	shown     [][]string
	backlight []bool
	closed    bool
}

func (f *fakeDevice) Show(lines []string) error {
	if f.err != nil {
		return f.err
	}
	f.shown = append(f.shown, lines)
	return nil
}

func (f *fakeDevice) SetBacklight(on bool) error {
	f.backlight = append(f.backlight, on)
	return f.err
}

func (f *fakeDevice) Close() error {
	f.closed = true
	return nil
}

func TestPanel_RenderSkipsUnchanged(t *testing.T) {
	t.Parallel()

	st := state.New()
	st.Update(func(s *state.Snapshot) { s.Time = testTime })
	dev := &fakeDevice{}
	p := NewPanel(dev, NewRenderer(config.LayoutClock, "Ogre", Width), NewBacklight(7, 22), st)

	p.Render(context.Background(), nil)
	p.Render(context.Background(), nil)
	require.Len(t, dev.shown, 1)
	assert.Equal(t, dev.shown[0], p.Lines())

	st.Update(func(s *state.Snapshot) { s.Time = testTime.Add(time.Second) })
	p.Render(context.Background(), nil)
	assert.Len(t, dev.shown, 2)
}

func TestPanel_RenderRetriesAfterError(t *testing.T) {
	t.Parallel()

	st := state.New()
	dev := &fakeDevice{err: errors.New("bus fault")}
	p := NewPanel(dev, NewRenderer(config.LayoutClock, "Ogre", Width), NewBacklight(7, 22), st)

	p.Render(context.Background(), nil)
	assert.Empty(t, p.Lines())

	dev.err = nil
	p.Render(context.Background(), nil)
	assert.Len(t, dev.shown, 1)
}

func TestPanel_CheckBacklight(t *testing.T) {
	t.Parallel()

	st := state.New()
	dev := &fakeDevice{}
	p := NewPanel(dev, NewRenderer(config.LayoutClock, "", Width), NewBacklight(7, 22), st)

	at := func(hour int) {
		st.Update(func(s *state.Snapshot) {
			s.Time = time.Date(2024, 1, 1, hour, 0, 0, 0, time.UTC)
		})
		p.CheckBacklight(context.Background(), nil)
	}

	at(12)
	at(22)
	at(22)
	at(7)
	assert.Equal(t, []bool{false, true}, dev.backlight)
}

func TestPanel_Close(t *testing.T) {
	t.Parallel()

	dev := &fakeDevice{}
	p := NewPanel(dev, NewRenderer("", "", Width), NewBacklight(7, 22), state.New())
	require.NoError(t, p.Close())
	assert.True(t, dev.closed)
}
