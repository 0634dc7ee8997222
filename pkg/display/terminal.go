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
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Terminal draws the panel in a terminal for development on a desktop.
type Terminal struct {
	screen tcell.Screen
	width  int
	height int
	lit    bool
	closed bool
}

// NewTerminal takes ownership of screen, which must not be initialised yet.
func NewTerminal(screen tcell.Screen, width, height int) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to init terminal screen: %w", err)
	}
	screen.Clear()
	return &Terminal{screen: screen, width: width, height: height, lit: true}, nil
}

func (t *Terminal) style() tcell.Style {
	if t.lit {
		return tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorLightGreen)
	}
	return tcell.StyleDefault.Foreground(tcell.ColorDarkGreen).Background(tcell.ColorBlack)
}

func (t *Terminal) Show(lines []string) error {
	if t.closed {
		return ErrClosed
	}
	style := t.style()
	for y := range t.height {
		text := ""
		if y < len(lines) {
			text = lines[y]
		}
		runes := []rune(text)
		for x := range t.width {
			r := ' '
			if x < len(runes) {
				r = runes[x]
			}
			t.screen.SetContent(x+1, y+1, r, nil, style)
		}
	}
	t.screen.Show()
	return nil
}

// SetBacklight swaps the colour scheme; the next Show redraws with it.
func (t *Terminal) SetBacklight(on bool) error {
	if t.closed {
		return ErrClosed
	}
	t.lit = on
	return nil
}

func (t *Terminal) Close() error {
	if t.closed {
		return ErrClosed
	}
	t.closed = true
	t.screen.Fini()
	return nil
}
