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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBacklight_Check(t *testing.T) {
	t.Parallel()

	b := NewBacklight(7, 22)
	assert.True(t, b.On())

	assert.False(t, b.Check(12))
	assert.True(t, b.Check(22))
	assert.False(t, b.On())
	assert.False(t, b.Check(22), "already off")
	assert.False(t, b.Check(23))
	assert.False(t, b.Check(6))
	assert.True(t, b.Check(7))
	assert.True(t, b.On())
	assert.False(t, b.Check(7))
}

func TestBacklight_MissedHourWaits(t *testing.T) {
	t.Parallel()

	b := NewBacklight(7, 22)
	for _, h := range []int{20, 21, 23, 0} {
		assert.False(t, b.Check(h))
	}
	assert.True(t, b.On())
}
