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

package weather

// compass holds the upper bound in degrees of each 16-point sector, with
// the 1-2 degree overlaps of whole-degree readings resolved to the lower
// sector.
var compass = []struct {
	dir string
	max int
}{
	{"N", 11},
	{"NNE", 33},
	{"NE", 56},
	{"ENE", 78},
	{"E", 101},
	{"ESE", 123},
	{"SE", 146},
	{"SSE", 168},
	{"S", 191},
	{"SSW", 213},
	{"SW", 236},
	{"WSW", 258},
	{"W", 281},
	{"WNW", 303},
	{"NW", 326},
	{"NNW", 348},
}

// Direction names the compass point for a wind bearing in whole degrees.
// Bearings from 349 wrap to N; values outside 0-359 are normalised first.
func Direction(deg int) string {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	for _, s := range compass {
		if deg <= s.max {
			return s.dir
		}
	}
	return "N"
}
