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

package sensors

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const ProcNetWireless = "/proc/net/wireless"

var ErrNoInterface = errors.New("wireless interface not listed")

// Wireless reads the signal level of one interface from /proc/net/wireless.
type Wireless struct {
	fs    afero.Fs
	path  string
	iface string
}

func NewWireless(fs afero.Fs, iface string) *Wireless {
	return &Wireless{fs: fs, path: ProcNetWireless, iface: iface}
}

// ReadSignal returns the level column in dBm. The table has two header
// lines; each row is "iface: status link level noise ...", with trailing dots
// on updated values.
func (w *Wireless) ReadSignal(context.Context) (float64, error) {
	f, err := w.fs.Open(w.path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", w.path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(name) != w.iface {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 3 {
			return 0, fmt.Errorf("%w: short row for %s", ErrInvalidSample, w.iface)
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s level: %w", ErrInvalidSample, w.iface, err)
		}
		return level, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", w.path, err)
	}
	return 0, fmt.Errorf("%w: %s", ErrNoInterface, w.iface)
}
