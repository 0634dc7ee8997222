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
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// DS18B20Family is the 1-wire family code prefix of DS18B20 probes.
const DS18B20Family = "28-"

var ErrNoProbe = errors.New("no 1-wire temperature probe found")

// OneWire reads a DS18B20 through the w1-therm kernel driver's sysfs files.
type OneWire struct {
	fs     afero.Fs
	root   string
	device string
}

// NewOneWire reads device under root. An empty device picks the first
// DS18B20 found at read time.
func NewOneWire(fs afero.Fs, root, device string) *OneWire {
	return &OneWire{fs: fs, root: root, device: device}
}

func (o *OneWire) findDevice() (string, error) {
	if o.device != "" {
		return o.device, nil
	}
	entries, err := afero.ReadDir(o.fs, o.root)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", o.root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), DS18B20Family) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", ErrNoProbe
	}
	sort.Strings(names)
	return names[0], nil
}

// ReadTemperature parses w1_slave, whose first line ends in YES when the
// scratchpad CRC matched and whose second line ends in t=<millidegrees>.
func (o *OneWire) ReadTemperature(context.Context) (float64, error) {
	device, err := o.findDevice()
	if err != nil {
		return 0, err
	}
	f, err := o.fs.Open(filepath.Join(o.root, device, "w1_slave"))
	if err != nil {
		return 0, fmt.Errorf("failed to open probe %s: %w", device, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read probe %s: %w", device, err)
	}
	if len(lines) < 2 {
		return 0, fmt.Errorf("%w: short w1_slave for %s", ErrInvalidSample, device)
	}
	if !strings.HasSuffix(lines[0], "YES") {
		return 0, fmt.Errorf("%w: crc mismatch on %s", ErrInvalidSample, device)
	}
	_, raw, ok := strings.Cut(lines[1], "t=")
	if !ok {
		return 0, fmt.Errorf("%w: no reading from %s", ErrInvalidSample, device)
	}
	milliC, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidSample, device, err)
	}
	return float64(milliC) / 1000, nil
}
