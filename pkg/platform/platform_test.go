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

package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

type closingBus struct {
	i2ctest.Record
	closed int
}

func (c *closingBus) Close() error {
	c.closed++
	return nil
}

func newTestPlatform(t *testing.T, opens *int) (*Platform, *closingBus) {
	t.Helper()
	bus := &closingBus{}
	p, err := New(
		WithHost(func() error { return nil }),
		WithBusOpener(func(string) (i2c.BusCloser, error) {
			*opens++
			return bus, nil
		}),
		WithPinFinder(func(name string) gpio.PinIO {
			if name == "GPIO17" {
				return &gpiotest.Pin{N: name}
			}
			return nil
		}),
	)
	require.NoError(t, err)
	return p, bus
}

func TestPlatform_BusCached(t *testing.T) {
	t.Parallel()

	opens := 0
	p, bus := newTestPlatform(t, &opens)

	a, err := p.Bus("1")
	require.NoError(t, err)
	b, err := p.Bus("1")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, opens)

	require.NoError(t, p.Close())
	assert.Equal(t, 1, bus.closed)

	_, err = p.Bus("1")
	require.NoError(t, err)
	assert.Equal(t, 2, opens)
}

func TestPlatform_BusError(t *testing.T) {
	t.Parallel()

	p, err := New(
		WithHost(func() error { return nil }),
		WithBusOpener(func(string) (i2c.BusCloser, error) {
			return nil, errors.New("no such bus")
		}),
	)
	require.NoError(t, err)
	_, err = p.Bus("7")
	require.ErrorContains(t, err, "no such bus")
}

func TestPlatform_Pin(t *testing.T) {
	t.Parallel()

	opens := 0
	p, _ := newTestPlatform(t, &opens)

	pin, err := p.Pin("GPIO17")
	require.NoError(t, err)
	assert.Equal(t, "GPIO17", pin.Name())

	_, err = p.Pin("GPIO99")
	require.ErrorIs(t, err, ErrUnknownPin)
}

func TestNew_HostError(t *testing.T) {
	t.Parallel()

	_, err := New(WithHost(func() error { return errors.New("no sysfs") }))
	require.ErrorContains(t, err, "no sysfs")
}
