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

// Package platform owns the station's hardware handles: I2C buses and GPIO
// pins opened through periph.
package platform

import (
	"errors"
	"fmt"

	"github.com/ogrelab/stationd/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var ErrUnknownPin = errors.New("unknown gpio pin")

type (
	BusOpener  func(name string) (i2c.BusCloser, error)
	PinFinder  func(name string) gpio.PinIO
	HostLoader func() error
)

type Option func(*Platform)

// WithBusOpener replaces i2creg.Open.
func WithBusOpener(open BusOpener) Option {
	return func(p *Platform) { p.openBus = open }
}

// WithPinFinder replaces gpioreg.ByName.
func WithPinFinder(find PinFinder) Option {
	return func(p *Platform) { p.findPin = find }
}

// WithHost replaces periph's host.Init.
func WithHost(load HostLoader) Option {
	return func(p *Platform) { p.loadHost = load }
}

// Platform caches opened buses by name so the RTC, the climate sensor and
// the LCD share one handle when they sit on the same bus.
type Platform struct {
	openBus  BusOpener
	findPin  PinFinder
	loadHost HostLoader
	buses    map[string]i2c.BusCloser
	mu       syncutil.Mutex
}

func New(opts ...Option) (*Platform, error) {
	p := &Platform{
		openBus: i2creg.Open,
		findPin: gpioreg.ByName,
		loadHost: func() error {
			_, err := host.Init()
			return err
		},
		buses: make(map[string]i2c.BusCloser),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.loadHost(); err != nil {
		return nil, fmt.Errorf("failed to init periph host drivers: %w", err)
	}
	return p, nil
}

// Bus returns the I2C bus called name. An empty name picks the first bus
// periph registered.
func (p *Platform) Bus(name string) (i2c.Bus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if bus, ok := p.buses[name]; ok {
		return bus, nil
	}
	bus, err := p.openBus(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", name, err)
	}
	log.Debug().Msgf("opened i2c bus %q: %s", name, bus)
	p.buses[name] = bus
	return bus, nil
}

func (p *Platform) Pin(name string) (gpio.PinIO, error) {
	pin := p.findPin(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPin, name)
	}
	return pin, nil
}

// Close releases every opened bus.
func (p *Platform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for name, bus := range p.buses {
		if err := bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing i2c bus %q: %w", name, err))
		}
		delete(p.buses, name)
	}
	return errors.Join(errs...)
}
