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

package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Link is the network layer. Connect starts an association and returns
// without waiting; Connected reports whether it is usable.
type Link interface {
	Name() string
	Connect(ctx context.Context) error
	Connected() bool
}

// AlwaysUp is the link for wired or externally managed networks.
type AlwaysUp struct{}

func (AlwaysUp) Name() string                  { return "network" }
func (AlwaysUp) Connect(context.Context) error { return nil }
func (AlwaysUp) Connected() bool               { return true }

// InterfaceLink watches a named interface. It is connected when the
// interface is up and holds a non-loopback unicast address. Connect runs
// the optional reconnect command, for example `wpa_cli -i wlan0 reconnect`.
type InterfaceLink struct {
	lookup  func(name string) (iface, error)
	run     func(ctx context.Context, argv []string) error
	name    string
	command []string
}

type iface interface {
	Up() bool
	Addrs() ([]net.Addr, error)
}

type netIface struct {
	*net.Interface
}

func (n netIface) Up() bool {
	return n.Flags&net.FlagUp != 0
}

func lookupInterface(name string) (iface, error) {
	ni, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find interface %s: %w", name, err)
	}
	return netIface{ni}, nil
}

func runCommand(ctx context.Context, argv []string) error {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput() //nolint:gosec // from config
	if err != nil {
		return fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func NewInterfaceLink(name string, command []string) *InterfaceLink {
	return &InterfaceLink{
		name:    name,
		command: command,
		lookup:  lookupInterface,
		run:     runCommand,
	}
}

func (l *InterfaceLink) Name() string {
	return l.name
}

func (l *InterfaceLink) Connected() bool {
	ni, err := l.lookup(l.name)
	if err != nil || !ni.Up() {
		return false
	}
	addrs, err := ni.Addrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() && !ipn.IP.IsLinkLocalUnicast() {
			return true
		}
	}
	return false
}

var ErrNoCommand = errors.New("no reconnect command configured")

func (l *InterfaceLink) Connect(ctx context.Context) error {
	if len(l.command) == 0 {
		return ErrNoCommand
	}
	log.Info().Msgf("reconnecting %s: %s", l.name, strings.Join(l.command, " "))
	return l.run(ctx, l.command)
}
