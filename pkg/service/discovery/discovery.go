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

// Package discovery advertises the station's API over mDNS so it can be
// found as <name>.local on the LAN.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/rs/zerolog/log"
)

const (
	ServiceType = "_stationd._tcp"
	Domain      = "local."

	retryInterval    = 30 * time.Second
	maxRetryDuration = 5 * time.Minute
)

var ErrNoInterfaces = errors.New("no suitable network interfaces")

// virtualInterfacePrefixes are container and VPN interfaces never
// advertised on.
var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg",
}

// Server is a running registration.
type Server interface {
	Shutdown()
}

// Registrar publishes one service instance; zeroconf.Register in
// production.
type Registrar func(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (Server, error)

func zeroconfRegister(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (Server, error) {
	srv, err := zeroconf.Register(instance, service, domain, port, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	return srv, nil
}

type Option func(*Advertiser)

func WithClock(c clockwork.Clock) Option {
	return func(a *Advertiser) { a.clock = c }
}

func WithRegistrar(r Registrar) Option {
	return func(a *Advertiser) { a.register = r }
}

// WithInterfaces replaces the network interface listing.
func WithInterfaces(fn func() ([]net.Interface, error)) Option {
	return func(a *Advertiser) { a.interfaces = fn }
}

// Advertiser keeps one mDNS registration alive for the life of Run.
type Advertiser struct {
	clock      clockwork.Clock
	register   Registrar
	interfaces func() ([]net.Interface, error)
	instance   string
	txt        []string
	port       int
}

func New(instance string, port int, txt []string, opts ...Option) *Advertiser {
	a := &Advertiser{
		clock:      clockwork.NewRealClock(),
		register:   zeroconfRegister,
		interfaces: net.Interfaces,
		instance:   instance,
		port:       port,
		txt:        txt,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Advertiser) Instance() string {
	return a.instance
}

// FilterInterfaces keeps interfaces that are up, multicast capable, not
// loopback and not virtual.
func FilterInterfaces(ifaces []net.Interface) []net.Interface {
	var out []net.Interface
	for _, iface := range ifaces {
		switch {
		case iface.Flags&net.FlagUp == 0,
			iface.Flags&net.FlagLoopback != 0,
			iface.Flags&net.FlagMulticast == 0,
			isVirtualInterface(iface.Name):
			continue
		}
		out = append(out, iface)
	}
	return out
}

func isVirtualInterface(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func (a *Advertiser) tryRegister() (Server, error) {
	all, err := a.interfaces()
	if err != nil {
		return nil, fmt.Errorf("list network interfaces: %w", err)
	}
	ifaces := FilterInterfaces(all)
	if len(ifaces) == 0 {
		return nil, ErrNoInterfaces
	}
	names := make([]string, len(ifaces))
	for i, iface := range ifaces {
		names[i] = iface.Name
	}

	srv, err := a.register(a.instance, ServiceType, Domain, a.port, a.txt, ifaces)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("instance", a.instance).
		Int("port", a.port).
		Str("type", ServiceType).
		Strs("interfaces", names).
		Msg("mDNS service advertising started")
	return srv, nil
}

// Run registers, retrying while the network comes up, and withdraws the
// registration when ctx is done. Giving up on registration is not an
// error; the station works without discovery.
func (a *Advertiser) Run(ctx context.Context) error {
	srv, err := a.tryRegister()
	if err != nil {
		log.Info().Err(err).
			Dur("retryInterval", retryInterval).
			Msg("mDNS registration failed, retrying in background")
		srv = a.retry(ctx)
	}
	if srv == nil {
		return nil
	}
	<-ctx.Done()
	log.Debug().Msg("stopping mDNS service advertising")
	srv.Shutdown()
	return nil
}

func (a *Advertiser) retry(ctx context.Context) Server {
	ticker := a.clock.NewTicker(retryInterval)
	defer ticker.Stop()
	deadline := a.clock.After(maxRetryDuration)

	for {
		select {
		case <-ticker.Chan():
			srv, err := a.tryRegister()
			if err == nil {
				return srv
			}
			log.Debug().Err(err).Msg("mDNS registration attempt failed")
		case <-deadline:
			log.Warn().Msg("mDNS registration retry timed out, discovery will not be available")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// InstanceName picks the advertised name: the discovery setting, then the
// station name, then the hostname, then a device id based fallback.
func InstanceName(cfg *config.Instance) string {
	if name := cfg.DiscoveryInstanceName(); name != "" {
		return name
	}
	if name := cfg.Station().Name; name != "" {
		return name
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	id := cfg.DeviceID()
	if len(id) >= 8 {
		return config.AppName + "-" + id[:8]
	}
	return config.AppName
}

// TXTRecords describe the station to browsers.
func TXTRecords(cfg *config.Instance) []string {
	txt := []string{
		"id=" + cfg.DeviceID(),
		"version=" + config.AppVersion,
	}
	if city := cfg.Station().City; city != "" {
		txt = append(txt, "city="+city)
	}
	return txt
}
