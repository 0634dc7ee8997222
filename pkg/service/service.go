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

// Package service assembles a station from its config: hardware, sensor
// jobs, the display, publishers, the connectivity manager, the activation
// controller and the local API, all driven by one scheduler.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/jonboulle/clockwork"
	"github.com/ogrelab/stationd/pkg/api"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/connectivity"
	"github.com/ogrelab/stationd/pkg/display"
	"github.com/ogrelab/stationd/pkg/drivers/serialport"
	"github.com/ogrelab/stationd/pkg/helpers"
	"github.com/ogrelab/stationd/pkg/metrics"
	"github.com/ogrelab/stationd/pkg/publishers"
	"github.com/ogrelab/stationd/pkg/relay"
	"github.com/ogrelab/stationd/pkg/rtc"
	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/ogrelab/stationd/pkg/service/discovery"
	"github.com/ogrelab/stationd/pkg/shared/httpclient"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

const (
	JobClock     = "clock.now"
	JobDisplay   = "display.render"
	JobBacklight = "display.backlight"
	JobHealth    = "connectivity.health"
)

// Hardware hands out I2C buses and GPIO pins. *platform.Platform is the
// production implementation.
type Hardware interface {
	Bus(name string) (i2c.Bus, error)
	Pin(name string) (gpio.PinIO, error)
	Close() error
}

type Options struct {
	Clock     clockwork.Clock
	Fs        afero.Fs
	Hardware  Hardware
	Serial    serialport.Factory
	MQTT      connectivity.ClientFactory
	Screen    func() (tcell.Screen, error)
	Restarter connectivity.Restarter
	HTTP      *httpclient.Client
	Dirs      helpers.Dirs
}

// Station is one assembled station. Build it with New, drive it with Run.
type Station struct {
	cfg      *config.Instance
	opts     Options
	st       *state.State
	broker   *state.Broker
	sched    *scheduler.Scheduler
	metrics  *metrics.Metrics
	conn     *connectivity.Manager
	runner   *publishers.Runner
	panel    *display.Panel
	rtc      *rtc.RTC
	server   *api.Server
	advert   *discovery.Advertiser
	staged   map[string]bool
	closers  []func() error
	relays   relay.Bank
	jobNames []string
}

// New builds every component cfg enables and registers their jobs. On
// error everything opened so far is closed again.
func New(cfg *config.Instance, opts Options) (s *Station, err error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Serial == nil {
		opts.Serial = serialport.Open
	}
	if opts.Screen == nil {
		opts.Screen = tcell.NewScreen
	}
	if opts.HTTP == nil {
		opts.HTTP = httpclient.NewClientFromConfig(cfg)
	}
	if opts.Restarter == nil {
		opts.Restarter = connectivity.RestartFunc(func(reason string) {
			log.Warn().Msgf("restart requested without a restarter: %s", reason)
		})
	}

	st := state.New()
	s = &Station{
		cfg:    cfg,
		opts:   opts,
		st:     st,
		broker: state.NewBroker(st.Changes()),
		staged: make(map[string]bool),
	}
	s.metrics = metrics.New(st, publishers.Code)
	s.sched = scheduler.New(
		scheduler.WithClock(opts.Clock),
		scheduler.WithResolution(cfg.Scheduler().Resolution()),
		scheduler.WithObserver(s.metrics.ObserveRun),
	)
	for _, stage := range cfg.Activation().Stages {
		s.staged[stage.Job] = true
	}

	defer func() {
		if err != nil {
			if cerr := s.Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("error closing partly built station")
			}
			s = nil
		}
	}()

	// Registration order is tick order: clock, sensors, display,
	// publishers, health, activation.
	steps := []struct {
		build func() error
		name  string
	}{
		{name: "clock", build: s.buildClock},
		{name: "sensors", build: s.buildSensors},
		{name: "relays", build: s.buildRelays},
		{name: "display", build: s.buildDisplay},
		{name: "connectivity", build: s.buildConnectivity},
		{name: "weather", build: s.buildWeather},
		{name: "publishers", build: s.buildPublishers},
		{name: "activation", build: s.buildActivation},
		{name: "api", build: s.buildAPI},
	}
	for _, step := range steps {
		log.Debug().Msgf("building %s", step.name)
		if err := step.build(); err != nil {
			return nil, fmt.Errorf("failed to build %s: %w", step.name, err)
		}
	}

	log.Info().Msgf("station built with jobs: %v", s.jobNames)
	return s, nil
}

// register adds job, disabled when an activation stage owns it.
func (s *Station) register(job *scheduler.Job) error {
	if s.staged[job.Name()] {
		job.Disabled()
	}
	if err := s.sched.Register(job); err != nil {
		return fmt.Errorf("failed to register job: %w", err)
	}
	s.jobNames = append(s.jobNames, job.Name())
	return nil
}

func (s *Station) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Station) State() *state.State {
	return s.st
}

func (s *Station) Scheduler() *scheduler.Scheduler {
	return s.sched
}

func (s *Station) Relays() relay.Bank {
	return s.relays
}

// Run drives the scheduler and the servers until ctx is done. Only a
// scheduler failure ends Run early; the API and discovery log their
// failures and the station keeps sampling.
func (s *Station) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	s.broker.Start(ctx)

	g.Go(func() error {
		return s.sched.Run(ctx)
	})

	g.Go(func() error {
		if err := s.server.Start(ctx); err != nil {
			log.Error().Err(err).Msg("api server stopped")
		}
		return nil
	})

	if s.advert != nil {
		g.Go(func() error {
			return s.advert.Run(ctx)
		})
	}

	if err := config.Watch(ctx, s.cfg, config.DefaultReloadDebounce, s.Reload); err != nil {
		log.Warn().Err(err).Msg("config hot reload unavailable")
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("station stopped: %w", err)
	}
	return nil
}

// Reload applies the settings that can change without a restart.
func (s *Station) Reload() {
	helpers.SetDebug(s.cfg.DebugLogging())
	log.Info().Msg("applied reloaded config")
}

// Close releases hardware and sessions in reverse order of opening.
func (s *Station) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Start builds and runs a station in the background. stop cancels it and
// waits for cleanup; done closes once the station has fully stopped.
func Start(
	cfg *config.Instance,
	opts Options,
) (stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	s, err := New(cfg, opts)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan struct{})
	var runErr error
	go func() {
		defer close(doneCh)
		runErr = s.Run(ctx)
		log.Info().Msg("station stopped, running cleanup")
		if cerr := s.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("error during cleanup")
		}
		log.Info().Msg("station cleanup completed")
	}()

	stop = func() error {
		cancel()
		<-doneCh
		return runErr
	}
	return stop, doneCh, nil
}
