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

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ogrelab/stationd/pkg/activation"
	"github.com/ogrelab/stationd/pkg/api"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/connectivity"
	"github.com/ogrelab/stationd/pkg/display"
	"github.com/ogrelab/stationd/pkg/drivers/mhz19"
	"github.com/ogrelab/stationd/pkg/drivers/pzem004t"
	"github.com/ogrelab/stationd/pkg/publishers"
	"github.com/ogrelab/stationd/pkg/relay"
	"github.com/ogrelab/stationd/pkg/rtc"
	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/ogrelab/stationd/pkg/sensors"
	"github.com/ogrelab/stationd/pkg/service/discovery"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/ogrelab/stationd/pkg/weather"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c"
)

const (
	displayWidth  = 20
	displayHeight = 4

	backlightPeriod = time.Second
	uptimePeriod    = time.Second
	defaultWireless = "wlan0"
)

var ErrNoHardware = errors.New("no hardware platform for i2c or gpio")

func (s *Station) bus(name string) (i2c.Bus, error) {
	if s.opts.Hardware == nil {
		return nil, ErrNoHardware
	}
	bus, err := s.opts.Hardware.Bus(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus: %w", err)
	}
	return bus, nil
}

// buildClock registers the wall clock job. With an RTC fitted a missing
// chip is an error the caller treats as fatal, and the daily sync job is
// added.
func (s *Station) buildClock() error {
	cc := s.cfg.Clock()
	loc, err := cc.Location()
	if err != nil {
		return err
	}

	var src rtc.Source = rtc.NewSystemSource(s.opts.Clock, loc)
	if cc.RTC {
		bus, err := s.bus(cc.Bus)
		if err != nil {
			return err
		}
		r, err := rtc.Open(bus, loc, s.opts.Clock)
		if err != nil {
			return err
		}
		src = r
		s.rtc = r
	}

	if err := s.register(scheduler.Every(JobClock, cc.Period(), rtc.NowJob(src, s.st))); err != nil {
		return err
	}

	if s.rtc != nil {
		job, err := scheduler.Cron(config.JobTimeSync, cc.Schedule(), rtc.SyncJob(s.rtc))
		if err != nil {
			return err
		}
		// The staged first sync runs as soon as its stage fires.
		if err := s.register(job.RunOnEnable()); err != nil {
			return err
		}
	}
	return nil
}

func sensorJob(channel string) string {
	return "sensor." + channel
}

// buildSensors opens every enabled sensor and registers one poll job per
// channel. The uptime channel is always present.
func (s *Station) buildSensors() error {
	sc := s.cfg.Sensors()
	poller := sensors.NewPoller(s.st,
		sensors.WithClock(s.opts.Clock),
		sensors.WithObserver(s.metrics.ObserveSample),
	)

	if sc.Climate.Enabled {
		bus, err := s.bus(sc.Climate.Bus)
		if err != nil {
			return err
		}
		dev, err := sensors.NewBME280(bus, sc.Climate.Addr())
		if err != nil {
			return err
		}
		job := scheduler.Every(sensorJob(sensors.ChannelClimate), sc.Climate.Period(), poller.Climate(dev))
		if err := s.register(job); err != nil {
			return err
		}
	}

	if sc.Probe.Enabled {
		dev := sensors.NewOneWire(s.opts.Fs, sc.Probe.SysfsRoot(), sc.Probe.Device)
		job := scheduler.Every(sensorJob(sensors.ChannelProbe), sc.Probe.Period(), poller.Probe(dev))
		if err := s.register(job); err != nil {
			return err
		}
	}

	if sc.CO2.Enabled {
		if err := s.buildCO2(poller, sc.CO2); err != nil {
			return err
		}
	}

	if sc.Power.Enabled {
		dev, err := pzem004t.Open(s.opts.Serial, sc.Power.Port, sc.Power.Addr())
		if err != nil {
			return err
		}
		s.onClose(dev.Close)
		job := scheduler.Every(sensorJob(sensors.ChannelPower), sc.Power.Period(), poller.Power(sensors.NewPZEM(dev)))
		if err := s.register(job); err != nil {
			return err
		}
	}

	if sc.Signal.Enabled {
		iface := sc.Signal.Interface
		if iface == "" {
			iface = s.cfg.Connectivity().Interface
		}
		if iface == "" {
			iface = defaultWireless
		}
		dev := sensors.NewWireless(s.opts.Fs, iface)
		job := scheduler.Every(sensorJob(sensors.ChannelSignal), sc.Signal.Period(), poller.Signal(dev))
		if err := s.register(job); err != nil {
			return err
		}
	}

	if sc.Board.Enabled {
		var dev sensors.TemperatureReader = sensors.NewBoardThermal(sc.Board.Key)
		if sc.Board.Key == "rtc" && s.rtc != nil {
			dev = s.rtc
		}
		job := scheduler.Every(sensorJob(sensors.ChannelBoard), sc.Board.Period(), poller.Board(dev))
		if err := s.register(job); err != nil {
			return err
		}
	}

	job := scheduler.Every(sensorJob(sensors.ChannelUptime), uptimePeriod, poller.Uptime(sensors.NewHostUptime()))
	return s.register(job)
}

// buildCO2 sets the sensor's auto calibration and adds the one-shot zero
// calibration job. That job only runs when enabled, by its activation
// stage or through the API.
func (s *Station) buildCO2(poller *sensors.Poller, cc config.CO2Sensor) error {
	dev, err := mhz19.Open(s.opts.Serial, cc.Port)
	if err != nil {
		return err
	}
	s.onClose(dev.Close)

	if err := dev.AutoCalibration(cc.AutoCalibration); err != nil {
		log.Warn().Err(err).Msg("failed to set co2 auto calibration")
	}

	job := scheduler.Every(sensorJob(sensors.ChannelCO2), cc.Period(), poller.CO2(sensors.NewMHZ19(dev)))
	if err := s.register(job); err != nil {
		return err
	}

	calibrate := scheduler.Once(config.JobCO2Calibrate, func(_ context.Context, _ *scheduler.Job) {
		log.Info().Msg("starting co2 zero point calibration")
		if err := dev.CalibrateZero(); err != nil {
			log.Error().Err(err).Msg("co2 zero point calibration failed")
		}
	}).Disabled()
	return s.register(calibrate)
}

func (s *Station) buildRelays() error {
	for _, rc := range s.cfg.Relays() {
		if s.opts.Hardware == nil {
			return ErrNoHardware
		}
		pin, err := s.opts.Hardware.Pin(rc.Pin)
		if err != nil {
			return err
		}
		r, err := relay.New(rc.Name, pin, rc.ButtonPin, rc.LEDPin, rc.ActiveLow)
		if err != nil {
			return err
		}
		s.relays = append(s.relays, r)
		s.onClose(func() error { return r.Set(false) })
	}
	return nil
}

func (s *Station) openDisplay(dc config.Display) (display.Device, error) {
	switch dc.DeviceName() {
	case config.DisplayLCD:
		bus, err := s.bus(dc.Bus)
		if err != nil {
			return nil, err
		}
		return display.NewLCD(bus, uint8(dc.Addr()), displayWidth, displayHeight) //nolint:gosec // 7-bit address
	case config.DisplayTerminal:
		screen, err := s.opts.Screen()
		if err != nil {
			return nil, fmt.Errorf("failed to create terminal screen: %w", err)
		}
		return display.NewTerminal(screen, displayWidth, displayHeight)
	default:
		return display.Nop{}, nil
	}
}

// buildDisplay always renders, even without a device, since the first
// line doubles as the ThingSpeak status and the API shows the lines.
func (s *Station) buildDisplay() error {
	dc := s.cfg.Display()
	dev, err := s.openDisplay(dc)
	if err != nil {
		return err
	}
	on, off := dc.Backlight.Hours()
	renderer := display.NewRenderer(dc.LayoutName(), s.cfg.Station().City, displayWidth)
	s.panel = display.NewPanel(dev, renderer, display.NewBacklight(on, off), s.st)
	s.onClose(s.panel.Close)

	if err := s.register(scheduler.Every(JobDisplay, dc.Period(), s.panel.Render)); err != nil {
		return err
	}
	return s.register(scheduler.Every(JobBacklight, backlightPeriod, s.panel.CheckBacklight))
}

func (s *Station) buildConnectivity() error {
	cc := s.cfg.Connectivity()

	var link connectivity.Link = connectivity.AlwaysUp{}
	if cc.Interface != "" {
		link = connectivity.NewInterfaceLink(cc.Interface, cc.ReconnectCommand)
	}

	s.conn = connectivity.NewManager(link, connectivity.Options{
		Clock:            s.opts.Clock,
		Restarter:        s.opts.Restarter,
		State:            s.st,
		LinkRetry:        cc.LinkRetry(),
		LinkTimeout:      cc.LinkTimeout(),
		SessionRetry:     cc.SessionRetry(),
		SessionAttempts:  cc.Attempts(),
		RestartOnTimeout: cc.RestartOnTimeout(),
	})
	s.runner = publishers.NewRunner(s.st, cc.Policy(), s.conn).
		WithObserver(s.metrics.ObservePublish)
	return nil
}

func (s *Station) buildWeather() error {
	wc := s.cfg.Weather()
	if !wc.Enabled {
		return nil
	}
	client := weather.NewClient(s.opts.HTTP, wc.Endpoint(), wc.CityID, wc.APIKey).
		WithClock(s.opts.Clock)
	return s.register(scheduler.Every(config.JobWeather, wc.Period(), client.Job(s.st)))
}

// firstLine is the ThingSpeak status: whatever the display's top line
// shows, falling back to the station time.
func (s *Station) firstLine(snap *state.Snapshot) string {
	if lines := s.panel.Lines(); len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		return lines[0]
	}
	return display.FormatDateTime(snap.Time)
}

func (s *Station) addPublisher(name string, period time.Duration, p publishers.Publisher, session connectivity.Session) error {
	if session != nil {
		s.conn.AddSession(session)
	}
	return s.register(scheduler.Every(name, period, s.runner.Job(p, session)))
}

func (s *Station) buildPublishers() error {
	pc := s.cfg.Publishers()
	hc := s.opts.HTTP

	if pc.ThingSpeak.Enabled {
		p := publishers.NewThingSpeak(hc, pc.ThingSpeak).WithStatus(s.firstLine)
		probe := connectivity.NewHTTPProbe(hc, "thingspeak", pc.ThingSpeak.Endpoint())
		if err := s.addPublisher(config.JobThingSpeak, pc.ThingSpeak.Period(), p, probe); err != nil {
			return err
		}
	}

	if pc.MQTT.Enabled {
		clientID := pc.MQTT.ClientID
		if clientID == "" {
			clientID = config.AppName + "-" + s.cfg.DeviceID()
		}
		opts := connectivity.NewClientOptions(pc.MQTT.Broker, clientID, s.cfg.LookupAuth)
		session := connectivity.NewMQTTSession(opts, s.opts.MQTT)
		s.onClose(func() error {
			session.Close()
			return nil
		})
		p := publishers.NewMQTT(session, pc.MQTT, s.cfg.DeviceID())
		if err := s.addPublisher(config.JobMQTT, pc.MQTT.Period(), p, session); err != nil {
			return err
		}
	}

	if pc.Influx.Enabled {
		p := publishers.NewInflux(hc, pc.Influx, s.cfg.Station().Name)
		probe := connectivity.NewHTTPProbe(hc, "influx", strings.TrimSuffix(pc.Influx.URL, "/")+"/health")
		if err := s.addPublisher(config.JobInflux, pc.Influx.Period(), p, probe); err != nil {
			return err
		}
	}

	if pc.Blynk.Enabled {
		p := publishers.NewBlynk(hc, pc.Blynk, s.relays)
		probe := connectivity.NewHTTPProbe(hc, "blynk", pc.Blynk.Endpoint())
		if err := s.addPublisher(config.JobBlynk, pc.Blynk.Period(), p, probe); err != nil {
			return err
		}
	}

	health := scheduler.Every(JobHealth, s.cfg.Connectivity().HealthCheck(), s.conn.HealthJob())
	return s.register(health)
}

// requirement maps a config requires flag to its predicate. The predicate
// reads the live config, so a reload before the stage fires counts.
func (s *Station) requirement(name string) func() bool {
	switch name {
	case config.RequiresZeroCalibration:
		return func() bool { return s.cfg.Sensors().CO2.ZeroCalibration }
	default:
		return nil
	}
}

// buildActivation registers the ticker last, with a stage for every
// configured job that exists on this station.
func (s *Station) buildActivation() error {
	ac := s.cfg.Activation()
	known := make(map[string]bool, len(s.jobNames))
	for _, name := range s.jobNames {
		known[name] = true
	}

	stages := make([]activation.Stage, 0, len(ac.Stages))
	for _, sc := range ac.Stages {
		if !known[sc.Job] {
			log.Debug().Msgf("activation stage for %s dropped, job not built", sc.Job)
			continue
		}
		stages = append(stages, activation.Stage{
			Job:      sc.Job,
			At:       uint64(sc.At), //nolint:gosec // validated min=1
			Requires: s.requirement(sc.Requires),
		})
	}

	ctrl := activation.New(s.sched, stages)
	return s.register(ctrl.Job(ac.Tick()))
}

func (s *Station) buildAPI() error {
	updater := api.NewUpdater(s.opts.Fs, s.opts.Dirs.Data, func() {
		s.opts.Restarter.Restart("update applied")
	})

	opts := api.Options{
		Clock:      s.opts.Clock,
		Update:     updater,
		Password:   s.cfg.UpdatePassword,
		Lines:      s.panel.Lines,
		Listen:     s.cfg.APIListen(),
		AllowedIPs: s.cfg.AllowedIPs(),
	}
	if s.cfg.MetricsEnabled() {
		opts.Metrics = s.metrics.Handler()
	}
	s.server = api.NewServer(s.st, s.broker, s.sched, s.relays, opts)

	if s.cfg.DiscoveryEnabled() {
		s.advert = discovery.New(
			discovery.InstanceName(s.cfg),
			s.cfg.APIPort(),
			discovery.TXTRecords(s.cfg),
			discovery.WithClock(s.opts.Clock),
		)
	}
	return nil
}
