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

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	kservice "github.com/kardianos/service"
	"github.com/ogrelab/stationd/internal/telemetry"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/helpers"
	"github.com/ogrelab/stationd/pkg/platform"
	"github.com/ogrelab/stationd/pkg/rtc"
	"github.com/ogrelab/stationd/pkg/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// program adapts the station to the system service manager.
type program struct {
	cfg  *config.Instance
	stop func() error
	hw   *platform.Platform
	hup  chan os.Signal
	dirs helpers.Dirs
}

func (p *program) Start(kservice.Service) error {
	hw, err := platform.New()
	if err != nil {
		log.Warn().Err(err).Msg("no hardware platform, i2c and gpio unavailable")
	} else {
		p.hw = hw
	}

	opts := service.Options{
		Restarter: telemetry.Restarter{},
		Dirs:      p.dirs,
	}
	if p.hw != nil {
		opts.Hardware = p.hw
	}

	stop, _, err := service.Start(p.cfg, opts)
	if err != nil {
		p.closeHardware()
		return err
	}
	p.stop = stop

	p.hup = make(chan os.Signal, 1)
	signal.Notify(p.hup, syscall.SIGHUP)
	go p.reloadOnHangup()
	return nil
}

func (p *program) reloadOnHangup() {
	for range p.hup {
		if err := p.cfg.Load(); err != nil {
			log.Error().Err(err).Msg("config reload failed, keeping previous values")
			continue
		}
		helpers.SetDebug(p.cfg.DebugLogging())
		log.Info().Msg("config reloaded on SIGHUP")
	}
}

func (p *program) Stop(kservice.Service) error {
	if p.hup != nil {
		signal.Stop(p.hup)
		close(p.hup)
	}
	var err error
	if p.stop != nil {
		err = p.stop()
	}
	p.closeHardware()
	telemetry.Close()
	return err
}

func (p *program) closeHardware() {
	if p.hw == nil {
		return
	}
	if err := p.hw.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing hardware")
	}
	p.hw = nil
}

func serviceConfig() *kservice.Config {
	return &kservice.Config{
		Name:        config.AppName,
		DisplayName: "stationd",
		Description: "Station agent for sensors, displays and cloud telemetry",
		Arguments:   []string{"run"},
		Option: kservice.KeyValue{
			"Restart": "always",
		},
	}
}

func runCmd() *cobra.Command {
	var foreground bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the station until stopped",
		RunE: func(_ *cobra.Command, _ []string) error {
			var writers []io.Writer
			if foreground || kservice.Interactive() {
				writers = append(writers, helpers.ConsoleWriter())
			}
			cfg, dirs, err := Setup(config.BaseDefaults, writers)
			if err != nil {
				return err
			}

			defer func() {
				if r := recover(); r != nil {
					log.Error().Msgf("panic: %v", r)
					telemetry.Close()
					panic(r)
				}
			}()

			prg := &program{cfg: cfg, dirs: dirs}
			svc, err := kservice.New(prg, serviceConfig())
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}

			err = svc.Run()
			if errors.Is(err, rtc.ErrNoRTC) {
				telemetry.Fatal(err, "couldn't find RTC")
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "also log to stderr")
	return cmd
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the stationd system service",
	}
	for _, action := range kservice.ControlAction {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: action + " the system service",
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := kservice.New(&program{}, serviceConfig())
				if err != nil {
					return fmt.Errorf("failed to create service: %w", err)
				}
				if err := kservice.Control(svc, action); err != nil {
					return fmt.Errorf("service %s failed: %w", action, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the system service status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := kservice.New(&program{}, serviceConfig())
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			st, err := svc.Status()
			if err != nil {
				return fmt.Errorf("failed to query service: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), serviceStatus(st))
			return nil
		},
	})
	return cmd
}

func serviceStatus(st kservice.Status) string {
	switch st {
	case kservice.StatusRunning:
		return "running"
	case kservice.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
