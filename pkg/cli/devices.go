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
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/drivers/pzem004t"
	"github.com/ogrelab/stationd/pkg/drivers/serialport"
	"github.com/ogrelab/stationd/pkg/helpers"
	"github.com/ogrelab/stationd/pkg/platform"
	"github.com/ogrelab/stationd/pkg/rtc"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var ErrNoPort = errors.New("no serial port configured, use --port")

// withRTC opens the configured DS3231 for one command.
func withRTC(fn func(r *rtc.RTC) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Clock().Location()
	if err != nil {
		return err
	}
	hw, err := platform.New()
	if err != nil {
		return err
	}
	defer func() {
		if err := hw.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing hardware")
		}
	}()
	bus, err := hw.Bus(cfg.Clock().Bus)
	if err != nil {
		return err
	}
	r, err := rtc.Open(bus, loc, clockwork.NewRealClock())
	if err != nil {
		return err
	}
	return fn(r)
}

func showRTC(w io.Writer, r *rtc.RTC) error {
	now, err := r.Now()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "rtc time: %s\n", now.Format(time.RFC3339))
	if temp, err := r.ReadTemperature(context.Background()); err == nil {
		_, _ = fmt.Fprintf(w, "rtc temperature: %.2f C\n", temp)
	}
	return nil
}

// setRTC writes t, or the system clock when t is zero.
func setRTC(w io.Writer, r *rtc.RTC, t time.Time) error {
	if t.IsZero() {
		if _, err := r.Sync(); err != nil {
			return err
		}
	} else if err := r.Set(t); err != nil {
		return err
	}
	return showRTC(w, r)
}

func rtcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rtc",
		Short: "Read or set the DS3231 real-time clock",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the RTC time and temperature",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRTC(func(r *rtc.RTC) error {
				return showRTC(cmd.OutOrStdout(), r)
			})
		},
	})

	var at string
	set := &cobra.Command{
		Use:   "set",
		Short: "Set the RTC from --time or from the system clock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var t time.Time
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --time: %w", err)
				}
				t = parsed
			}
			return withRTC(func(r *rtc.RTC) error {
				return setRTC(cmd.OutOrStdout(), r, t)
			})
		},
	}
	set.Flags().StringVar(&at, "time", "", "time to set, RFC3339 (default: system clock)")
	cmd.AddCommand(set)
	return cmd
}

// parseAddress accepts decimal or 0x-prefixed hex.
func parseAddress(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return byte(v), nil
}

type addresser interface {
	ReadAddress() (byte, error)
	SetAddress(addr byte) error
}

// pzemAddress prints the meter's address, first changing it when set is
// non-empty.
func pzemAddress(w io.Writer, dev addresser, set string) error {
	if set != "" {
		addr, err := parseAddress(set)
		if err != nil {
			return err
		}
		if err := dev.SetAddress(addr); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "address set to 0x%02X\n", addr)
	}
	addr, err := dev.ReadAddress()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "current address: 0x%02X\n", addr)
	return nil
}

func pzemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pzem",
		Short: "Configure a PZEM-004T power meter",
	}

	var port, set, from string
	address := &cobra.Command{
		Use:   "address",
		Short: "Read or change the meter's Modbus address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr := byte(config.DefaultPZEMAddress)
			if from != "" {
				parsed, err := parseAddress(from)
				if err != nil {
					return err
				}
				addr = parsed
			}
			if port == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				port = cfg.Sensors().Power.Port
			}
			if port == "" {
				ports, err := helpers.SerialPorts()
				if err != nil {
					return err
				}
				if port, err = helpers.PickSerialPort(ports); err != nil {
					return fmt.Errorf("%w: %w", ErrNoPort, err)
				}
				log.Info().Msgf("using serial port %s", port)
			}
			dev, err := pzem004t.Open(serialport.Open, port, addr)
			if err != nil {
				return err
			}
			defer func() { _ = dev.Close() }()
			return pzemAddress(cmd.OutOrStdout(), dev, set)
		},
	}
	address.Flags().StringVar(&port, "port", "", "serial port (default: sensors.power.port, then the only port found)")
	address.Flags().StringVar(&set, "set", "", "new address, e.g. 0x02")
	address.Flags().StringVar(&from, "addr", "", "address to talk to (default: 0xF8 general address)")
	cmd.AddCommand(address)
	return cmd
}
