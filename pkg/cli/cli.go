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

// Package cli holds the stationd command tree.
package cli

import (
	"fmt"
	"io"

	"github.com/ogrelab/stationd/internal/telemetry"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Setup creates the station directories, starts logging, loads the config
// and turns on error reporting when configured.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaults config.Values, writers []io.Writer) (*config.Instance, helpers.Dirs, error) {
	dirs := helpers.ResolveDirs()
	if err := helpers.EnsureDirectories(dirs); err != nil {
		return nil, dirs, err
	}

	if err := helpers.InitLogging(dirs.Log, writers); err != nil {
		return nil, dirs, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(dirs.Config, defaults)
	if err != nil {
		return nil, dirs, fmt.Errorf("error loading config: %w", err)
	}
	helpers.SetDebug(cfg.DebugLogging())

	logWriter := io.MultiWriter(append([]io.Writer{helpers.LogWriter(dirs.Log)}, writers...)...)
	if err := telemetry.Init(cfg.ErrorReporting(), cfg.SentryDSN(), cfg.DeviceID(), logWriter); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, dirs, nil
}

// loadConfig reads the config for the short-lived commands, logging to the
// console only.
func loadConfig() (*config.Instance, error) {
	log.Logger = log.Output(helpers.ConsoleWriter())
	dirs := helpers.ResolveDirs()
	cfg, err := config.NewConfig(dirs.Config, config.BaseDefaults)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	helpers.SetDebug(cfg.DebugLogging())
	return cfg, nil
}

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Station agent for sensors, displays and cloud telemetry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		versionCmd(),
		runCmd(),
		serviceCmd(),
		statusCmd(),
		watchCmd(),
		jobsCmd(),
		relayCmd(),
		rtcCmd(),
		pzemCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.AppName, config.AppVersion)
		},
	}
}
