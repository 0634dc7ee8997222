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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/ogrelab/stationd/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "STATIOND_CFG"
	HomeEnv       = "STATIOND_HOME"
)

var ErrSchemaMismatch = errors.New("schema version mismatch")

type Values struct {
	Station        Station      `toml:"station"`
	Clock          Clock        `toml:"clock,omitempty"`
	Connectivity   Connectivity `toml:"connectivity,omitempty"`
	Sensors        Sensors      `toml:"sensors,omitempty"`
	Display        Display      `toml:"display,omitempty"`
	Publishers     Publishers   `toml:"publishers,omitempty"`
	Weather        Weather      `toml:"weather,omitempty"`
	Scheduler      Scheduler    `toml:"scheduler,omitempty"`
	Activation     Activation   `toml:"activation,omitempty"`
	Service        Service      `toml:"service,omitempty"`
	Relays         []Relay      `toml:"relays,omitempty" validate:"dive"`
	ConfigSchema   int          `toml:"config_schema"`
	DebugLogging   bool         `toml:"debug_logging"`
	SentryDSN      string       `toml:"sentry_dsn,omitempty" validate:"omitempty,url"`
	ErrorReporting bool         `toml:"error_reporting"`
}

type Station struct {
	Name     string `toml:"name,omitempty" validate:"omitempty,hostname"`
	City     string `toml:"city,omitempty"`
	DeviceID string `toml:"device_id"`
}

type Instance struct {
	cfgPath  string
	authPath string
	vals     Values
	defaults Values
	auth     map[string]CredentialEntry
	mu       syncutil.RWMutex
}

// NewConfig loads the config file from $STATIOND_CFG or configDir, writing
// defaults to disk first if no file exists yet.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		authPath: filepath.Join(filepath.Dir(cfgPath), AuthFile),
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load re-reads the config and auth files. Values missing from the file keep
// their defaults. An invalid file leaves the current values untouched.
func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Array tables in the file replace the default list instead of
	// appending to it.
	newVals := cloneValues(c.defaults)
	newVals.Activation.Stages = nil
	newVals.Relays = nil
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if newVals.Activation.Stages == nil {
		newVals.Activation.Stages = append([]Stage(nil), c.defaults.Activation.Stages...)
	}
	if newVals.Relays == nil {
		newVals.Relays = append([]Relay(nil), c.defaults.Relays...)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return ErrSchemaMismatch
	}

	if err := Validate(&newVals); err != nil {
		return err
	}

	c.vals = newVals

	if _, err := os.Stat(c.authPath); err == nil {
		authData, err := os.ReadFile(c.authPath)
		if err != nil {
			return fmt.Errorf("failed to read auth file: %w", err)
		}
		c.auth = LoadAuthFromData(authData)
		log.Info().Msgf("loaded %d auth entries", len(c.auth))
	}

	return nil
}

// cloneValues copies v so decoding into the copy never writes through to
// the backing arrays of v's slices.
//
//nolint:gocritic // copied on purpose
func cloneValues(v Values) Values {
	v.Relays = append([]Relay(nil), v.Relays...)
	v.Activation.Stages = append([]Stage(nil), v.Activation.Stages...)
	v.Publishers.ThingSpeak.Fields = append([]string(nil), v.Publishers.ThingSpeak.Fields...)
	v.Connectivity.ReconnectCommand = append([]string(nil), v.Connectivity.ReconnectCommand...)
	v.Service.AllowedIPs = append([]string(nil), v.Service.AllowedIPs...)
	return v
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	if c.vals.Station.DeviceID == "" {
		newID := uuid.New().String()
		c.vals.Station.DeviceID = newID
		log.Info().Msgf("generated new device id: %s", newID)
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) Path() string {
	return c.cfgPath
}

// Values returns a copy of the loaded values.
func (c *Instance) Values() Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneValues(c.vals)
}

// LookupAuth returns the credentials in auth.toml matching reqURL, if any.
func (c *Instance) LookupAuth(reqURL string) *CredentialEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return LookupAuth(c.auth, reqURL)
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

func (c *Instance) ErrorReporting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ErrorReporting
}

func (c *Instance) SentryDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.SentryDSN
}

func (c *Instance) DeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Station.DeviceID
}

func (c *Instance) Station() Station {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Station
}
