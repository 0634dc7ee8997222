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

// Package telemetry forwards errors to Sentry when error reporting is on,
// and turns fatal startup conditions into a reported exit.
package telemetry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const flushTimeout = 2 * time.Second

// ErrNoDSN is returned when reporting is on but no DSN is configured.
var ErrNoDSN = errors.New("error reporting enabled without sentry_dsn")

var (
	enabled      bool
	sentryWriter *sentryzerolog.Writer
	closeOnce    sync.Once

	homePathRe = regexp.MustCompile(`(?i)/home/[^/]+/`)
)

// Init starts Sentry and tees error level logs into it alongside logWriter.
func Init(reportingEnabled bool, dsn, deviceID string, logWriter io.Writer) error {
	if !reportingEnabled {
		log.Debug().Msg("error reporting disabled")
		return nil
	}
	if dsn == "" {
		return ErrNoDSN
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          config.AppName + "@" + config.AppVersion,
		AttachStacktrace: true,
		SendDefaultPII:   false,
		MaxBreadcrumbs:   0,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return sanitizeEvent(event)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: deviceID})
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
	})

	sentryWriter, err = sentryzerolog.NewWithHub(sentry.CurrentHub(), sentryzerolog.Options{
		Levels:       []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel},
		FlushTimeout: flushTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create sentry zerolog writer: %w", err)
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(logWriter, sentryWriter)).
		With().Timestamp().Caller().Logger()

	enabled = true
	log.Info().Msg("error reporting enabled")
	return nil
}

// Close flushes pending events and shuts Sentry down. Safe to call more
// than once.
func Close() {
	if !enabled {
		return
	}
	closeOnce.Do(func() {
		_ = sentryWriter.Close()
		sentry.Flush(flushTimeout)
	})
}

func Flush() {
	if !enabled {
		return
	}
	sentry.Flush(flushTimeout)
}

func Enabled() bool {
	return enabled
}

// exit is os.Exit; tests replace it.
var exit = os.Exit

// Fatal reports err, flushes and exits with code 1. Used for startup
// conditions the station cannot run without, such as a missing RTC.
func Fatal(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	if enabled {
		sentry.CaptureException(err)
	}
	Close()
	exit(1)
}

// Restarter exits non-zero so the service manager starts a fresh process.
// It satisfies the connectivity manager's restart hook.
type Restarter struct {
	Exit func(code int)
}

func (r Restarter) Restart(reason string) {
	log.Error().Msgf("restarting: %s", reason)
	Close()
	fn := r.Exit
	if fn == nil {
		fn = exit
	}
	fn(2)
}

func sanitizeEvent(event *sentry.Event) *sentry.Event {
	event.ServerName = ""
	for i := range event.Exception {
		if st := event.Exception[i].Stacktrace; st != nil {
			for j := range st.Frames {
				st.Frames[j].AbsPath = sanitizePath(st.Frames[j].AbsPath)
				st.Frames[j].Filename = sanitizePath(st.Frames[j].Filename)
			}
		}
	}
	event.Message = sanitizePath(event.Message)
	for k, v := range event.Extra {
		if s, ok := v.(string); ok {
			event.Extra[k] = sanitizePath(s)
		}
	}
	return event
}

// sanitizePath strips the user name from home directory paths.
func sanitizePath(path string) string {
	return homePathRe.ReplaceAllString(path, "/home/<user>/")
}
