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

// Package api is the station's local HTTP API: status and job inspection,
// relay control, Prometheus metrics, a websocket snapshot stream and the
// password gated update channel.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/ogrelab/stationd/pkg/api/middleware"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/ogrelab/stationd/pkg/relay"
	"github.com/ogrelab/stationd/pkg/scheduler"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var ErrUnknownRelay = errors.New("unknown relay")

// JobControl is the scheduler surface the API exposes.
type JobControl interface {
	Jobs() []scheduler.JobInfo
	Enable(name string) error
	Disable(name string) error
}

type Options struct {
	Clock clockwork.Clock
	// Metrics serves /metrics; nil leaves the route out.
	Metrics http.Handler
	// Update serves POST /update behind Password; nil leaves it out.
	Update   http.Handler
	Password func() string
	// Lines returns what the display currently shows.
	Lines      func() []string
	Listen     string
	AllowedIPs []string
}

type Server struct {
	st      *state.State
	broker  *state.Broker
	jobs    JobControl
	limiter *middleware.IPRateLimiter
	opts    Options
	relays  relay.Bank
}

func NewServer(st *state.State, broker *state.Broker, jobs JobControl, relays relay.Bank, opts Options) *Server {
	if opts.Password == nil {
		opts.Password = func() string { return "" }
	}
	return &Server{
		st:      st,
		broker:  broker,
		jobs:    jobs,
		relays:  relays,
		opts:    opts,
		limiter: middleware.NewIPRateLimiter(opts.Clock),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.AllowIPs(middleware.NewIPFilter(s.opts.AllowedIPs)))
	r.Use(middleware.RateLimit(s.limiter))

	r.Group(func(r chi.Router) {
		r.Use(chimw.NoCache)
		r.Use(chimw.Timeout(config.ApiRequestTimeout))

		r.Get("/status", s.handleStatus)
		r.Get("/jobs", s.handleJobs)
		r.Post("/jobs/{name}/enable", s.handleJobToggle(true))
		r.Post("/jobs/{name}/disable", s.handleJobToggle(false))
		r.Get("/relays", s.handleRelays)
		r.Put("/relays/{name}", s.handleSetRelay)
		if s.opts.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
		}
	})

	if s.broker != nil {
		r.Get("/ws", s.handleWS)
	}
	if s.opts.Update != nil {
		r.With(middleware.RequirePassword(s.opts.Password)).Post("/update", s.opts.Update.ServeHTTP)
	}

	return r
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.limiter.StartCleanup(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("api listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown: %w", err)
		}
		log.Info().Msg("api stopped")
		return nil
	})
	return g.Wait()
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Version  string         `json:"version"`
	Lines    []string       `json:"lines,omitempty"`
	Relays   []relay.Status `json:"relays,omitempty"`
	Snapshot state.Snapshot `json:"snapshot"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("error encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Version:  config.AppVersion,
		Snapshot: s.st.Snapshot(),
		Relays:   s.relays.Status(),
	}
	if s.opts.Lines != nil {
		resp.Lines = s.opts.Lines()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.Jobs())
}

func (s *Server) handleJobToggle(enable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var err error
		if enable {
			err = s.jobs.Enable(name)
		} else {
			err = s.jobs.Disable(name)
		}
		if errors.Is(err, scheduler.ErrUnknownJob) {
			writeError(w, http.StatusNotFound, err)
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		log.Info().Str("job", name).Bool("enabled", enable).Msg("job toggled through api")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleRelays(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.relays.Status())
}

type setRelayRequest struct {
	On *bool `json:"on"`
}

func (s *Server) handleSetRelay(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var target *relay.Relay
	for _, rl := range s.relays {
		if rl.Name == name {
			target = rl
			break
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", ErrUnknownRelay, name))
		return
	}

	var req setRelayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil || req.On == nil {
		writeError(w, http.StatusBadRequest, errors.New(`body must be {"on": true|false}`))
		return
	}
	if err := target.Set(*req.On); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, relay.Status{Name: target.Name, On: target.On()})
}
