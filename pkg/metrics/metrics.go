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

// Package metrics exposes job, sample and publish counters plus the current
// readings in the Prometheus text format.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ogrelab/stationd/pkg/sensors"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stationd"

type Metrics struct {
	registry    *prometheus.Registry
	jobRuns     *prometheus.CounterVec
	jobPanics   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	samples     *prometheus.CounterVec
	publishes   *prometheus.CounterVec
	code        func(error) int
}

// New registers the station collectors on a private registry. code maps a
// publish error to its upstream result code.
func New(st *state.State, code func(error) int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		code:     code,
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Completed scheduler job runs.",
		}, []string{"job"}),
		jobPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_panics_total",
			Help:      "Job runs that ended in a recovered panic.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of job runs.",
			Buckets:   []float64{.001, .01, .1, .5, 1, 2, 5, 15},
		}, []string{"job"}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Sensor samples by channel and result.",
		}, []string{"channel", "result"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Publish attempts by publisher and result code.",
		}, []string{"publisher", "code"}),
	}
	m.registry.MustRegister(
		m.jobRuns, m.jobPanics, m.jobDuration, m.samples, m.publishes,
		newStateCollector(st),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun matches scheduler.RunObserver.
func (m *Metrics) ObserveRun(name string, took time.Duration, panicked bool) {
	m.jobRuns.WithLabelValues(name).Inc()
	m.jobDuration.WithLabelValues(name).Observe(took.Seconds())
	if panicked {
		m.jobPanics.WithLabelValues(name).Inc()
	}
}

// ObserveSample matches sensors.SampleObserver.
func (m *Metrics) ObserveSample(channel string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, sensors.ErrInvalidSample):
		result = "invalid"
	default:
		result = "error"
	}
	m.samples.WithLabelValues(channel, result).Inc()
}

// ObservePublish matches publishers.ResultObserver.
func (m *Metrics) ObservePublish(publisher string, err error) {
	code := 200
	if err != nil {
		code = -1
		if m.code != nil {
			code = m.code(err)
		}
	}
	m.publishes.WithLabelValues(publisher, strconv.Itoa(code)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
