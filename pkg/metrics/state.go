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

package metrics

import (
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/prometheus/client_golang/prometheus"
)

// stateCollector reports the current readings on every scrape.
type stateCollector struct {
	st      *state.State
	reading *prometheus.Desc
	healthy *prometheus.Desc
}

func newStateCollector(st *state.State) *stateCollector {
	return &stateCollector{
		st: st,
		reading: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "reading"),
			"Latest good value of a station channel.",
			[]string{"field"}, nil,
		),
		healthy: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "link_healthy"),
			"1 when the last publish or connectivity check succeeded.",
			nil, nil,
		),
	}
}

func (c *stateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.reading
	ch <- c.healthy
}

func (c *stateCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.st.Snapshot()
	for _, name := range state.FieldNames {
		if v, ok := snap.Field(name); ok {
			ch <- prometheus.MustNewConstMetric(c.reading, prometheus.GaugeValue, v, name)
		}
	}
	healthy := 0.0
	if snap.LinkHealthy {
		healthy = 1
	}
	ch <- prometheus.MustNewConstMetric(c.healthy, prometheus.GaugeValue, healthy)
}
