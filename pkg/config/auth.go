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
	"maps"
	"net/url"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// CredentialEntry holds the credentials for one upstream. Bearer is used as
// an InfluxDB token or Blynk auth token, username/password for MQTT brokers.
type CredentialEntry struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Bearer   string `toml:"bearer"`
}

// schemeAliases fold transport variants onto one canonical scheme.
var schemeAliases = map[string]string{
	"tcp": "mqtt",
	"ssl": "mqtts",
	"tls": "mqtts",
	"ws":  "http",
	"wss": "https",
}

const (
	matchNone = iota
	matchHostPort
	matchCanonical
	matchExact
)

// LoadAuthFromData parses auth.toml. Entries may sit at the root
// (["https://host"]) or under a creds table ([creds."https://host"]); both
// forms are merged.
func LoadAuthFromData(data []byte) map[string]CredentialEntry {
	result := make(map[string]CredentialEntry)

	var root map[string]CredentialEntry
	if err := toml.Unmarshal(data, &root); err == nil {
		for k, v := range root {
			if k != "creds" {
				result[k] = v
			}
		}
	}

	var wrapped struct {
		Creds map[string]CredentialEntry `toml:"creds"`
	}
	if err := toml.Unmarshal(data, &wrapped); err == nil {
		maps.Copy(result, wrapped.Creds)
	}

	return result
}

func canonicalScheme(scheme string) string {
	lower := strings.ToLower(scheme)
	if c, ok := schemeAliases[lower]; ok {
		return c
	}
	return lower
}

// matchAuthKey ranks how well a configured key matches the request URL.
func matchAuthKey(key string, u *url.URL) int {
	if !strings.Contains(key, "://") {
		if strings.EqualFold(key, u.Host) {
			return matchHostPort
		}
		return matchNone
	}

	k, err := url.Parse(key)
	if err != nil {
		log.Error().Msgf("invalid auth config url: %s", key)
		return matchNone
	}
	if !strings.EqualFold(k.Host, u.Host) || !strings.HasPrefix(u.Path, k.Path) {
		return matchNone
	}
	switch {
	case strings.EqualFold(k.Scheme, u.Scheme):
		return matchExact
	case canonicalScheme(k.Scheme) == canonicalScheme(u.Scheme):
		return matchCanonical
	default:
		return matchNone
	}
}

// LookupAuth returns the best credentials for reqURL: an exact scheme match
// beats an aliased scheme (tcp:// vs mqtt://), which beats a bare host:port
// key. Among equal ranks the longest key wins, so path prefixes nest.
func LookupAuth(creds map[string]CredentialEntry, reqURL string) *CredentialEntry {
	if len(creds) == 0 {
		return nil
	}

	u, err := url.Parse(reqURL)
	if err != nil {
		log.Warn().Msgf("invalid auth request url: %s", reqURL)
		return nil
	}

	var (
		best     *CredentialEntry
		bestRank = matchNone
		bestKey  string
	)
	for k, v := range creds {
		rank := matchAuthKey(k, u)
		if rank == matchNone {
			continue
		}
		if rank > bestRank || (rank == bestRank && len(k) > len(bestKey)) {
			entry := v
			best, bestRank, bestKey = &entry, rank, k
		}
	}
	return best
}
