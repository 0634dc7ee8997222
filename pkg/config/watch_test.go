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
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "")
	cfg := newInstance(path)
	require.NoError(t, cfg.Load())
	require.False(t, cfg.DebugLogging())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var reloads atomic.Int32
	require.NoError(t, Watch(ctx, cfg, 20*time.Millisecond, func() { reloads.Add(1) }))

	body := fmt.Sprintf("config_schema = %d\ndebug_logging = true\n", SchemaVersion)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	assert.Eventually(t, func() bool {
		return cfg.DebugLogging() && reloads.Load() >= 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchKeepsValuesOnInvalidWrite(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "debug_logging = true\n")
	cfg := newInstance(path)
	require.NoError(t, cfg.Load())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var reloads atomic.Int32
	require.NoError(t, Watch(ctx, cfg, 20*time.Millisecond, func() { reloads.Add(1) }))

	require.NoError(t, os.WriteFile(path, []byte("config_schema = 99\n"), 0o600))

	time.Sleep(300 * time.Millisecond)
	assert.True(t, cfg.DebugLogging())
	assert.Equal(t, int32(0), reloads.Load())
}
