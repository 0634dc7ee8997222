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

package serialport

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"go.bug.st/serial"
)

var ErrClosed = errors.New("port closed")

// Fake is an in-memory Port. Each Write pops the next queued reply into the
// read buffer, so request/response drivers can be tested in order.
type Fake struct {
	replies  [][]byte
	Writes   [][]byte
	buf      bytes.Buffer
	Timeout  time.Duration
	ReadErr  error
	WriteErr error
	mu       sync.Mutex
	Closed   bool
}

// NewFake returns a Fake that answers successive writes with replies.
func NewFake(replies ...[]byte) *Fake {
	return &Fake{replies: replies}
}

// Factory returns a Factory that always hands out f.
func (f *Fake) Factory() Factory {
	return func(string, *serial.Mode) (Port, error) {
		return f, nil
	}
}

func (f *Fake) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Closed {
		return 0, ErrClosed
	}
	if f.ReadErr != nil {
		return 0, f.ReadErr
	}
	if f.buf.Len() == 0 {
		return 0, nil
	}
	return f.buf.Read(p)
}

func (f *Fake) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Closed {
		return 0, ErrClosed
	}
	if f.WriteErr != nil {
		return 0, f.WriteErr
	}
	f.Writes = append(f.Writes, bytes.Clone(p))
	if len(f.replies) > 0 {
		f.buf.Write(f.replies[0])
		f.replies = f.replies[1:]
	}
	return len(p), nil
}

func (f *Fake) ResetInputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf.Reset()
	return nil
}

func (f *Fake) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Timeout = t
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
