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

package api

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/creativeprojects/go-selfupdate/update"
	"github.com/ogrelab/stationd/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	TargetFirmware   = "firmware"
	TargetFilesystem = "filesystem"

	// MaxUpdateSize caps an uploaded image.
	MaxUpdateSize = 64 << 20
	updateField   = "update"
)

var (
	ErrUnknownTarget = errors.New("unknown update target")
	ErrNoImage       = errors.New("no update image in request")
	ErrEmptyImage    = errors.New("update image is empty")
)

// ApplyFunc replaces the running binary; update.Apply in production.
type ApplyFunc func(r io.Reader, opts update.Options) error

// Updater handles the two update targets. Firmware images replace the
// executable; filesystem images replace the station data file.
type Updater struct {
	fs         afero.Fs
	apply      ApplyFunc
	onApplied  func()
	dataDir    string
	targetPath string
}

// NewUpdater writes data files under dataDir. onApplied runs after a
// firmware image is in place, normally to restart the service.
func NewUpdater(fs afero.Fs, dataDir string, onApplied func()) *Updater {
	return &Updater{fs: fs, dataDir: dataDir, apply: update.Apply, onApplied: onApplied}
}

// WithApply replaces the binary swap and its target path.
func (u *Updater) WithApply(apply ApplyFunc, targetPath string) *Updater {
	u.apply = apply
	u.targetPath = targetPath
	return u
}

// ApplyFirmware swaps the executable for r. A non-empty checksum is the hex
// SHA-256 the image must match.
func (u *Updater) ApplyFirmware(r io.Reader, checksum string) error {
	opts := update.Options{TargetPath: u.targetPath}
	if checksum != "" {
		sum, err := hex.DecodeString(checksum)
		if err != nil {
			return fmt.Errorf("invalid checksum: %w", err)
		}
		opts.Checksum = sum
	}
	if err := u.apply(r, opts); err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			log.Error().Err(rerr).Msg("update: rollback failed, binary may be missing")
		}
		return fmt.Errorf("failed to apply firmware: %w", err)
	}
	return nil
}

// ApplyFilesystem replaces the data file through a temporary file and a
// rename.
func (u *Updater) ApplyFilesystem(r io.Reader) error {
	if err := u.fs.MkdirAll(u.dataDir, 0o750); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	target := filepath.Join(u.dataDir, config.UpdateFile)
	tmp, err := afero.TempFile(u.fs, u.dataDir, "."+config.UpdateFile+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		if rmErr := u.fs.Remove(tmpName); rmErr != nil {
			log.Debug().Err(rmErr).Msg("update: failed to remove temp file")
		}
	}

	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := u.fs.Rename(tmpName, target); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	log.Info().Msgf("update: wrote %d bytes to %s", n, target)
	return nil
}

// image returns the "update" file part of a multipart upload, or the raw
// body for any other content type.
func image(r *http.Request) (io.ReadCloser, error) {
	if !isMultipart(r) {
		return r.Body, nil
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}
	f, _, err := r.FormFile(updateField)
	if err != nil {
		return nil, ErrNoImage
	}
	return f, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/")
}

// param reads a form value. A raw body is the image itself, so only the
// query is consulted and the body is never parsed as a form.
func param(r *http.Request, key string) string {
	if r.MultipartForm != nil {
		return r.FormValue(key)
	}
	return r.URL.Query().Get(key)
}

// nonEmpty fails with ErrEmptyImage when img has no bytes.
func nonEmpty(img io.Reader) (io.Reader, error) {
	br := bufio.NewReader(img)
	if _, err := br.Peek(1); errors.Is(err, io.EOF) {
		return nil, ErrEmptyImage
	} else if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return br, nil
}

// ServeHTTP takes target and sha256 from the query, or from the form of a
// multipart upload. The image is either the "update" file part or the raw
// body. An empty image is rejected.
func (u *Updater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUpdateSize)
	img, err := image(r)
	if r.MultipartForm != nil {
		defer func() {
			if rmErr := r.MultipartForm.RemoveAll(); rmErr != nil {
				log.Debug().Err(rmErr).Msg("update: failed to remove upload temp files")
			}
		}()
	}
	if err != nil {
		log.Warn().Err(err).Msg("update: bad request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		if closeErr := img.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("update: failed to close image")
		}
	}()

	body, err := nonEmpty(img)
	if err != nil {
		log.Warn().Err(err).Msg("update: bad request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	target := param(r, "target")
	if target == "" {
		target = TargetFirmware
	}
	log.Info().Str("target", target).Str("addr", r.RemoteAddr).Msg("update: start")

	switch target {
	case TargetFirmware:
		err = u.ApplyFirmware(body, param(r, "sha256"))
	case TargetFilesystem:
		err = u.ApplyFilesystem(body)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownTarget, target)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("target", target).Msg("update: failed")
		http.Error(w, "Update failed", http.StatusInternalServerError)
		return
	}

	log.Info().Str("target", target).Msg("update: success")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
	if target == TargetFirmware && u.onApplied != nil {
		go u.onApplied()
	}
}
