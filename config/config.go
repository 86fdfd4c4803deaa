// Copyright 2026 The JustSyncIt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config persists the handful of parameters a store fixes for
// its entire lifetime - hash algorithm, chunker mode and parameters,
// CAS layout, transform stack - to a single config.toml written once
// at store creation. Changing any of these for existing content
// defeats deduplication or breaks restore, so the file is write-once:
// Save refuses to overwrite an existing config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the config file's name within a store's root directory.
const FileName = "config.toml"

// ErrAlreadyExists is returned by Save when a config file is already
// present at the target path; store configuration is immutable once
// written.
var ErrAlreadyExists = errors.New("config: store already configured")

// StoreConfig holds the parameters a store fixes once, at creation.
type StoreConfig struct {
	HashAlgorithm string `toml:"hash_algorithm"`

	ChunkerMode string `toml:"chunker_mode"`
	ChunkSize   int    `toml:"chunk_size,omitempty"`
	CDCMin      int    `toml:"cdc_min,omitempty"`
	CDCTarget   int    `toml:"cdc_target,omitempty"`
	CDCMax      int    `toml:"cdc_max,omitempty"`
	CDCMask     uint64 `toml:"cdc_mask,omitempty"`

	Layout string `toml:"layout"`

	// Transforms lists the CAS decorator stack applied in order from
	// innermost to outermost, e.g. ["compress", "encrypt"].
	Transforms []string `toml:"transforms,omitempty"`

	CreatedAt time.Time `toml:"created_at"`
}

// Default returns the spec's documented defaults: blake2b-256
// hashing, fixed-size 64 KiB chunks, two-prefix CAS layout, no
// transforms.
func Default() StoreConfig {
	return StoreConfig{
		HashAlgorithm: "blake2b-256",
		ChunkerMode:   "fixed",
		ChunkSize:     64 * 1024,
		Layout:        "two-prefix",
		CreatedAt:     time.Now().UTC(),
	}
}

// Save writes cfg to <storeRoot>/config.toml. It fails with
// ErrAlreadyExists if the file is already present: a store's
// configuration is fixed at creation and never rewritten.
func Save(storeRoot string, cfg StoreConfig) error {
	path := filepath.Join(storeRoot, FileName)
	if _, err := os.Stat(path); err == nil {
		return ErrAlreadyExists
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}

// Load reads the store configuration at <storeRoot>/config.toml.
func Load(storeRoot string) (StoreConfig, error) {
	var cfg StoreConfig
	path := filepath.Join(storeRoot, FileName)
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return StoreConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
