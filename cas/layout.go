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

package cas

import (
	"path/filepath"

	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// Layout maps a chunk hash to a path relative to the store's chunks
// directory. Locate is the only thing the spec fixes about on-disk
// placement; the format of the returned path is otherwise an
// implementation detail of each Layout.
type Layout interface {
	Locate(h hash.Hash) string
}

// FlatLayout places every chunk directly in the chunks directory. It
// is simple but produces directories too large for most filesystems
// to traverse efficiently at scale.
type FlatLayout struct{}

func (FlatLayout) Locate(h hash.Hash) string {
	return h.String()
}

// SinglePrefixLayout shards on the first hex nibble of the hash (16
// subdirectories) - coarser than TwoPrefixLayout, useful for small
// stores where 256 subdirectories would mostly sit empty.
type SinglePrefixLayout struct{}

func (SinglePrefixLayout) Locate(h hash.Hash) string {
	s := h.String()
	return filepath.Join(s[:1], s)
}

// TwoPrefixLayout is the spec's default: <chunks>/<hh>/<rest>, where
// hh is the first two hex characters of the hash.
type TwoPrefixLayout struct{}

func (TwoPrefixLayout) Locate(h hash.Hash) string {
	s := h.String()
	return filepath.Join(s[:2], s)
}

// LayoutByName resolves a layout strategy name as persisted in store
// configuration.
func LayoutByName(name string) Layout {
	switch name {
	case "flat":
		return FlatLayout{}
	case "single-prefix":
		return SinglePrefixLayout{}
	case "two-prefix", "":
		return TwoPrefixLayout{}
	default:
		return TwoPrefixLayout{}
	}
}
