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

package chunker

import (
	"sync"

	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// SparseCache memoizes the hash of an all-zero run of a given length,
// so that a backup job processing a large sparse file hashes each
// distinct run length once rather than re-hashing identical zero
// bytes on every occurrence. It is a performance cache only: a piece
// whose bytes are not all zero must never be looked up here.
type SparseCache struct {
	mu    sync.Mutex
	cache map[int64]hash.Hash
}

// NewSparseCache returns an empty cache.
func NewSparseCache() *SparseCache {
	return &SparseCache{cache: make(map[int64]hash.Hash)}
}

// HashOfZeros returns H(zeros of length n), computing it at most once
// per distinct n.
func (s *SparseCache) HashOfZeros(n int64) hash.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.cache[n]; ok {
		return h
	}
	h := hash.Of(make([]byte, n))
	s.cache[n] = h
	return h
}

// IsZero reports whether every byte of b is zero. Callers use this to
// decide whether a piece is eligible for the sparse-run sentinel.
func IsZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
