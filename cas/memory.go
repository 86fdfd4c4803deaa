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
	"context"
	"sync"
	"sync/atomic"

	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// MemoryStore is an in-memory Store used by tests and by the
// ChunkStoreSuite conformance suite, which runs the same properties
// against MemoryStore and LocalStore.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[hash.Hash][]byte
	closed atomic.Bool
}

func NewMemory() *MemoryStore {
	return &MemoryStore{chunks: make(map[hash.Hash][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte) (hash.Hash, error) {
	if s.closed.Load() {
		return hash.Hash{}, ErrClosed
	}
	h := hash.Of(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[h]; !ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.chunks[h] = cp
	}
	return h, nil
}

func (s *MemoryStore) Get(ctx context.Context, h hash.Hash) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.chunks[h]
	if !ok {
		return nil, ErrNotFound
	}
	if hash.Of(data) != h {
		return nil, &IntegrityError{Hash: h}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Exists(ctx context.Context, h hash.Hash) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.chunks[h]
	return ok, nil
}

func (s *MemoryStore) Sweep(ctx context.Context, live map[hash.Hash]struct{}) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for h := range s.chunks {
		if _, ok := live[h]; !ok {
			delete(s.chunks, h)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	st.ChunkCount = len(s.chunks)
	for _, v := range s.chunks {
		st.TotalBytes += int64(len(v))
	}
	return st, nil
}

// corrupt is a test hook that flips the first byte of a stored chunk,
// so a later Get returns an *IntegrityError. The shared conformance
// suite does not call it.
func (s *MemoryStore) corrupt(h hash.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.chunks[h]; ok && len(b) > 0 {
		b[0] ^= 0xFF
	}
}

func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}
