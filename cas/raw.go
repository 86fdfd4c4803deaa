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
	"fmt"
	"os"

	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// RawStore is the lower-level contract LocalStore and MemoryStore
// satisfy in addition to Store. Transform decorators (Compress,
// Encrypt) need to store bytes that do not themselves hash back to
// the logical content's hash - PutRaw/GetRaw let them address the
// physical bytes by the caller-chosen (logical) hash while leaving
// integrity verification of the logical content to the decorator.
type RawStore interface {
	PutRaw(ctx context.Context, h hash.Hash, raw []byte) error
	GetRaw(ctx context.Context, h hash.Hash) ([]byte, error)
	Exists(ctx context.Context, h hash.Hash) (bool, error)
	Sweep(ctx context.Context, live map[hash.Hash]struct{}) (int, error)
	Close() error
}

func (s *LocalStore) PutRaw(ctx context.Context, h hash.Hash, raw []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	return s.writeChunk(h, raw)
}

func (s *LocalStore) GetRaw(ctx context.Context, h hash.Hash) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	data, err := os.ReadFile(s.path(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cas: read chunk: %w", err)
	}
	return data, nil
}

func (s *MemoryStore) PutRaw(ctx context.Context, h hash.Hash, raw []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(raw))
	copy(cp, raw)
	s.chunks[h] = cp
	return nil
}

func (s *MemoryStore) GetRaw(ctx context.Context, h hash.Hash) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.chunks[h]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

var (
	_ RawStore = (*LocalStore)(nil)
	_ RawStore = (*MemoryStore)(nil)
)
