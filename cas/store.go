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

// Package cas implements the content-addressable chunk store: a
// deduplicating, append-only map of hash -> bytes with
// reference-sweep garbage collection. Compression and encryption are
// decorators that implement the same Store interface, so they can be
// stacked without the rest of the system knowing they are there.
package cas

import (
	"context"
	"errors"
	"fmt"

	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// ErrNotFound is returned by Get and, where relevant, Exists-adjacent
// operations when a hash has no corresponding chunk.
var ErrNotFound = errors.New("cas: chunk not found")

// ErrClosed is returned by any operation on a Store after Close.
var ErrClosed = errors.New("cas: store is closed")

// IntegrityError reports that the bytes read back for a hash do not
// hash back to it. The chunk is never deleted: LocalStore moves it
// into its quarantine directory, while MemoryStore and the
// Compress/Encrypt decorators leave it where it is.
type IntegrityError struct {
	Hash hash.Hash
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("cas: integrity check failed for chunk %s", e.Hash)
}

// Store is the contract every chunk store implementation (local disk,
// in-memory, and their compress/encrypt decorators) satisfies.
//
//   - Put is idempotent: re-putting known bytes is a no-op after an
//     integrity check, and concurrent Puts of the same hash collapse
//     to one physical write.
//   - Get returns bytes that satisfy hash.Of(bytes) == h, or a non-nil
//     *IntegrityError, or ErrNotFound.
//   - Sweep deletes every chunk not present in live and returns how
//     many were removed; it must not delete a chunk concurrently
//     being written.
type Store interface {
	Put(ctx context.Context, data []byte) (hash.Hash, error)
	Get(ctx context.Context, h hash.Hash) ([]byte, error)
	Exists(ctx context.Context, h hash.Hash) (bool, error)
	Sweep(ctx context.Context, live map[hash.Hash]struct{}) (int, error)
	Close() error
}

// Stats summarizes a store's contents for the spec's stats()
// operation.
type Stats struct {
	ChunkCount int
	TotalBytes int64
}

// StatsProvider is implemented by stores that can report Stats.
// LocalStore computes them by walking its chunks directory;
// MemoryStore reads them from its in-memory map.
type StatsProvider interface {
	Stats(ctx context.Context) (Stats, error)
}
