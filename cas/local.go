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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// LocalStore is the default disk-backed CAS: one file per chunk,
// addressed by Layout, under root/chunks. root/quarantine holds
// chunks that failed an integrity check on read.
type LocalStore struct {
	root   string
	layout Layout

	group  singleflight.Group // collapses concurrent Put of the same hash
	closed atomic.Bool

	// genMu is the GC quiesce barrier: Sweep takes it for writing,
	// Put takes it for reading, so a Sweep never runs concurrently
	// with a Put (spec 4.3's "brief generation/quiesce barrier").
	genMu sync.RWMutex
}

// NewLocal creates (if needed) root/chunks and root/quarantine and
// returns a LocalStore rooted there.
func NewLocal(root string, layout Layout) (*LocalStore, error) {
	if layout == nil {
		layout = TwoPrefixLayout{}
	}
	if err := os.MkdirAll(filepath.Join(root, "chunks"), 0o755); err != nil {
		return nil, fmt.Errorf("cas: create chunks dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "quarantine"), 0o755); err != nil {
		return nil, fmt.Errorf("cas: create quarantine dir: %w", err)
	}
	return &LocalStore{root: root, layout: layout}, nil
}

func (s *LocalStore) path(h hash.Hash) string {
	return filepath.Join(s.root, "chunks", s.layout.Locate(h))
}

func (s *LocalStore) quarantinePath(h hash.Hash) string {
	return filepath.Join(s.root, "quarantine", h.String())
}

func (s *LocalStore) Put(ctx context.Context, data []byte) (hash.Hash, error) {
	if s.closed.Load() {
		return hash.Hash{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return hash.Hash{}, err
	}

	h := hash.Of(data)
	_, err, _ := s.group.Do(h.String(), func() (interface{}, error) {
		s.genMu.RLock()
		defer s.genMu.RUnlock()
		return nil, s.putOnce(h, data)
	})
	return h, err
}

// putOnce performs the actual write. Re-putting a hash that already
// exists is a no-op after confirming the on-disk bytes still match.
func (s *LocalStore) putOnce(h hash.Hash, data []byte) error {
	if existing, err := os.ReadFile(s.path(h)); err == nil {
		if hash.Of(existing) == h {
			return nil
		}
		// Fall through and overwrite a corrupt existing file; the
		// atomic rename below makes this safe for concurrent readers.
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cas: stat existing chunk: %w", err)
	}
	return s.writeChunk(h, data)
}

// writeChunk atomically writes data under h's path, regardless of
// whether data's own content hashes back to h (PutRaw, used by
// transform decorators, stores transformed bytes under the logical
// content's hash).
func (s *LocalStore) writeChunk(h hash.Hash, data []byte) error {
	dst := s.path(h)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("cas: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("cas: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cas: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("cas: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cas: close temp file: %w", err)
	}

	// Rename is the atomicity boundary: readers never observe a
	// partially written chunk.
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("cas: rename into place: %w", err)
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, h hash.Hash) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cas: read chunk: %w", err)
	}

	if hash.Of(data) != h {
		s.quarantine(h)
		return nil, &IntegrityError{Hash: h}
	}
	return data, nil
}

// quarantine moves a corrupt chunk aside so Sweep never treats it as
// live and a future Get doesn't keep returning the same bad bytes
// silently.
func (s *LocalStore) quarantine(h hash.Hash) {
	_ = os.Rename(s.path(h), s.quarantinePath(h))
}

func (s *LocalStore) Exists(ctx context.Context, h hash.Hash) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	if _, err := os.Stat(s.path(h)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalStore) Sweep(ctx context.Context, live map[hash.Hash]struct{}) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	// Block new Puts for the duration of the walk+delete so a chunk
	// being written right now is never mistaken for garbage.
	s.genMu.Lock()
	defer s.genMu.Unlock()

	chunksDir := filepath.Join(s.root, "chunks")
	deleted := 0
	err := filepath.WalkDir(chunksDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := filepath.Base(path)
		h, ok := hash.MaybeParse(name)
		if !ok {
			return nil // not a chunk file (e.g. a stray temp file)
		}
		if _, ok := live[h]; ok {
			return nil
		}
		if err := os.Remove(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		deleted++
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("cas: sweep: %w", err)
	}
	return deleted, nil
}

func (s *LocalStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := filepath.WalkDir(filepath.Join(s.root, "chunks"), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		st.ChunkCount++
		st.TotalBytes += info.Size()
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *LocalStore) Close() error {
	s.closed.Store(true)
	return nil
}
