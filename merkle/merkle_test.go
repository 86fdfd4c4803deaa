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

package merkle

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carabistouflette/JustSyncIt-sub012/catalog"
	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// memStore is a trivial in-memory Store used only by this package's
// own tests, independent of CatalogStore's bolt+lru wiring.
type memStore struct {
	mu    sync.Mutex
	nodes map[hash.Hash]catalog.MerkleNode
}

func newMemStore() *memStore {
	return &memStore{nodes: make(map[hash.Hash]catalog.MerkleNode)}
}

func (m *memStore) UpsertNode(ctx context.Context, n catalog.MerkleNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[n.Hash] = n
	return nil
}

func (m *memStore) GetNode(ctx context.Context, h hash.Hash) (catalog.MerkleNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[h]
	if !ok {
		return catalog.MerkleNode{}, catalog.ErrNotFound
	}
	return n, nil
}

func fileRecord(path string, content string) catalog.FileRecord {
	return catalog.FileRecord{
		RelativePath: path,
		Size:         int64(len(content)),
		Type:         catalog.Regular,
		FileHash:     hash.Of([]byte(content)),
	}
}

func TestBuildEmptySnapshotIsFixedHash(t *testing.T) {
	store := newMemStore()
	root, err := Build(context.Background(), store, nil)
	require.NoError(t, err)
	require.Equal(t, EmptyDirHash, root)
}

func TestBuildDeterministicUnderInputOrder(t *testing.T) {
	store := newMemStore()
	files1 := []catalog.FileRecord{
		fileRecord("a.txt", "hello"),
		fileRecord("dir/b.txt", "world"),
	}
	files2 := []catalog.FileRecord{
		fileRecord("dir/b.txt", "world"),
		fileRecord("a.txt", "hello"),
	}

	r1, err := Build(context.Background(), store, files1)
	require.NoError(t, err)
	r2, err := Build(context.Background(), newMemStore(), files2)
	require.NoError(t, err)
	require.Equal(t, r1, r2)
}

func TestBuildDiffersOnContentChange(t *testing.T) {
	s1 := newMemStore()
	r1, err := Build(context.Background(), s1, []catalog.FileRecord{
		fileRecord("a.txt", "hi"),
		fileRecord("b.txt", "there"),
	})
	require.NoError(t, err)

	s2 := newMemStore()
	r2, err := Build(context.Background(), s2, []catalog.FileRecord{
		fileRecord("a.txt", "hi"),
		fileRecord("b.txt", "world"),
	})
	require.NoError(t, err)

	require.NotEqual(t, r1, r2)
}

func TestDiffModifiedFile(t *testing.T) {
	store := newMemStore()
	r1, err := Build(context.Background(), store, []catalog.FileRecord{
		fileRecord("a.txt", "hi"),
		fileRecord("b.txt", "there"),
	})
	require.NoError(t, err)
	r2, err := Build(context.Background(), store, []catalog.FileRecord{
		fileRecord("a.txt", "hi"),
		fileRecord("b.txt", "world"),
	})
	require.NoError(t, err)

	var changes []Change
	err = Diff(context.Background(), store, r1, r2, func(c Change) error {
		changes = append(changes, c)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "b.txt", changes[0].Path)
	require.Equal(t, Modified, changes[0].Kind)
}

func TestDiffAddedAndDeleted(t *testing.T) {
	store := newMemStore()
	r1, err := Build(context.Background(), store, []catalog.FileRecord{
		fileRecord("a.txt", "hi"),
	})
	require.NoError(t, err)
	r2, err := Build(context.Background(), store, []catalog.FileRecord{
		fileRecord("a.txt", "hi"),
		fileRecord("c/new.txt", "new"),
	})
	require.NoError(t, err)

	var changes []Change
	err = Diff(context.Background(), store, r1, r2, func(c Change) error {
		changes = append(changes, c)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "c/new.txt", changes[0].Path)
	require.Equal(t, Added, changes[0].Kind)

	changes = nil
	err = Diff(context.Background(), store, r2, r1, func(c Change) error {
		changes = append(changes, c)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, Deleted, changes[0].Kind)
}

func TestDiffIdenticalTreesYieldNoChanges(t *testing.T) {
	store := newMemStore()
	r1, err := Build(context.Background(), store, []catalog.FileRecord{
		fileRecord("a.txt", "hi"),
		fileRecord("dir/b.txt", "there"),
	})
	require.NoError(t, err)

	var changes []Change
	err = Diff(context.Background(), store, r1, r1, func(c Change) error {
		changes = append(changes, c)
		return nil
	})
	require.NoError(t, err)
	require.Empty(t, changes)
}

func TestDiffKindChangeEmitsDeleteAndAdd(t *testing.T) {
	store := newMemStore()
	// a.txt is a file in r1, but becomes a directory "a.txt/x" in r2.
	r1, err := Build(context.Background(), store, []catalog.FileRecord{
		fileRecord("a.txt", "hi"),
	})
	require.NoError(t, err)
	r2, err := Build(context.Background(), store, []catalog.FileRecord{
		fileRecord("a.txt/x", "hi"),
	})
	require.NoError(t, err)

	var changes []Change
	err = Diff(context.Background(), store, r1, r2, func(c Change) error {
		changes = append(changes, c)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	kinds := map[ChangeKind]bool{}
	for _, c := range changes {
		kinds[c.Kind] = true
	}
	require.True(t, kinds[Deleted])
	require.True(t, kinds[Added])
}
