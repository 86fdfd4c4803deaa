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

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/carabistouflette/JustSyncIt-sub012/catalog"
	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// Store is the narrow collaborator contract Build and Diff use to
// persist and read back nodes, letting both depend on an interface
// rather than *catalog.Catalog directly.
type Store interface {
	UpsertNode(ctx context.Context, n catalog.MerkleNode) error
	GetNode(ctx context.Context, h hash.Hash) (catalog.MerkleNode, error)
}

// defaultCacheSize bounds the read-through cache in front of the
// catalog's merklenodes bucket. Nodes are small and content-addressed,
// so a modest LRU absorbs most of the re-reads a Diff over a mostly
// unchanged tree performs.
const defaultCacheSize = 4096

// CatalogStore adapts a *catalog.Catalog to Store, with a
// hashicorp/golang-lru read-through cache in front of GetNode.
type CatalogStore struct {
	cat   *catalog.Catalog
	cache *lru.Cache[hash.Hash, catalog.MerkleNode]
}

// NewCatalogStore wraps cat with a bounded in-memory node cache.
func NewCatalogStore(cat *catalog.Catalog) (*CatalogStore, error) {
	cache, err := lru.New[hash.Hash, catalog.MerkleNode](defaultCacheSize)
	if err != nil {
		return nil, err
	}
	return &CatalogStore{cat: cat, cache: cache}, nil
}

func (s *CatalogStore) UpsertNode(ctx context.Context, n catalog.MerkleNode) error {
	if err := s.cat.UpsertMerkleNode(ctx, n); err != nil {
		return err
	}
	s.cache.Add(n.Hash, n)
	return nil
}

func (s *CatalogStore) GetNode(ctx context.Context, h hash.Hash) (catalog.MerkleNode, error) {
	if n, ok := s.cache.Get(h); ok {
		return n, nil
	}
	n, err := s.cat.GetMerkleNode(ctx, h)
	if err != nil {
		return catalog.MerkleNode{}, err
	}
	s.cache.Add(h, n)
	return n, nil
}

var _ Store = (*CatalogStore)(nil)
