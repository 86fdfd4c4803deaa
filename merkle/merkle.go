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

// Package merkle builds a directory-shaped hash tree from a
// snapshot's file list and diffs two such trees in time proportional
// to the size of their difference, not the size of either tree.
package merkle

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/carabistouflette/JustSyncIt-sub012/catalog"
	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// EmptyDirHash is the fixed hash of a directory with no children and
// no name, used as a snapshot's root hash when it contains no files
// at all (spec scenario S4).
var EmptyDirHash = dirHash("", nil)

// trieEntry is one directory-tree node built in memory from a flat
// file list before hashing bottom-up. Files are leaves; everything
// else is an intermediate directory.
type trieEntry struct {
	name     string
	isFile   bool
	file     catalog.FileRecord
	children map[string]*trieEntry
}

func newDirEntry(name string) *trieEntry {
	return &trieEntry{name: name, children: make(map[string]*trieEntry)}
}

// Build constructs the Merkle tree for files (the full, catalog-read
// file list of a snapshot - never the in-memory output of PROCESS, so
// a partially failed backup still hashes what actually committed),
// persists every node through store, and returns the root hash.
func Build(ctx context.Context, store Store, files []catalog.FileRecord) (hash.Hash, error) {
	root := newDirEntry("")
	for _, f := range files {
		if err := insert(root, f); err != nil {
			return hash.Hash{}, err
		}
	}
	return hashAndStore(ctx, store, root)
}

func insert(root *trieEntry, f catalog.FileRecord) error {
	segs := splitPath(f.RelativePath)
	if len(segs) == 0 {
		return fmt.Errorf("merkle: empty relative path")
	}
	cur := root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur.children[seg]
		if !ok {
			next = newDirEntry(seg)
			cur.children[seg] = next
		}
		cur = next
	}
	leafName := segs[len(segs)-1]
	if f.Type == catalog.Directory {
		// A directory that happens to carry its own FileRecord (e.g.
		// an explicitly recorded empty directory) contributes only
		// its presence in the tree, not a leaf.
		if _, ok := cur.children[leafName]; !ok {
			cur.children[leafName] = newDirEntry(leafName)
		}
		return nil
	}
	cur.children[leafName] = &trieEntry{name: leafName, isFile: true, file: f}
	return nil
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// hashAndStore computes hashes bottom-up (post-order, so children
// exist in store before their parent is upserted) and returns the
// hash of e.
func hashAndStore(ctx context.Context, store Store, e *trieEntry) (hash.Hash, error) {
	if e.isFile {
		node := catalog.MerkleNode{
			Hash:   e.file.FileHash,
			Kind:   catalog.FileNode,
			Name:   e.name,
			Size:   e.file.Size,
			FileID: e.file.RelativePath,
		}
		if err := store.UpsertNode(ctx, node); err != nil {
			return hash.Hash{}, err
		}
		return node.Hash, nil
	}

	names := make([]string, 0, len(e.children))
	for name := range e.children {
		names = append(names, name)
	}
	sort.Strings(names)

	children := make([]childEntry, 0, len(names))
	var size int64
	for _, name := range names {
		child := e.children[name]
		h, err := hashAndStore(ctx, store, child)
		if err != nil {
			return hash.Hash{}, err
		}
		kind := catalog.DirNode
		if child.isFile {
			kind = catalog.FileNode
			size += child.file.Size
		}
		children = append(children, childEntry{name: name, kind: kind, hash: h})
	}

	h := dirHash(e.name, children)
	node := catalog.MerkleNode{
		Hash:           h,
		Kind:           catalog.DirNode,
		Name:           e.name,
		Size:           size,
		ChildrenHashes: childHashes(children),
	}
	if err := store.UpsertNode(ctx, node); err != nil {
		return hash.Hash{}, err
	}
	return h, nil
}

type childEntry struct {
	name string
	kind catalog.NodeKind
	hash hash.Hash
}

func childHashes(children []childEntry) []hash.Hash {
	out := make([]hash.Hash, len(children))
	for i, c := range children {
		out[i] = c.hash
	}
	return out
}

// dirHash implements spec 4.5's composition formula exactly:
//
//	H("DIR:" || name || for each child: name || ":" || kind || ":" || child_hash || "|")
//
// with children pre-sorted by name by the caller.
func dirHash(name string, children []childEntry) hash.Hash {
	var b strings.Builder
	b.WriteString("DIR:")
	b.WriteString(name)
	for _, c := range children {
		b.WriteString(c.name)
		b.WriteByte(':')
		b.WriteString(kindString(c.kind))
		b.WriteByte(':')
		b.WriteString(c.hash.String())
		b.WriteByte('|')
	}
	return hash.Of([]byte(b.String()))
}

func kindString(k catalog.NodeKind) string {
	if k == catalog.FileNode {
		return "FILE"
	}
	return "DIR"
}
