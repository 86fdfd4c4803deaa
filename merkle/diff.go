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
	"path"
	"sort"

	"github.com/carabistouflette/JustSyncIt-sub012/catalog"
	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

// ChangeKind classifies one entry of a Diff walk.
type ChangeKind int

const (
	Added ChangeKind = iota
	Deleted
	Modified
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Change is one entry of a tree diff: a path and how it changed.
type Change struct {
	Path string
	Kind ChangeKind
}

// Visit is called once per Change found by Diff. Returning a non-nil
// error aborts the walk; Diff returns that error to its caller.
type Visit func(Change) error

// Diff walks two Merkle trees rooted at a and b and calls visit for
// every path whose content differs, doing work proportional only to
// the size of that difference: identical subtrees are pruned by a
// single hash comparison and never read past their root node.
func Diff(ctx context.Context, store Store, a, b hash.Hash, visit Visit) error {
	return diffNode(ctx, store, "", a, b, visit)
}

func diffNode(ctx context.Context, store Store, p string, a, b hash.Hash, visit Visit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.IsEmpty() && b.IsEmpty() {
		return nil
	}
	if a == b {
		return nil
	}
	if a.IsEmpty() {
		return emitSubtree(ctx, store, p, b, Added, visit)
	}
	if b.IsEmpty() {
		return emitSubtree(ctx, store, p, a, Deleted, visit)
	}

	na, err := store.GetNode(ctx, a)
	if err != nil {
		return err
	}
	nb, err := store.GetNode(ctx, b)
	if err != nil {
		return err
	}

	if na.Kind != nb.Kind {
		if err := emitSubtree(ctx, store, p, a, Deleted, visit); err != nil {
			return err
		}
		return emitSubtree(ctx, store, p, b, Added, visit)
	}

	if na.Kind == catalog.FileNode {
		return visit(Change{Path: p, Kind: Modified})
	}

	achildren, err := childMap(ctx, store, na)
	if err != nil {
		return err
	}
	bchildren, err := childMap(ctx, store, nb)
	if err != nil {
		return err
	}

	names := unionNames(achildren, bchildren)
	for _, name := range names {
		childPath := joinPath(p, name)
		if err := diffNode(ctx, store, childPath, achildren[name], bchildren[name], visit); err != nil {
			return err
		}
	}
	return nil
}

// emitSubtree reports an entire subtree as uniformly Added or
// Deleted, used when the other side of a comparison is absent (no
// prior/no longer existing path) or the two sides' kinds differ.
func emitSubtree(ctx context.Context, store Store, p string, h hash.Hash, kind ChangeKind, visit Visit) error {
	n, err := store.GetNode(ctx, h)
	if err != nil {
		return err
	}
	if n.Kind == catalog.FileNode {
		return visit(Change{Path: p, Kind: kind})
	}
	for _, ch := range n.ChildrenHashes {
		cn, err := store.GetNode(ctx, ch)
		if err != nil {
			return err
		}
		if err := emitSubtree(ctx, store, joinPath(p, cn.Name), ch, kind, visit); err != nil {
			return err
		}
	}
	return nil
}

// childMap resolves a dir node's children hashes to a name->hash map.
// The child's own Name field (not stored redundantly on the parent)
// supplies the key.
func childMap(ctx context.Context, store Store, n catalog.MerkleNode) (map[string]hash.Hash, error) {
	out := make(map[string]hash.Hash, len(n.ChildrenHashes))
	for _, ch := range n.ChildrenHashes {
		cn, err := store.GetNode(ctx, ch)
		if err != nil {
			return nil, err
		}
		out[cn.Name] = ch
	}
	return out, nil
}

func unionNames(a, b map[string]hash.Hash) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for name := range a {
		seen[name] = struct{}{}
	}
	for name := range b {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func joinPath(p, name string) string {
	if p == "" {
		return name
	}
	return path.Join(p, name)
}
