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

// Package changedetect narrows "which files might have changed since
// the parent snapshot" to a single collaborator interface. The core
// backup pipeline depends only on Detector; it tolerates false
// positives from any implementation (re-chunking an unchanged file is
// wasted work, not a correctness bug, since CAS dedup suppresses
// re-storage of identical chunks).
package changedetect

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/carabistouflette/JustSyncIt-sub012/catalog"
)

// ParentIndex is a read-only view of a parent snapshot's file records,
// keyed by relative path, that a Detector compares the live filesystem
// against.
type ParentIndex struct {
	files map[string]catalog.FileRecord
}

// NewParentIndex builds a ParentIndex from a snapshot's file list
// (the output of catalog.Catalog.ListFiles).
func NewParentIndex(records []catalog.FileRecord) ParentIndex {
	files := make(map[string]catalog.FileRecord, len(records))
	for _, r := range records {
		files[r.RelativePath] = r
	}
	return ParentIndex{files: files}
}

// Lookup returns the parent's record for relativePath, if any.
func (p ParentIndex) Lookup(relativePath string) (catalog.FileRecord, bool) {
	r, ok := p.files[relativePath]
	return r, ok
}

// Paths returns every relative path the parent snapshot recorded, in
// no particular order.
func (p ParentIndex) Paths() []string {
	out := make([]string, 0, len(p.files))
	for path := range p.files {
		out = append(out, path)
	}
	return out
}

// Result is the finite output of one Changed call: paths that need
// full reprocessing (new or modified) and paths present in the parent
// but no longer on disk.
type Result struct {
	// Changed holds paths that are new or whose size/mtime suggests
	// modification. The backup coordinator re-chunks every one of
	// these and, together with Deleted, leaves them out when it copies
	// the parent's remaining records forward with
	// catalog.CopyUnchanged.
	Changed []string
	// Deleted holds paths the parent snapshot had that no longer
	// exist under root.
	Deleted []string
}

// Detector is the narrow collaborator contract the backup coordinator
// depends on for incremental runs.
type Detector interface {
	Changed(ctx context.Context, root string, parent ParentIndex) (Result, error)
}

// WalkAndCompare is the default Detector: a filepath.WalkDir over root
// compared against parent by size and mtime, per spec 4.6. It is not
// an OS-specific change journal and reports false positives on any
// metadata update that doesn't actually change content, which is
// safe, not incorrect.
type WalkAndCompare struct {
	IncludeHidden bool
}

func (w WalkAndCompare) Changed(ctx context.Context, root string, parent ParentIndex) (Result, error) {
	seen := make(map[string]struct{})
	var result Result

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if !w.IncludeHidden && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = struct{}{}

		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			// A directory has no content size to compare, only mtime; an
			// unchanged directory must still land in seen above so the
			// post-walk pass below doesn't report it Deleted.
			prev, ok := parent.Lookup(rel)
			if !ok || info.ModTime().After(prev.Mtime) {
				result.Changed = append(result.Changed, rel)
			}
			return nil
		}

		prev, ok := parent.Lookup(rel)
		if !ok || info.Size() != prev.Size || info.ModTime().After(prev.Mtime) {
			result.Changed = append(result.Changed, rel)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	for _, p := range parent.Paths() {
		if _, ok := seen[p]; !ok {
			result.Deleted = append(result.Deleted, p)
		}
	}

	sort.Strings(result.Changed)
	sort.Strings(result.Deleted)
	return result, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

var _ Detector = WalkAndCompare{}
