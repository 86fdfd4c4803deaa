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

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/carabistouflette/JustSyncIt-sub012/cas"
	"github.com/carabistouflette/JustSyncIt-sub012/catalog"
	"github.com/carabistouflette/JustSyncIt-sub012/changedetect"
	"github.com/carabistouflette/JustSyncIt-sub012/chunker"
	"github.com/carabistouflette/JustSyncIt-sub012/eventlog"
	"github.com/carabistouflette/JustSyncIt-sub012/merkle"
	"github.com/carabistouflette/JustSyncIt-sub012/progress"
)

// ErrNotDirectory is returned when Job.SourceRoot does not name a
// directory.
var ErrNotDirectory = errors.New("backup: source root is not a directory")

// Coordinator drives the INIT->SCAN->PROCESS->MERKLE->COMMIT state
// machine against one store's CAS, Catalog and Merkle Store.
type Coordinator struct {
	CAS     cas.Store
	Catalog *catalog.Catalog
	Merkle  merkle.Store

	sparseCache *chunker.SparseCache
}

// NewCoordinator wires a Coordinator against the three collaborators
// spec 4.7 names: the CAS, the catalog and the Merkle store.
func NewCoordinator(store cas.Store, cat *catalog.Catalog, merkleStore merkle.Store) *Coordinator {
	return &Coordinator{
		CAS:         store,
		Catalog:     cat,
		Merkle:      merkleStore,
		sparseCache: chunker.NewSparseCache(),
	}
}

// Run executes one backup job end to end.
func (c *Coordinator) Run(ctx context.Context, job Job) (Result, error) {
	job.setDefaults()
	sink := job.sink()
	listener := job.listener()

	info, err := os.Stat(job.SourceRoot)
	if err != nil {
		return Result{State: StateFailed}, fmt.Errorf("backup: stat source: %w", err)
	}
	if !info.IsDir() {
		return Result{State: StateFailed}, ErrNotDirectory
	}

	snapshotID := job.resolveSnapshotID()
	if _, err := c.Catalog.CreateSnapshot(ctx, snapshotID, job.Description, job.SourceRoot, job.ParentSnapshotID); err != nil {
		return Result{SnapshotID: snapshotID, State: StateFailed}, fmt.Errorf("backup: create snapshot: %w", err)
	}
	listener = listener.WithSnapshot(snapshotID)
	listener.Event(eventlog.SnapshotCreated, logrus.InfoLevel, "snapshot created", "")

	toProcess, excludeFromCopy, err := c.scan(ctx, job, sink)
	if err != nil {
		return Result{SnapshotID: snapshotID, State: StateFailed}, err
	}

	result := Result{SnapshotID: snapshotID}
	if err := c.process(ctx, job, snapshotID, toProcess, sink, listener, &result); err != nil {
		return Result{SnapshotID: snapshotID, State: StateFailed}, err
	}

	if job.Incremental && job.ParentSnapshotID != "" {
		if err := c.copyForward(ctx, snapshotID, job.ParentSnapshotID, excludeFromCopy); err != nil {
			return Result{SnapshotID: snapshotID, State: StateFailed}, fmt.Errorf("backup: copy unchanged: %w", err)
		}
	}

	files, err := c.Catalog.ListFiles(ctx, snapshotID)
	if err != nil {
		return Result{SnapshotID: snapshotID, State: StateFailed}, fmt.Errorf("backup: list files: %w", err)
	}
	rootHash, err := merkle.Build(ctx, c.Merkle, files)
	if err != nil {
		return Result{SnapshotID: snapshotID, State: StateFailed}, fmt.Errorf("backup: build merkle tree: %w", err)
	}

	totalFiles, totalBytes := aggregate(files)
	if err := c.Catalog.Commit(ctx, snapshotID, rootHash, totalFiles, totalBytes); err != nil {
		return Result{SnapshotID: snapshotID, State: StateFailed}, fmt.Errorf("backup: commit: %w", err)
	}

	result.State = StateDone
	result.TotalFiles = totalFiles
	result.TotalBytes = totalBytes
	if result.NewBytes > 0 {
		result.DedupRatio = float64(totalBytes) / float64(result.NewBytes)
	}
	listener.Event(eventlog.SnapshotCommitted, logrus.InfoLevel, result.Summary(), "")
	return result, nil
}

func (j *Job) resolveSnapshotID() string {
	if j.SnapshotID != "" {
		return j.SnapshotID
	}
	prefix := "backup"
	if j.Incremental {
		prefix = "backup-inc"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().UTC().Format(time.RFC3339), uuid.NewString()[:8])
}

// scan runs the SCAN state: a full directory walk for a fresh backup,
// or a Detector-driven comparison against the parent snapshot for an
// incremental one. It returns the entries PROCESS must chunk, plus
// (for incremental jobs) the full set of paths that must NOT be
// copied forward unchanged - every changed path, and every path the
// parent had that no longer exists.
func (c *Coordinator) scan(ctx context.Context, job Job, sink progress.Sink) (entries []scanEntry, excludeFromCopy []string, err error) {
	if !job.Incremental || job.ParentSnapshotID == "" {
		entries, err = c.scanFull(job, sink)
		return entries, nil, err
	}

	parentFiles, err := c.Catalog.ListFiles(ctx, job.ParentSnapshotID)
	if err != nil {
		return nil, nil, fmt.Errorf("backup: list parent files: %w", err)
	}
	parentIndex := changedetect.NewParentIndex(parentFiles)

	detector := job.Detector
	if detector == nil {
		detector = changedetect.WalkAndCompare{IncludeHidden: job.IncludeHidden}
	}
	changed, err := detector.Changed(ctx, job.SourceRoot, parentIndex)
	if err != nil {
		return nil, nil, fmt.Errorf("backup: change detection: %w", err)
	}

	entries, err = c.scanPaths(job, changed.Changed, sink)
	if err != nil {
		return nil, nil, err
	}
	exclude := make([]string, 0, len(changed.Changed)+len(changed.Deleted))
	exclude = append(exclude, changed.Changed...)
	exclude = append(exclude, changed.Deleted...)
	return entries, exclude, nil
}

// process runs the PROCESS state: every entry is chunked and
// recorded, fanned out across a bounded errgroup. A per-file failure
// is appended to result.Errors and never aborts the group; only
// context cancellation does.
func (c *Coordinator) process(ctx context.Context, job Job, snapshotID string, entries []scanEntry, sink progress.Sink, listener eventlog.Listener, result *Result) error {
	counters := &dedupCounters{}
	var mu sync.Mutex
	var filesDone int64
	total := int64(len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(job.Concurrency)

	for _, e := range entries {
		entry := e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if ferr := c.processFile(gctx, job, snapshotID, entry, sink, listener, counters); ferr != nil {
				mu.Lock()
				result.Errors = append(result.Errors, FileError{Path: entry.RelPath, Err: ferr})
				mu.Unlock()
			}
			mu.Lock()
			filesDone++
			done := filesDone
			mu.Unlock()
			sink.OnProgress(done, total, 0, 0)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("backup: process: %w", err)
	}
	result.NewBytes = counters.newBytes
	result.DedupBytes = counters.dedupBytes
	return nil
}

func (c *Coordinator) copyForward(ctx context.Context, snapshotID, parentSnapshotID string, exclude []string) error {
	excluded := make(map[string]struct{}, len(exclude))
	for _, p := range exclude {
		excluded[p] = struct{}{}
	}

	parentFiles, err := c.Catalog.ListFiles(ctx, parentSnapshotID)
	if err != nil {
		return err
	}
	for _, f := range parentFiles {
		if _, skip := excluded[f.RelativePath]; skip {
			continue
		}
		if err := c.Catalog.CopyUnchanged(ctx, snapshotID, parentSnapshotID, f.RelativePath); err != nil {
			return err
		}
	}
	return nil
}

// aggregate sums total file count and byte size over every non-directory
// record, matching spec scenario S4 (an all-directory snapshot reports
// total_files=0).
func aggregate(files []catalog.FileRecord) (totalFiles, totalBytes int64) {
	for _, f := range files {
		if f.Type == catalog.Directory {
			continue
		}
		totalFiles++
		totalBytes += f.Size
	}
	return totalFiles, totalBytes
}

