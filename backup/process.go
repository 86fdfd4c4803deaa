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
	"encoding/binary"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/carabistouflette/JustSyncIt-sub012/catalog"
	"github.com/carabistouflette/JustSyncIt-sub012/chunker"
	"github.com/carabistouflette/JustSyncIt-sub012/eventlog"
	"github.com/carabistouflette/JustSyncIt-sub012/hash"
	"github.com/carabistouflette/JustSyncIt-sub012/progress"
)

// dedupCounters tallies, across every file a job processes, how many
// chunk bytes were newly written to the CAS versus already present -
// the raw material for Result.DedupRatio.
type dedupCounters struct {
	newBytes   int64
	dedupBytes int64
	// written holds every hash this job has counted as new, so two
	// files that put the same new chunk concurrently count it once.
	written sync.Map
}

func (c *dedupCounters) addNew(n int64)   { atomic.AddInt64(&c.newBytes, n) }
func (c *dedupCounters) addDedup(n int64) { atomic.AddInt64(&c.dedupBytes, n) }

// tally counts n bytes of chunk h as new the first time this job puts
// h while it was absent from the CAS, and as deduplicated otherwise.
func (c *dedupCounters) tally(h hash.Hash, n int64, existed bool) {
	if !existed {
		if _, seen := c.written.LoadOrStore(h, struct{}{}); !seen {
			c.addNew(n)
			return
		}
	}
	c.addDedup(n)
}

// minSparseRun is the shortest all-zero chunk the sparse-file
// sentinel path bothers with; shorter runs aren't worth the cache
// lookup.
const minSparseRun = 4096

// processFile drives one file through Chunker -> Hasher -> CAS.Put
// and appends its FileRecord to the catalog. A non-nil return means a
// per-file failure: the caller logs it into Result.Errors and
// continues with the rest of the job, per spec 7's propagation policy.
func (c *Coordinator) processFile(ctx context.Context, job Job, snapshotID string, entry scanEntry, sink progress.Sink, listener eventlog.Listener, counters *dedupCounters) error {
	sink.OnFileStart(entry.RelPath)
	listener.Event(eventlog.FileStart, logrus.DebugLevel, "processing", entry.RelPath)

	var rec catalog.FileRecord
	switch entry.Type {
	case catalog.Directory:
		rec = catalog.FileRecord{
			SnapshotID:   snapshotID,
			RelativePath: entry.RelPath,
			Mtime:        entry.Mtime,
			Mode:         entry.Mode,
			Type:         catalog.Directory,
		}
	case catalog.Symlink:
		rec = catalog.FileRecord{
			SnapshotID:    snapshotID,
			RelativePath:  entry.RelPath,
			Size:          int64(len(entry.LinkTarget)),
			Mtime:         entry.Mtime,
			Mode:          entry.Mode,
			Type:          catalog.Symlink,
			SymlinkTarget: entry.LinkTarget,
			FileHash:      hash.Of([]byte(entry.LinkTarget)),
		}
	default:
		var err error
		rec, err = c.chunkRegularFile(ctx, snapshotID, entry, job, counters)
		if err != nil {
			sink.OnFileError(entry.RelPath, err)
			listener.Event(eventlog.FileError, logrus.WarnLevel, err.Error(), entry.RelPath)
			return err
		}
	}

	if err := c.Catalog.AppendFile(ctx, rec); err != nil {
		sink.OnFileError(entry.RelPath, err)
		return err
	}

	sink.OnFileProcessed(entry.RelPath, rec.Size)
	listener.Event(eventlog.FileProcessed, logrus.DebugLevel, "processed", entry.RelPath)
	return nil
}

func (c *Coordinator) chunkRegularFile(ctx context.Context, snapshotID string, entry scanEntry, job Job, counters *dedupCounters) (catalog.FileRecord, error) {
	f, err := os.Open(entry.AbsPath)
	if err != nil {
		return catalog.FileRecord{}, err
	}
	defer f.Close()

	seq, err := chunker.New(job.ChunkerMode, job.ChunkerParams, f)
	if err != nil {
		return catalog.FileRecord{}, err
	}

	var refs []catalog.ChunkRef
	var size int64
	for {
		piece, data, err := seq.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return catalog.FileRecord{}, err
		}

		h, err := c.putChunk(ctx, job, data, counters)
		if err != nil {
			return catalog.FileRecord{}, err
		}
		refs = append(refs, catalog.ChunkRef{Offset: piece.Offset, Length: piece.Length, Hash: h})
		size = piece.Offset + piece.Length
	}

	return catalog.FileRecord{
		SnapshotID:   snapshotID,
		RelativePath: entry.RelPath,
		Size:         size,
		Mtime:        entry.Mtime,
		Mode:         entry.Mode,
		Type:         catalog.Regular,
		Chunks:       refs,
		FileHash:     fileHashOf(refs, size),
	}, nil
}

// putChunk stores one chunk's bytes, using the sparse-run sentinel
// cache when the piece is an all-zero run long enough to be worth it,
// and tallies new-vs-deduplicated bytes as it goes.
func (c *Coordinator) putChunk(ctx context.Context, job Job, data []byte, counters *dedupCounters) (hash.Hash, error) {
	if job.SparseDetection && len(data) >= minSparseRun && chunker.IsZero(data) {
		h := c.sparseCache.HashOfZeros(int64(len(data)))
		exists, err := c.CAS.Exists(ctx, h)
		if err != nil {
			return hash.Hash{}, err
		}
		if exists {
			counters.addDedup(int64(len(data)))
			return h, nil
		}
		if _, err := c.CAS.Put(ctx, data); err != nil {
			return hash.Hash{}, err
		}
		counters.tally(h, int64(len(data)), false)
		return h, nil
	}

	exists, err := c.CAS.Exists(ctx, hash.Of(data))
	if err != nil {
		return hash.Hash{}, err
	}
	h, err := c.CAS.Put(ctx, data)
	if err != nil {
		return hash.Hash{}, err
	}
	counters.tally(h, int64(len(data)), exists)
	return h, nil
}

// fileHashOf composes a FileRecord's content hash from its ordered
// chunk hashes and size, per spec 3's "file_hash (Merkle of
// chunks+metadata)". A zero-chunk (empty) file still gets a
// well-defined hash, since size alone is written into the digest.
func fileHashOf(chunks []catalog.ChunkRef, size int64) hash.Hash {
	st := hash.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(size))
	st.Write(buf[:])
	for _, c := range chunks {
		st.Write(c.Hash.Bytes())
	}
	return st.Sum()
}
