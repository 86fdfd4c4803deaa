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

package restore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/carabistouflette/JustSyncIt-sub012/cas"
	"github.com/carabistouflette/JustSyncIt-sub012/catalog"
	"github.com/carabistouflette/JustSyncIt-sub012/eventlog"
	"github.com/carabistouflette/JustSyncIt-sub012/hash"
	"github.com/carabistouflette/JustSyncIt-sub012/progress"
)

// ErrNotCommitted is returned when the requested snapshot has not
// been committed (or does not exist, which catalog.GetSnapshot
// already reports as catalog.ErrNotFound).
var ErrNotCommitted = errors.New("restore: snapshot is not committed")

// ErrTargetNotEmpty is returned when the target directory already has
// entries and Job.ExistingDir is FailIfNotEmpty.
var ErrTargetNotEmpty = errors.New("restore: target directory is not empty")

// ErrIntegrity wraps a cas.IntegrityError surfaced during restore,
// distinguishing it from an ordinary per-file error so callers can
// treat it as store corruption rather than a transient failure.
type ErrIntegrity struct {
	Path string
	Hash hash.Hash
}

func (e *ErrIntegrity) Error() string {
	return fmt.Sprintf("restore: integrity error for %s (chunk %s)", e.Path, e.Hash)
}

// Coordinator drives the Restore Coordinator: snapshot lookup, target
// preparation, directory-then-file write ordering, chunk fetch with
// bounded retry, and optional content/attribute verification.
type Coordinator struct {
	CAS     cas.Store
	Catalog *catalog.Catalog
}

// NewCoordinator wires a Coordinator against a CAS and catalog.
func NewCoordinator(store cas.Store, cat *catalog.Catalog) *Coordinator {
	return &Coordinator{CAS: store, Catalog: cat}
}

// Run executes one restore job end to end.
func (c *Coordinator) Run(ctx context.Context, job Job) (Result, error) {
	job.setDefaults()
	sink := job.sink()
	listener := job.listener().WithSnapshot(job.SnapshotID)

	snap, err := c.Catalog.GetSnapshot(ctx, job.SnapshotID)
	if err != nil {
		return Result{SnapshotID: job.SnapshotID}, fmt.Errorf("restore: get snapshot: %w", err)
	}
	if !snap.Committed {
		return Result{SnapshotID: job.SnapshotID}, ErrNotCommitted
	}

	if err := prepareTarget(job.TargetDir, job.ExistingDir); err != nil {
		return Result{SnapshotID: job.SnapshotID}, err
	}

	listener.Event(eventlog.RestoreStarted, logrus.InfoLevel, "restore started", "")

	files, err := c.Catalog.ListFiles(ctx, job.SnapshotID)
	if err != nil {
		return Result{SnapshotID: job.SnapshotID}, fmt.Errorf("restore: list files: %w", err)
	}
	files, err = filterRecords(files, job.Include, job.Exclude)
	if err != nil {
		return Result{SnapshotID: job.SnapshotID}, fmt.Errorf("restore: glob filter: %w", err)
	}

	dirs, regular := splitByKind(files)

	result := Result{SnapshotID: job.SnapshotID}
	// Directories are created up front, single-threaded: files and
	// further directories alike need their parents to already exist.
	// A failure to create the directory itself is fatal (nothing below
	// it can be restored); a failure to reapply its attributes is not,
	// and is recorded like any other per-file error instead.
	for _, rec := range dirs {
		if err := c.restoreDirectory(job, rec); err != nil {
			if attrErr, ok := err.(attributeError); ok {
				result.Errors = append(result.Errors, FileError{Path: rec.RelativePath, Err: attrErr.err})
				sink.OnFileError(rec.RelativePath, attrErr.err)
				listener.Event(eventlog.FileError, logrus.WarnLevel, attrErr.err.Error(), rec.RelativePath)
				continue
			}
			return result, fmt.Errorf("restore: create directory %s: %w", rec.RelativePath, err)
		}
	}

	if err := c.restoreFiles(ctx, job, regular, sink, listener, &result); err != nil {
		return result, err
	}

	listener.Event(eventlog.RestoreCompleted, logrus.InfoLevel, result.Summary(), "")
	return result, nil
}

func prepareTarget(targetDir string, policy ExistingDirPolicy) error {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("restore: create target: %w", err)
	}

	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return fmt.Errorf("restore: read target: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	switch policy {
	case Overwrite:
		return nil
	case BackupExisting:
		for _, e := range entries {
			p := filepath.Join(targetDir, e.Name())
			if err := os.Rename(p, p+".bak"); err != nil {
				return fmt.Errorf("restore: back up existing %s: %w", p, err)
			}
		}
		return nil
	default:
		return ErrTargetNotEmpty
	}
}

// filterRecords keeps only records matching Include (if set) and none
// of Exclude, each pattern a doublestar glob evaluated against the
// record's relative path.
func filterRecords(files []catalog.FileRecord, include, exclude []string) ([]catalog.FileRecord, error) {
	if len(include) == 0 && len(exclude) == 0 {
		return files, nil
	}
	out := make([]catalog.FileRecord, 0, len(files))
	for _, rec := range files {
		included := len(include) == 0
		for _, pat := range include {
			ok, err := doublestar.Match(pat, rec.RelativePath)
			if err != nil {
				return nil, fmt.Errorf("include pattern %q: %w", pat, err)
			}
			if ok {
				included = true
				break
			}
		}
		if !included {
			continue
		}

		excluded := false
		for _, pat := range exclude {
			ok, err := doublestar.Match(pat, rec.RelativePath)
			if err != nil {
				return nil, fmt.Errorf("exclude pattern %q: %w", pat, err)
			}
			if ok {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, rec)
		}
	}
	return out, nil
}

// splitByKind separates directory records (sorted by path length, so
// a parent is created before its children) from file/symlink records.
func splitByKind(files []catalog.FileRecord) (dirs, rest []catalog.FileRecord) {
	for _, f := range files {
		if f.Type == catalog.Directory {
			dirs = append(dirs, f)
		} else {
			rest = append(rest, f)
		}
	}
	sort.Slice(dirs, func(i, j int) bool {
		return len(dirs[i].RelativePath) < len(dirs[j].RelativePath)
	})
	return dirs, rest
}

// attributeError marks an error as coming from the post-creation
// mode/mtime step rather than from creating the directory itself, so
// Run can treat it as a per-file failure instead of aborting the job.
type attributeError struct{ err error }

func (a attributeError) Error() string { return a.err.Error() }

func (c *Coordinator) restoreDirectory(job Job, rec catalog.FileRecord) error {
	target := filepath.Join(job.TargetDir, filepath.FromSlash(rec.RelativePath))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	if !job.NoPreserveAttributes {
		if err := applyAttributes(target, rec); err != nil {
			return attributeError{err: err}
		}
	}
	return nil
}

func (c *Coordinator) restoreFiles(ctx context.Context, job Job, files []catalog.FileRecord, sink progress.Sink, listener eventlog.Listener, result *Result) error {
	var mu sync.Mutex
	var filesDone int64
	total := int64(len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(job.Concurrency)

	for _, f := range files {
		rec := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			written, ferr := c.restoreOneFile(gctx, job, rec)

			mu.Lock()
			defer mu.Unlock()
			if ferr != nil {
				// An integrity error is fatal only for the file that hit it
				// (spec 4.8, 7): it never aborts the rest of the restore, so
				// it is recorded like any other per-file error instead of
				// being returned to the errgroup.
				result.Errors = append(result.Errors, FileError{Path: rec.RelativePath, Err: ferr})
				sink.OnFileError(rec.RelativePath, ferr)
				listener.Event(eventlog.FileError, logrus.WarnLevel, ferr.Error(), rec.RelativePath)
			} else {
				result.FilesWritten++
				result.BytesWritten += written
				sink.OnFileProcessed(rec.RelativePath, written)
				listener.Event(eventlog.FileProcessed, logrus.DebugLevel, "restored", rec.RelativePath)
			}
			filesDone++
			done := filesDone
			sink.OnProgress(done, total, result.BytesWritten, 0)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}

// restoreOneFile writes a single FileRecord (regular file or symlink)
// to its target path and returns the number of content bytes written.
func (c *Coordinator) restoreOneFile(ctx context.Context, job Job, rec catalog.FileRecord) (int64, error) {
	target := filepath.Join(job.TargetDir, filepath.FromSlash(rec.RelativePath))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}

	if rec.Type == catalog.Symlink {
		_ = os.Remove(target)
		if err := os.Symlink(rec.SymlinkTarget, target); err != nil {
			return 0, err
		}
		return int64(len(rec.SymlinkTarget)), nil
	}

	return c.restoreRegularFile(ctx, job, rec, target)
}

func (c *Coordinator) restoreRegularFile(ctx context.Context, job Job, rec catalog.FileRecord, target string) (int64, error) {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var written int64
	for _, ref := range rec.Chunks {
		data, err := c.getChunkWithRetry(ctx, job, rec.RelativePath, ref.Hash)
		if err != nil {
			return written, err
		}
		if int64(len(data)) != ref.Length {
			return written, fmt.Errorf("restore: %s: chunk %s length mismatch: got %d want %d",
				rec.RelativePath, ref.Hash, len(data), ref.Length)
		}
		if _, err := f.Write(data); err != nil {
			return written, err
		}
		written += int64(len(data))
	}

	if !job.NoVerify {
		chunkHashes := make([]hash.Hash, len(rec.Chunks))
		for i, ref := range rec.Chunks {
			chunkHashes[i] = ref.Hash
		}
		if !fileHashOf(chunkHashes, written).Equal(rec.FileHash) {
			return written, fmt.Errorf("restore: %s: file hash mismatch after write", rec.RelativePath)
		}
	}

	if !job.NoPreserveAttributes {
		if err := applyAttributes(target, rec); err != nil {
			return written, err
		}
	}
	return written, nil
}

// getChunkWithRetry fetches one chunk, retrying transient errors with
// an exponential backoff up to Job.MaxChunkRetries times after the
// first attempt. A
// cas.IntegrityError is never retried: it means the chunk itself is
// corrupt, not that the read transiently failed.
func (c *Coordinator) getChunkWithRetry(ctx context.Context, job Job, relPath string, h hash.Hash) ([]byte, error) {
	var data []byte
	op := func() error {
		d, err := c.CAS.Get(ctx, h)
		if err != nil {
			var integrity *cas.IntegrityError
			if errors.As(err, &integrity) {
				return backoff.Permanent(&ErrIntegrity{Path: relPath, Hash: h})
			}
			return err
		}
		data = d
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(job.MaxChunkRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return data, nil
}

// fileHashOf mirrors backup.fileHashOf exactly: big-endian size
// followed by each chunk hash, in order. Recomputing it here from the
// chunks actually fetched and written is restore's half of spec 4.8's
// "verify file_hash matches recomputed hash over written bytes".
func fileHashOf(chunkHashes []hash.Hash, size int64) hash.Hash {
	st := hash.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(size))
	st.Write(buf[:])
	for _, h := range chunkHashes {
		st.Write(h.Bytes())
	}
	return st.Sum()
}

func applyAttributes(target string, rec catalog.FileRecord) error {
	if err := os.Chmod(target, os.FileMode(rec.Mode)); err != nil {
		return fmt.Errorf("restore: %s: set mode: %w", rec.RelativePath, err)
	}
	if err := os.Chtimes(target, rec.Mtime, rec.Mtime); err != nil {
		return fmt.Errorf("restore: %s: set mtime: %w", rec.RelativePath, err)
	}
	return nil
}
