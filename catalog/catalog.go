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

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/boltdb/bolt"

	"github.com/carabistouflette/JustSyncIt-sub012/hash"
)

var (
	bucketSnapshots   = []byte("snapshots")
	bucketFiles       = []byte("files")
	bucketMerkleNodes = []byte("merklenodes")
)

// ErrNotFound is returned when a snapshot, file record or merkle node
// does not exist under the given key.
var ErrNotFound = errors.New("catalog: not found")

// ErrAlreadyCommitted is returned by AppendFile/CopyUnchanged once a
// snapshot has been committed; committed snapshots are immutable.
var ErrAlreadyCommitted = errors.New("catalog: snapshot already committed")

// Catalog is the durable metadata store. One boltdb file backs three
// buckets: snapshots, files (keyed by snapshot id + NUL + relative
// path, so a snapshot's files sort contiguously) and merklenodes
// (keyed by hash).
type Catalog struct {
	db *bolt.DB
}

// Open opens (creating if absent) the catalog file at path, ensures
// its buckets exist and sweeps any snapshot left in the uncommitted
// state by a process that crashed mid-backup - per spec 4.4 those are
// orphans and their entries (and the files already appended under
// them) are removed so a restart starts clean.
func Open(path string) (*Catalog, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	c := &Catalog{db: db}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketSnapshots, bucketFiles, bucketMerkleNodes} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return sweepOrphans(tx)
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func sweepOrphans(tx *bolt.Tx) error {
	sb := tx.Bucket(bucketSnapshots)
	fb := tx.Bucket(bucketFiles)

	var orphans []string
	err := sb.ForEach(func(k, v []byte) error {
		snap, err := decodeSnapshot(v)
		if err != nil {
			return err
		}
		if !snap.Committed {
			orphans = append(orphans, snap.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range orphans {
		if err := sb.Delete([]byte(id)); err != nil {
			return err
		}
		if err := deleteFilesForSnapshot(fb, id); err != nil {
			return err
		}
	}
	return nil
}

func deleteFilesForSnapshot(fb *bolt.Bucket, snapshotID string) error {
	prefix := fileKeyPrefix(snapshotID)
	c := fb.Cursor()
	var dead [][]byte
	for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
		key := append([]byte(nil), k...)
		dead = append(dead, key)
	}
	for _, k := range dead {
		if err := fb.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func fileKey(snapshotID, relativePath string) []byte {
	return []byte(snapshotID + "\x00" + relativePath)
}

func fileKeyPrefix(snapshotID string) []byte {
	return []byte(snapshotID + "\x00")
}

// CreateSnapshot inserts a new, uncommitted snapshot record. parent,
// if non-empty, is the ID of the snapshot this one was diffed against.
func (c *Catalog) CreateSnapshot(ctx context.Context, id, description, sourceRoot, parent string) (Snapshot, error) {
	snap := Snapshot{
		ID:               id,
		Description:      description,
		CreatedAt:        time.Now().UTC(),
		SourceRoot:       sourceRoot,
		ParentSnapshotID: parent,
		Committed:        false,
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		if b.Get([]byte(id)) != nil {
			return fmt.Errorf("catalog: snapshot %s already exists", id)
		}
		enc, err := encodeSnapshot(snap)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), enc)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// AppendFile records one file's metadata under an in-progress
// snapshot. It fails if the snapshot is already committed.
func (c *Catalog) AppendFile(ctx context.Context, rec FileRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		sb := tx.Bucket(bucketSnapshots)
		raw := sb.Get([]byte(rec.SnapshotID))
		if raw == nil {
			return fmt.Errorf("catalog: append file: %w", ErrNotFound)
		}
		snap, err := decodeSnapshot(raw)
		if err != nil {
			return err
		}
		if snap.Committed {
			return ErrAlreadyCommitted
		}

		enc, err := encodeFileRecord(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketFiles).Put(fileKey(rec.SnapshotID, rec.RelativePath), enc)
	})
}

// CopyUnchanged copies a file record from parentSnapshotID into
// snapshotID under the same relative path, retargeting its SnapshotID
// and CreatedAt. The backup coordinator calls it during an incremental
// run for every parent path the change detector did not report as
// changed (by size/mtime) or deleted.
func (c *Catalog) CopyUnchanged(ctx context.Context, snapshotID, parentSnapshotID, relativePath string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		sb := tx.Bucket(bucketSnapshots)
		raw := sb.Get([]byte(snapshotID))
		if raw == nil {
			return fmt.Errorf("catalog: copy unchanged: %w", ErrNotFound)
		}
		snap, err := decodeSnapshot(raw)
		if err != nil {
			return err
		}
		if snap.Committed {
			return ErrAlreadyCommitted
		}

		fb := tx.Bucket(bucketFiles)
		parentRaw := fb.Get(fileKey(parentSnapshotID, relativePath))
		if parentRaw == nil {
			return fmt.Errorf("catalog: copy unchanged %s from %s: %w", relativePath, parentSnapshotID, ErrNotFound)
		}
		rec, err := decodeFileRecord(parentRaw)
		if err != nil {
			return err
		}
		rec.SnapshotID = snapshotID
		rec.CreatedAt = time.Now().UTC()

		enc, err := encodeFileRecord(rec)
		if err != nil {
			return err
		}
		return fb.Put(fileKey(snapshotID, relativePath), enc)
	})
}

// Commit marks a snapshot committed and records its final root
// Merkle hash and totals. A committed snapshot is immutable: no
// further AppendFile/CopyUnchanged calls against it will succeed.
func (c *Catalog) Commit(ctx context.Context, snapshotID string, rootHash hash.Hash, totalFiles, totalBytes int64) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		raw := b.Get([]byte(snapshotID))
		if raw == nil {
			return fmt.Errorf("catalog: commit: %w", ErrNotFound)
		}
		snap, err := decodeSnapshot(raw)
		if err != nil {
			return err
		}
		snap.Committed = true
		snap.RootMerkleHash = rootHash
		snap.TotalFiles = totalFiles
		snap.TotalBytes = totalBytes

		enc, err := encodeSnapshot(snap)
		if err != nil {
			return err
		}
		return b.Put([]byte(snapshotID), enc)
	})
}

// GetSnapshot returns the snapshot record with the given ID.
func (c *Catalog) GetSnapshot(ctx context.Context, id string) (Snapshot, error) {
	var snap Snapshot
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketSnapshots).Get([]byte(id))
		if raw == nil {
			return fmt.Errorf("catalog: get snapshot %s: %w", id, ErrNotFound)
		}
		var err error
		snap, err = decodeSnapshot(raw)
		return err
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// ListSnapshots returns every committed snapshot, newest first.
func (c *Catalog) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, v []byte) error {
			snap, err := decodeSnapshot(v)
			if err != nil {
				return err
			}
			if snap.Committed {
				out = append(out, snap)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListFiles returns every file record belonging to snapshotID, sorted
// by relative path.
func (c *Catalog) ListFiles(ctx context.Context, snapshotID string) ([]FileRecord, error) {
	var out []FileRecord
	err := c.db.View(func(tx *bolt.Tx) error {
		fb := tx.Bucket(bucketFiles)
		cur := fb.Cursor()
		prefix := fileKeyPrefix(snapshotID)
		for k, v := cur.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = cur.Next() {
			rec, err := decodeFileRecord(v)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out, nil
}

// DeleteSnapshot removes a snapshot record and all its file records.
// Chunks referenced only by this snapshot become eligible for
// collection the next time LiveChunkHashes feeds a cas.Store.Sweep.
func (c *Catalog) DeleteSnapshot(ctx context.Context, id string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		sb := tx.Bucket(bucketSnapshots)
		if sb.Get([]byte(id)) == nil {
			return fmt.Errorf("catalog: delete snapshot %s: %w", id, ErrNotFound)
		}
		if err := sb.Delete([]byte(id)); err != nil {
			return err
		}
		return deleteFilesForSnapshot(tx.Bucket(bucketFiles), id)
	})
}

// UpsertMerkleNode stores (or overwrites, since nodes are
// content-addressed and identical content always re-encodes to the
// same bytes) a Merkle tree node.
func (c *Catalog) UpsertMerkleNode(ctx context.Context, n MerkleNode) error {
	enc, err := encodeMerkleNode(n)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMerkleNodes).Put(n.Hash.Bytes(), enc)
	})
}

// GetMerkleNode looks up a node by hash.
func (c *Catalog) GetMerkleNode(ctx context.Context, h hash.Hash) (MerkleNode, error) {
	var n MerkleNode
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketMerkleNodes).Get(h.Bytes())
		if raw == nil {
			return fmt.Errorf("catalog: get merkle node %s: %w", h, ErrNotFound)
		}
		var err error
		n, err = decodeMerkleNode(raw)
		return err
	})
	if err != nil {
		return MerkleNode{}, err
	}
	return n, nil
}

// LiveChunkHashes returns the union of every chunk hash referenced by
// any file record across every snapshot (committed or not - an
// in-progress snapshot's chunks are live too). This is the retained
// set a cas.Store.Sweep call must be given.
func (c *Catalog) LiveChunkHashes(ctx context.Context) (map[hash.Hash]struct{}, error) {
	live := make(map[hash.Hash]struct{})
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFiles).ForEach(func(_, v []byte) error {
			rec, err := decodeFileRecord(v)
			if err != nil {
				return err
			}
			for _, ref := range rec.Chunks {
				live[ref.Hash] = struct{}{}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return live, nil
}

// Stats summarizes catalog contents.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := c.db.View(func(tx *bolt.Tx) error {
		st.SnapshotCount = tx.Bucket(bucketSnapshots).Stats().KeyN
		st.FileCount = tx.Bucket(bucketFiles).Stats().KeyN
		st.MerkleNodeCount = tx.Bucket(bucketMerkleNodes).Stats().KeyN
		return nil
	})
	return st, err
}

// Close releases the underlying boltdb file.
func (c *Catalog) Close() error {
	return c.db.Close()
}
